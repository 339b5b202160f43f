package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Client is a thin JSON publish/subscribe wrapper over a NATS connection.
type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewClient connects to url, retrying in the background if the server is not
// up yet. An empty token connects without authentication.
func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("rodrigoflow"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrlRedacted())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// headerSentAt carries the publish time so consumers can order events
// independently of delivery.
const headerSentAt = "Rodrigoflow-Sent-At"

// Event is one message received on a subscribed subject. SentAt is zero when
// the publisher did not stamp the message.
type Event struct {
	Subject string
	Data    []byte
	SentAt  time.Time
}

// Publish sends data as a JSON message stamped with the publish time.
func (c *Client) Publish(subject string, data any) error {
	msg, err := newMsg(subject, data, time.Now())
	if err != nil {
		return err
	}
	if err := c.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(Event)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(decodeEvent(msg))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Close unsubscribes and drains the connection so pending publishes are
// flushed. A failed drain falls back to closing outright.
func (c *Client) Close() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Debug("unsubscribe failed", "subject", sub.Subject, "error", err)
		}
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", "error", err)
		c.conn.Close()
	}
}

func newMsg(subject string, data any, now time.Time) (*nats.Msg, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(headerSentAt, now.UTC().Format(time.RFC3339Nano))
	msg.Data = payload
	return msg, nil
}

func decodeEvent(msg *nats.Msg) Event {
	ev := Event{Subject: msg.Subject, Data: msg.Data}
	if msg.Header != nil {
		if t, err := time.Parse(time.RFC3339Nano, msg.Header.Get(headerSentAt)); err == nil {
			ev.SentAt = t
		}
	}
	return ev
}
