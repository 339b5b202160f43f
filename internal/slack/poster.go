package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Poster sends manager digests to one Slack channel through chat.postMessage.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostAlertDigest posts the application rate and alert rollup for the
// report's range. The per-archetype breakdown goes in a thread reply when
// there are alerts. Returns the header message timestamp.
func (p *Poster) PostAlertDigest(ctx context.Context, rep analytics.Report) (string, error) {
	text := formatDigest(rep)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Perfil ideal: " + archetype.Ideal,
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	p.logger.Info("posted alert digest to slack", "ts", ts, "range", rep.Range.String(), "alerts", len(rep.Alerts.Rows))

	if !rep.Empty && !rep.Alerts.Empty() {
		if err := p.PostThread(ctx, ts, formatAlertBreakdown(rep.Alerts)); err != nil {
			return ts, fmt.Errorf("post alert breakdown: %w", err)
		}
	}
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatDigest(rep analytics.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*RODRIGO.FLOW* | período %s a %s\n\n", rep.Start, rep.End)

	if rep.Empty {
		sb.WriteString("_Nenhuma interação registrada no período._")
		return sb.String()
	}

	rate := rep.Application
	if rate.HasApplied {
		fmt.Fprintf(&sb, "*Estratégias aplicadas:* %.2f%% (%d de %d interações)\n", rate.Percent, rate.Applied, rate.Total)
	} else {
		fmt.Fprintf(&sb, "*Estratégias aplicadas:* nenhuma em %d interações\n", rate.Total)
	}

	if rep.Alerts.Empty() {
		sb.WriteString("\n:tada: Nenhum vendedor identificado em alerta no período.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n:rotating_light: *Vendedores em alerta: %d*\n", len(rep.Alerts.Rows))
	for i, row := range rep.Alerts.Rows {
		fmt.Fprintf(&sb, "%d. %s | %d ocorrências fora do perfil ideal\n", i+1, row.Submitter, row.Total)
	}
	return sb.String()
}

func formatAlertBreakdown(alerts analytics.AlertTable) string {
	var sb strings.Builder
	for _, row := range alerts.Rows {
		fmt.Fprintf(&sb, "*%s*\n", row.Submitter)
		for _, name := range alerts.Archetypes {
			if n := row.Counts[name]; n > 0 {
				fmt.Fprintf(&sb, "  • %s: %d\n", name, n)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
