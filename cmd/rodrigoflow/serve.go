package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/api"
	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
	"github.com/redeelle/rodrigo-flow-app/internal/coach"
	"github.com/redeelle/rodrigo-flow-app/internal/draft"
	"github.com/redeelle/rodrigo-flow-app/internal/hermes"
	"github.com/redeelle/rodrigo-flow-app/internal/slack"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the submitter and manager web screens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return serve(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")
	return cmd
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("rodrigoflow starting", "port", cfg.Port, "store", cfg.StoreDriver, "provider", cfg.LLMProvider)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	mode, err := analytics.ParseAlertMode(cfg.AlertMode)
	if err != nil {
		return err
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("llm client ready", "provider", cfg.LLMProvider, "model", completer.Model())

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("store connected", "driver", cfg.StoreDriver, "collection", cfg.Collection)

	drafts := draft.NewStore(cfg.DraftTTL, time.Minute)
	defer drafts.Close()

	// Events are optional; a nil publisher skips them.
	var (
		publisher    coach.Publisher
		hermesClient *hermes.Client
	)
	if cfg.NatsURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		hermesClient, err = hermes.NewClient(connectCtx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		cancel()
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	var notifier api.Notifier
	if cfg.SlackEnabled() {
		notifier = slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, alert digests disabled")
	}

	svc := coach.New(classifier.New(completer, slog.Default()), drafts, st, publisher, loc, slog.Default())

	srv := api.NewServer(api.Options{
		Port:         cfg.Port,
		ManagerToken: cfg.ManagerToken,
		Coach:        svc,
		Cache:        store.NewCache(st, slog.Default()),
		Notifier:     notifier,
		Analytics:    analytics.Options{AlertMode: mode},
		Location:     loc,
		Model:        completer.Model(),
		Store:        cfg.StoreDriver,
		Logger:       slog.Default(),
	})
	if cfg.ManagerToken == "" {
		slog.Warn("MANAGER_TOKEN not set, dashboard is unauthenticated")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
			Name:      "rodrigoflow",
			Model:     completer.Model(),
			Store:     cfg.StoreDriver,
			StartedAt: time.Now().UTC(),
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("rodrigoflow ready", "port", cfg.Port)
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("rodrigoflow stopped")
	return nil
}
