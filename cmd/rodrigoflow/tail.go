package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/hermes"
)

func tailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print interaction events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.NatsURL == "" {
				return errors.New("NATS_URL is not set")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			client, err := hermes.NewClient(connectCtx, cfg.NatsURL, cfg.NatsToken, slog.Default())
			cancel()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			for _, subject := range []string{hermes.SubjectInteractionRecorded, hermes.SubjectAgentRegistered} {
				if err := client.Subscribe(subject, func(ev hermes.Event) {
					at := ev.SentAt
					if at.IsZero() {
						at = time.Now()
					}
					fmt.Fprintf(out, "%s %s %s\n", at.Format(time.RFC3339), ev.Subject, ev.Data)
				}); err != nil {
					return err
				}
			}

			<-ctx.Done()
			return nil
		},
	}
}
