package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/slack"
)

func reportCmd() *cobra.Command {
	var (
		start, end string
		top        int
		postSlack  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the manager analytics for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postSlack && !cfg.SlackEnabled() {
				return errors.New("--slack needs SLACK_BOT_TOKEN and SLACK_ALERTS_CHANNEL")
			}
			mode, err := analytics.ParseAlertMode(cfg.AlertMode)
			if err != nil {
				return err
			}

			records, err := loadRecords(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhum dado de interação encontrado.")
				return nil
			}

			rng, err := selectRange(records, start, end)
			if err != nil {
				return err
			}
			rep := analytics.Build(records, rng, analytics.Options{AlertMode: mode, TopObjections: top})
			fmt.Fprint(cmd.OutOrStdout(), renderReport(rep))

			if postSlack {
				poster := slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, slog.Default())
				ts, err := poster.PostAlertDigest(cmd.Context(), rep)
				if err != nil {
					return err
				}
				slog.Info("alert digest posted", "channel", cfg.SlackChannel, "ts", ts)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default: first recorded day)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (default: last recorded day)")
	cmd.Flags().IntVarP(&top, "top", "n", analytics.DefaultTopObjections, "number of objections to list")
	cmd.Flags().BoolVar(&postSlack, "slack", false, "post the alert digest to Slack")
	return cmd
}

// loadRecords reads every interaction from the configured store.
func loadRecords(ctx context.Context) ([]domain.Interaction, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	records, err := st.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return records, nil
}

// selectRange parses the requested bounds, defaulting to and clamped by the
// dates present in records.
func selectRange(records []domain.Interaction, start, end string) (analytics.Range, error) {
	bounds, ok := analytics.Bounds(records)
	if !ok {
		return analytics.Range{}, errors.New("no records")
	}
	rng, err := analytics.ParseRange(start, end, bounds)
	if err != nil {
		return analytics.Range{}, err
	}
	return rng.Clamp(bounds), nil
}
