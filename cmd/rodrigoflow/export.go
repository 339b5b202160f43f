package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/report"
)

func exportCmd() *cobra.Command {
	var start, end, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the interactions of a date range as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			records, err := loadRecords(cmd.Context())
			if err != nil {
				return err
			}

			today := analytics.Day(time.Now().In(loc))
			rng := analytics.NewRange(today, today)
			var selected []domain.Interaction
			if len(records) > 0 {
				if rng, err = selectRange(records, start, end); err != nil {
					return err
				}
				selected = analytics.Filter(records, rng)
			}

			if output == "" {
				output = report.Filename(rng)
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := report.WriteCSV(w, selected); err != nil {
				return err
			}
			if output != "-" {
				slog.Info("export written", "file", output, "rows", len(selected), "range", rng.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD (default: first recorded day)")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD (default: last recorded day)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: rodrigo_flow_relatorio_<dates>.csv)`)
	return cmd
}
