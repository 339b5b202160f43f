package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redeelle/rodrigo-flow-app/internal/backfill"
)

func backfillCmd() *cobra.Command {
	var (
		dryRun    bool
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "backfill FILE...",
		Short: "Import interactions from CSV exports",
		Long: `Import interactions from CSV files in the export format. Rows already in the
store (same text within one second) are skipped, and files whose contents
were already imported are not read again, even under another name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runner := backfill.NewRunner(backfill.Config{
				Files:     args,
				StatePath: statePath,
				DryRun:    dryRun,
				Location:  loc,
			}, st, slog.Default())

			sum, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			prefix := ""
			if sum.DryRun {
				prefix = "[dry run] "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%d files read, %d already imported, %d rows imported, %d rows skipped, %d errors\n",
				prefix, sum.Files, sum.Unchanged, sum.Imported, sum.Skipped, sum.Errors)
			if sum.Errors > 0 {
				return fmt.Errorf("%d files failed to import", sum.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")
	cmd.Flags().StringVar(&statePath, "state", backfill.DefaultStatePath, "resumable state file")
	return cmd
}
