// Package backfill imports interactions from CSV exports into the store,
// skipping rows that are already present.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/report"
)

// Store is the subset of the interaction store the backfill needs.
type Store interface {
	Create(ctx context.Context, in domain.Interaction) (string, error)
	All(ctx context.Context) ([]domain.Interaction, error)
}

// Config holds the backfill command configuration.
type Config struct {
	Files     []string
	StatePath string
	DryRun    bool
	Location  *time.Location
}

// Summary reports what one run did.
type Summary struct {
	Files     int
	Unchanged int
	Imported  int
	Skipped   int
	Errors    int
	DryRun    bool
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg    Config
	store  Store
	logger *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, s Store, logger *slog.Logger) *Runner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Runner{cfg: cfg, store: s, logger: logger}
}

// Run imports every configured file not yet recorded in the state file.
// A file that fails to parse is recorded as an error and left unprocessed
// so a later run retries it. Dry runs never write to the store or state.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{DryRun: r.cfg.DryRun}

	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return sum, fmt.Errorf("load state: %w", err)
	}

	existing, err := r.store.All(ctx)
	if err != nil {
		return sum, fmt.Errorf("load existing interactions: %w", err)
	}
	idx := newSeenIndex(existing)

	r.logger.Info("backfill starting",
		"files", len(r.cfg.Files),
		"existing", len(existing),
		"dry_run", r.cfg.DryRun,
	)

	for _, path := range r.cfg.Files {
		digest, err := Digest(path)
		if err != nil {
			r.fail(state, &sum, path, err)
			continue
		}
		if prev, ok := state.Imported(digest); ok {
			r.logger.Info("skipping imported file", "path", path, "imported_as", prev.Path)
			sum.Unchanged++
			continue
		}

		imported, skipped, err := r.importFile(ctx, path, idx)
		sum.Imported += imported
		sum.Skipped += skipped
		if !r.cfg.DryRun {
			state.RowsImported += imported
			state.RowsSkipped += skipped
		}
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("backfill interrupted, saving state")
				r.save(state)
				return sum, ctx.Err()
			}
			r.fail(state, &sum, path, err)
			continue
		}

		sum.Files++
		r.logger.Info("file imported",
			"path", path,
			"imported", imported,
			"skipped", skipped,
			"dry_run", r.cfg.DryRun,
		)
		if !r.cfg.DryRun {
			state.MarkImported(digest, path, imported+skipped)
			r.save(state)
		}
	}

	r.logger.Info("backfill complete",
		"files", sum.Files,
		"unchanged", sum.Unchanged,
		"imported", sum.Imported,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
		"dry_run", r.cfg.DryRun,
		"state_file", state.Path(),
	)
	return sum, nil
}

func (r *Runner) importFile(ctx context.Context, path string, idx seenIndex) (imported, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	records, err := report.ReadCSV(f, r.cfg.Location)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return imported, skipped, err
		}
		if idx.seen(rec) {
			skipped++
			continue
		}
		if !r.cfg.DryRun {
			if _, err := r.store.Create(ctx, rec); err != nil {
				return imported, skipped, fmt.Errorf("write interaction: %w", err)
			}
		}
		idx.add(rec)
		imported++
	}
	return imported, skipped, nil
}

// fail records a file that could not be imported. It stays unmarked so a
// later run retries it.
func (r *Runner) fail(state *State, sum *Summary, path string, err error) {
	r.logger.Error("import failed", "path", path, "error", err)
	state.AddError(fmt.Sprintf("import %s: %v", path, err))
	sum.Errors++
	r.save(state)
}

func (r *Runner) save(state *State) {
	if r.cfg.DryRun {
		return
	}
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save backfill state", "path", state.Path(), "error", err)
	}
}
