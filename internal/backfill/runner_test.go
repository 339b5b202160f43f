package backfill

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/report"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *store.SQLite {
	t.Helper()
	s, err := store.OpenSQLite(store.Options{SQLitePath: ":memory:", Location: time.UTC, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeExport(t *testing.T, dir, name string, records []domain.Interaction) string {
	t.Helper()
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func interaction(text string, at time.Time) domain.Interaction {
	return domain.Interaction{
		InputText:     text,
		Archetype:     "O Medroso",
		Applied:       domain.AppliedYes,
		SubmitterName: "Ana",
		CreatedAt:     at,
	}
}

func TestRunner_ImportsAndSkipsExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openStore(t)
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)

	// One row is already stored.
	if _, err := st.Create(ctx, interaction("está caro", base)); err != nil {
		t.Fatal(err)
	}

	file := writeExport(t, dir, "export.csv", []domain.Interaction{
		interaction("está caro", base),
		interaction("vou pensar", base.Add(time.Minute)),
		interaction("sem tempo", base.Add(2*time.Minute)),
	})

	r := NewRunner(Config{
		Files:     []string{file},
		StatePath: filepath.Join(dir, "state.json"),
		Location:  time.UTC,
	}, st, discardLogger())

	sum, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 1 || sum.Imported != 2 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}

	records, _ := st.All(ctx)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Historical timestamps are kept.
	if !records[2].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("created_at = %v", records[2].CreatedAt)
	}

	// A second run skips the file entirely.
	sum, err = r.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Files != 0 || sum.Imported != 0 || sum.Unchanged != 1 {
		t.Errorf("second summary = %+v", sum)
	}
}

func TestRunner_DedupAcrossFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openStore(t)
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)

	a := writeExport(t, dir, "a.csv", []domain.Interaction{interaction("está caro", base)})
	b := writeExport(t, dir, "b.csv", []domain.Interaction{
		interaction("está caro", base),
		interaction("sem tempo", base.Add(time.Hour)),
	})

	r := NewRunner(Config{Files: []string{a, b}, StatePath: filepath.Join(dir, "state.json")}, st, discardLogger())
	sum, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Files != 2 || sum.Imported != 2 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunner_RenamedCopyIsNotReread(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openStore(t)
	statePath := filepath.Join(dir, "state.json")
	records := []domain.Interaction{interaction("está caro", time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC))}

	first := writeExport(t, dir, "rodrigo_flow_relatorio_20240211.csv", records)
	if _, err := NewRunner(Config{Files: []string{first}, StatePath: statePath}, st, discardLogger()).Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	copied := writeExport(t, dir, "copia.csv", records)
	sum, err := NewRunner(Config{Files: []string{copied}, StatePath: statePath}, st, discardLogger()).Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Unchanged != 1 || sum.Files != 0 || sum.Imported != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunner_DryRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openStore(t)
	statePath := filepath.Join(dir, "state.json")

	file := writeExport(t, dir, "export.csv", []domain.Interaction{
		interaction("está caro", time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)),
	})

	r := NewRunner(Config{Files: []string{file}, StatePath: statePath, DryRun: true, Location: time.UTC}, st, discardLogger())
	sum, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.DryRun || sum.Imported != 1 {
		t.Errorf("summary = %+v", sum)
	}

	records, _ := st.All(ctx)
	if len(records) != 0 {
		t.Errorf("dry run wrote %d records", len(records))
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Errorf("dry run should not write state, stat err = %v", err)
	}
}

func TestRunner_BadFileIsRetried(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openStore(t)
	statePath := filepath.Join(dir, "state.json")

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("perfil_ia\nO Medroso\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.csv")

	r := NewRunner(Config{Files: []string{bad, missing}, StatePath: statePath}, st, discardLogger())
	sum, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Errors != 2 || sum.Files != 0 {
		t.Errorf("summary = %+v", sum)
	}

	state, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state.Files) != 0 || len(state.Errors) != 2 {
		t.Errorf("state = %+v", state)
	}
}
