package backfill

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestState_SaveAndLoad(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")

	s, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if s.StartedAt.IsZero() {
		t.Error("new state should carry a start time")
	}
	s.MarkImported("abc", "export1.csv", 10)
	s.MarkImported("def", "export2.csv", 5)
	s.RowsImported = 12
	s.RowsSkipped = 3

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	f, ok := reloaded.Imported("def")
	if !ok || f.Path != "export2.csv" || f.Rows != 5 {
		t.Errorf("Imported(def) = %+v, %v", f, ok)
	}
	if reloaded.RowsImported != 12 || reloaded.RowsSkipped != 3 {
		t.Errorf("counters = %d/%d, want 12/3", reloaded.RowsImported, reloaded.RowsSkipped)
	}
	if reloaded.Path() != statePath {
		t.Errorf("Path() = %q, want %q", reloaded.Path(), statePath)
	}
	if reloaded.UpdatedAt.IsZero() {
		t.Error("saved state should carry an update time")
	}
}

func TestState_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := LoadState(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Errorf("unexpected files in state dir: %v", entries)
	}
}

func TestState_LoadCorrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(statePath, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(statePath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestState_Imported(t *testing.T) {
	s := &State{}

	if _, ok := s.Imported("abc"); ok {
		t.Error("abc should not be imported yet")
	}
	s.MarkImported("abc", "export1.csv", 1)
	if _, ok := s.Imported("abc"); !ok {
		t.Error("abc should be imported")
	}
	if _, ok := s.Imported("def"); ok {
		t.Error("def should not be imported")
	}
}

func TestState_AddErrorIsBounded(t *testing.T) {
	s := &State{}
	for i := 0; i < maxErrors+5; i++ {
		s.AddError(fmt.Sprintf("error %d", i))
	}
	if len(s.Errors) != maxErrors {
		t.Fatalf("expected %d errors, got %d", maxErrors, len(s.Errors))
	}
	if s.Errors[0] != "error 5" {
		t.Errorf("oldest kept error = %q, want error 5", s.Errors[0])
	}
}

func TestState_SaveCreatesDirectories(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	s := &State{path: statePath}
	if err := s.Save(); err != nil {
		t.Fatalf("Save with nested dir failed: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created in nested dir: %v", err)
	}
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	a := write("a.csv", "data_hora\n2024-02-11 10:00:00\n")
	b := write("b.csv", "data_hora\n2024-02-11 10:00:00\n")
	c := write("c.csv", "data_hora\n2024-02-11 10:00:01\n")

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	db, _ := Digest(b)
	dc, _ := Digest(c)
	if da != db {
		t.Error("identical contents should share a digest")
	}
	if da == dc {
		t.Error("different contents should not share a digest")
	}
	if _, err := Digest(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	got := expandHome("~/test/path")
	want := filepath.Join(home, "test/path")
	if got != want {
		t.Errorf("expandHome(~/test/path) = %q, want %q", got, want)
	}

	got = expandHome("/absolute/path")
	if got != "/absolute/path" {
		t.Errorf("expandHome(/absolute/path) = %q", got)
	}
}
