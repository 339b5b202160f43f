package backfill

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DefaultStatePath is where progress is kept when no path is configured.
const DefaultStatePath = "~/.rodrigoflow/backfill-state.json"

// maxErrors bounds the error log kept in the state file.
const maxErrors = 100

// ImportedFile is one export that has been fully read into the store.
type ImportedFile struct {
	Path       string    `json:"path"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// State is the resumable progress of backfill runs. Files are keyed by a
// digest of their contents, so a renamed copy of an imported export is
// recognised and an edited file under the same name is read again.
type State struct {
	StartedAt    time.Time               `json:"started_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Files        map[string]ImportedFile `json:"files"`
	RowsImported int                     `json:"rows_imported"`
	RowsSkipped  int                     `json:"rows_skipped"`
	Errors       []string                `json:"errors,omitempty"`

	path string
}

// LoadState reads the state at path. A missing file yields a fresh state.
func LoadState(path string) (*State, error) {
	if path == "" {
		path = DefaultStatePath
	}
	p := expandHome(path)

	s := &State{path: p}
	data, err := os.ReadFile(p)
	switch {
	case os.IsNotExist(err):
		s.StartedAt = time.Now().UTC()
	case err != nil:
		return nil, fmt.Errorf("read state: %w", err)
	default:
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse state %s: %w", p, err)
		}
	}
	if s.Files == nil {
		s.Files = make(map[string]ImportedFile)
	}
	return s, nil
}

// Path returns the resolved state file location.
func (s *State) Path() string {
	return s.path
}

// Save writes the state through a temporary file so an interrupted run never
// leaves a truncated state behind.
func (s *State) Save() error {
	s.UpdatedAt = time.Now().UTC()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".backfill-state-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Imported reports whether a file with this digest was already imported.
func (s *State) Imported(digest string) (ImportedFile, bool) {
	f, ok := s.Files[digest]
	return f, ok
}

// MarkImported records a fully imported file.
func (s *State) MarkImported(digest, path string, rows int) {
	if s.Files == nil {
		s.Files = make(map[string]ImportedFile)
	}
	s.Files[digest] = ImportedFile{Path: path, Rows: rows, ImportedAt: time.Now().UTC()}
}

// AddError appends to the error log, dropping the oldest entries past maxErrors.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
	if over := len(s.Errors) - maxErrors; over > 0 {
		s.Errors = append([]string(nil), s.Errors[over:]...)
	}
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
