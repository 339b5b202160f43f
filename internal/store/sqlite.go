package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// SQLite stores documents as JSON text in a local database file.
// Pass ":memory:" as SQLitePath for an in-memory database.
type SQLite struct {
	db     *sql.DB
	table  string
	loc    *time.Location
	logger *slog.Logger
}

func OpenSQLite(opts Options) (*SQLite, error) {
	dsn := opts.SQLitePath
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	collection := opts.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLite{db: db, table: `"` + collection + `"`, loc: loc, logger: logger}
	if _, err := db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		doc        TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`, s.table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Create(ctx context.Context, in domain.Interaction) (string, error) {
	in = stamp(in)
	id := uuid.NewString()

	body, err := json.Marshal(toDocument(in, s.loc))
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, doc, created_at) VALUES (?, ?, ?)`, s.table),
		id, string(body), in.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert interaction: %w", err)
	}
	return id, nil
}

func (s *SQLite) All(ctx context.Context) ([]domain.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY seq`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if in, ok := decodeJSON(id, []byte(body), s.loc, s.logger); ok {
			out = append(out, in)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}
