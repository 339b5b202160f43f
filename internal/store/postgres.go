package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// Postgres stores each interaction as a JSONB document in one table.
type Postgres struct {
	pool   *pgxpool.Pool
	table  string
	loc    *time.Location
	logger *slog.Logger
}

func NewPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{
		pool:   pool,
		table:  pgx.Identifier{opts.Collection}.Sanitize(),
		loc:    opts.Location,
		logger: opts.Logger,
	}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         UUID PRIMARY KEY,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.table))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Create inserts one document under a new id.
func (p *Postgres) Create(ctx context.Context, in domain.Interaction) (string, error) {
	in = stamp(in)
	id := uuid.New()

	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, doc, created_at)
		VALUES ($1, $2, $3)`, p.table),
		id, toDocument(in, p.loc), in.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert interaction: %w", err)
	}
	return id.String(), nil
}

// All streams every document in insertion order.
func (p *Postgres) All(ctx context.Context) ([]domain.Interaction, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`
		SELECT id::text, doc FROM %s ORDER BY created_at, id`, p.table))
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if in, ok := decodeJSON(id, body, p.loc, p.logger); ok {
			out = append(out, in)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}
