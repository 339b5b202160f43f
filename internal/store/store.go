package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// Store persists interactions to one schemaless collection.
//
// Create writes a single new document with a store-generated id; there is no
// update or delete path. All returns every document in the collection.
type Store interface {
	Create(ctx context.Context, in domain.Interaction) (string, error)
	All(ctx context.Context) ([]domain.Interaction, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverSQLite    = "sqlite"
)

type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Collection  string
	Location    *time.Location
	Logger      *slog.Logger

	// FirestoreCredentials is the service-account JSON bundle.
	FirestoreCredentials []byte
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if err := validateCollection(opts.Collection); err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch opts.Driver {
	case DriverPostgres:
		return NewPostgres(ctx, opts)
	case DriverFirestore:
		return NewFirestore(ctx, opts)
	case DriverSQLite, "":
		return OpenSQLite(opts)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// stamp fills a missing timestamp and drops sub-second precision.
func stamp(in domain.Interaction) domain.Interaction {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	in.CreatedAt = in.CreatedAt.Truncate(time.Second)
	return in
}

// decodeJSON decodes a JSON document body. Documents that cannot be decoded
// are skipped and logged so one bad row does not hide the rest.
func decodeJSON(id string, body []byte, loc *time.Location, logger *slog.Logger) (domain.Interaction, bool) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		logger.Warn("skipping undecodable document", "id", id, "error", err)
		return domain.Interaction{}, false
	}
	return decodeMap(id, m, loc, logger)
}

func decodeMap(id string, m map[string]any, loc *time.Location, logger *slog.Logger) (domain.Interaction, bool) {
	in, err := fromMap(id, m, loc)
	if err != nil {
		logger.Warn("skipping undecodable document", "id", id, "error", err)
		return domain.Interaction{}, false
	}
	return in, true
}
