package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// ErrCredentials reports an absent or malformed service-account bundle.
var ErrCredentials = errors.New("invalid firestore service account key")

// Firestore stores interactions in a Cloud Firestore collection.
type Firestore struct {
	client     *firestore.Client
	collection string
	loc        *time.Location
	logger     *slog.Logger
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ProjectID validates a service-account bundle and returns its project id.
func ProjectID(credentials []byte) (string, error) {
	if len(credentials) == 0 {
		return "", fmt.Errorf("%w: empty", ErrCredentials)
	}
	var sa serviceAccount
	if err := json.Unmarshal(credentials, &sa); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return "", fmt.Errorf("%w: project_id, client_email and private_key are required", ErrCredentials)
	}
	return sa.ProjectID, nil
}

func NewFirestore(ctx context.Context, opts Options) (*Firestore, error) {
	projectID, err := ProjectID(opts.FirestoreCredentials)
	if err != nil {
		return nil, err
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsJSON(opts.FirestoreCredentials))
	if err != nil {
		return nil, fmt.Errorf("connect to firestore: %w", err)
	}

	return &Firestore{
		client:     client,
		collection: opts.Collection,
		loc:        opts.Location,
		logger:     opts.Logger,
	}, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

// Create adds one document with a Firestore-generated id.
func (f *Firestore) Create(ctx context.Context, in domain.Interaction) (string, error) {
	in = stamp(in)
	ref, _, err := f.client.Collection(f.collection).Add(ctx, toDocument(in, f.loc).toMap())
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return ref.ID, nil
}

// All streams every document in the collection.
func (f *Firestore) All(ctx context.Context) ([]domain.Interaction, error) {
	iter := f.client.Collection(f.collection).Documents(ctx)
	defer iter.Stop()

	var out []domain.Interaction
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stream documents: %w", err)
		}
		if in, ok := decodeMap(snap.Ref.ID, snap.Data(), f.loc, f.logger); ok {
			out = append(out, in)
		}
	}
	return out, nil
}
