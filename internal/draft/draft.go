// Package draft keeps classified-but-unconfirmed interactions between the
// classify step and the applied/not-applied confirmation.
package draft

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
)

// ErrNotFound is returned for unknown, expired or already confirmed drafts.
var ErrNotFound = errors.New("draft not found")

// DefaultTTL bounds how long an unconfirmed draft is kept.
const DefaultTTL = 30 * time.Minute

// Draft is the transient state of one interaction before it is persisted.
type Draft struct {
	ID            string            `json:"id"`
	InputText     string            `json:"input_text"`
	SubmitterName string            `json:"submitter_name"`
	Result        classifier.Result `json:"result"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
}

// Store is an in-memory, TTL-bounded set of drafts.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	drafts map[string]*Draft

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewStore starts a store whose janitor sweeps expired drafts every interval.
// Call Close to stop the janitor.
func NewStore(ttl, interval time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = ttl / 2
	}
	s := &Store{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]*Draft),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.janitor(interval)
	return s
}

// Put stores a new draft and returns it with its id and expiry set.
func (s *Store) Put(input, name string, res classifier.Result) *Draft {
	now := s.now()
	d := &Draft{
		ID:            uuid.NewString(),
		InputText:     input,
		SubmitterName: name,
		Result:        res,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}

	s.mu.Lock()
	s.drafts[d.ID] = d
	s.mu.Unlock()

	cp := *d
	return &cp
}

// Get returns a copy of a live draft.
func (s *Store) Get(id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok || !s.now().Before(d.ExpiresAt) {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// Take removes and returns a live draft. Only one caller can take a given draft.
func (s *Store) Take(id string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.drafts, id)
	if !s.now().Before(d.ExpiresAt) {
		return nil, ErrNotFound
	}
	return d, nil
}

// Restore puts a taken draft back, keeping its original expiry.
func (s *Store) Restore(d *Draft) {
	s.mu.Lock()
	s.drafts[d.ID] = d
	s.mu.Unlock()
}

// Discard drops a draft. Unknown ids are ignored.
func (s *Store) Discard(id string) {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
}

// Len returns the number of drafts held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Sweep removes expired drafts and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, d := range s.drafts {
		if !now.Before(d.ExpiresAt) {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

// Close stops the janitor. It is safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
