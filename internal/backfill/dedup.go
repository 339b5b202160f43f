package backfill

import (
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// dedupWindow is the tolerance for matching timestamps of the same interaction
// across an export and the store. Exports carry second precision only.
const dedupWindow = 1 * time.Second

// seenIndex holds the timestamps of known interactions keyed by input text.
type seenIndex map[string][]time.Time

func newSeenIndex(records []domain.Interaction) seenIndex {
	idx := make(seenIndex, len(records))
	for _, rec := range records {
		idx.add(rec)
	}
	return idx
}

func (idx seenIndex) add(rec domain.Interaction) {
	idx[rec.InputText] = append(idx[rec.InputText], rec.CreatedAt)
}

// seen reports whether an interaction with the same input text exists
// within dedupWindow of rec.
func (idx seenIndex) seen(rec domain.Interaction) bool {
	for _, at := range idx[rec.InputText] {
		diff := rec.CreatedAt.Sub(at)
		if diff < 0 {
			diff = -diff
		}
		if diff <= dedupWindow {
			return true
		}
	}
	return false
}
