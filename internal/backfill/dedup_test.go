package backfill

import (
	"testing"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

func TestSeenIndex(t *testing.T) {
	base := time.Date(2024, 2, 11, 10, 0, 0, 0, time.UTC)
	idx := newSeenIndex([]domain.Interaction{
		{InputText: "está caro", CreatedAt: base},
	})

	tests := []struct {
		name string
		rec  domain.Interaction
		want bool
	}{
		{"same instant", domain.Interaction{InputText: "está caro", CreatedAt: base}, true},
		{"within window after", domain.Interaction{InputText: "está caro", CreatedAt: base.Add(time.Second)}, true},
		{"within window before", domain.Interaction{InputText: "está caro", CreatedAt: base.Add(-time.Second)}, true},
		{"outside window", domain.Interaction{InputText: "está caro", CreatedAt: base.Add(2 * time.Second)}, false},
		{"different text", domain.Interaction{InputText: "vou pensar", CreatedAt: base}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := idx.seen(tt.rec); got != tt.want {
				t.Errorf("seen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeenIndex_Add(t *testing.T) {
	idx := newSeenIndex(nil)
	rec := domain.Interaction{InputText: "sem tempo", CreatedAt: time.Now()}
	if idx.seen(rec) {
		t.Fatal("empty index should not match")
	}
	idx.add(rec)
	if !idx.seen(rec) {
		t.Error("added record should match")
	}
}
