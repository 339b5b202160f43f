package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/draft"
	"github.com/redeelle/rodrigo-flow-app/internal/hermes"
	"github.com/redeelle/rodrigo-flow-app/internal/llm"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

const medrosoResponse = `**RODRIGO.FLOW™ ANALISA:**
**1. Perfil Detectado:** O Medroso
**2. Sua Reação:** Você recuou diante da objeção de preço.
**3. A Estratégia Que Funciona:** "Entendo. O que faria esse investimento valer a pena para você?"
**4. Aja Como Um Guerreiro (Dica Essencial!):** Sustente o silêncio antes de responder.`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *recordingPublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subject != hermes.SubjectInteractionRecorded {
		return errors.New("unexpected subject " + subject)
	}
	p.events = append(p.events, data)
	return p.err
}

type failingStore struct{ err error }

func (f failingStore) Create(context.Context, domain.Interaction) (string, error) {
	return "", f.err
}

type harness struct {
	svc    *Service
	llm    *fakeLLM
	store  *store.SQLite
	drafts *draft.Store
	pub    *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.OpenSQLite(store.Options{SQLitePath: ":memory:", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	drafts := draft.NewStore(time.Minute, time.Hour)
	t.Cleanup(drafts.Close)

	fake := &fakeLLM{reply: medrosoResponse}
	pub := &recordingPublisher{}
	svc := New(classifier.New(fake, discardLogger()), drafts, st, pub, time.UTC, discardLogger())
	return &harness{svc: svc, llm: fake, store: st, drafts: drafts, pub: pub}
}

func TestAnalyzeAndConfirm_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 10, 14, 30, 15, 999, time.Local)
	h.svc.now = func() time.Time { return fixed }

	d, err := h.svc.Analyze(ctx, "", "Cliente disse que estava caro e eu recuei.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if d.Result.Archetype != "O Medroso" {
		t.Errorf("expected archetype O Medroso, got %q", d.Result.Archetype)
	}
	if d.SubmitterName != domain.NotInformed {
		t.Errorf("expected submitter %q, got %q", domain.NotInformed, d.SubmitterName)
	}

	in, err := h.svc.Confirm(ctx, d.ID, domain.AppliedNo)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if in.ID == "" {
		t.Error("expected store-generated id")
	}

	records, err := h.store.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Applied != domain.AppliedNo {
		t.Errorf("expected applied Não, got %q", got.Applied)
	}
	if got.SubmitterName != domain.NotInformed {
		t.Errorf("expected submitter %q, got %q", domain.NotInformed, got.SubmitterName)
	}
	if got.InputText != "Cliente disse que estava caro e eu recuei." {
		t.Errorf("input text changed: %q", got.InputText)
	}
	if got.Archetype != "O Medroso" || got.CoachingTip == "" || got.StrategyScript == "" || got.ReactionAnalysis == "" {
		t.Errorf("unexpected record %+v", got)
	}
	if !got.CreatedAt.Equal(fixed.Truncate(time.Second)) {
		t.Errorf("expected created_at %v, got %v", fixed.Truncate(time.Second), got.CreatedAt)
	}

	if len(h.pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(h.pub.events))
	}
	evt := h.pub.events[0].(hermes.InteractionRecorded)
	if evt.ID != in.ID || !evt.ArchetypeKnown || evt.Partial {
		t.Errorf("unexpected event %+v", evt)
	}
}

func TestConfirm_StampsInConfiguredZone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	h.svc.loc = saoPaulo
	h.svc.now = func() time.Time { return time.Date(2024, 3, 11, 1, 30, 0, 0, time.UTC) }

	d, err := h.svc.Analyze(ctx, "Ana", "Está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	in, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if in.CreatedAt.Location() != saoPaulo {
		t.Errorf("created_at zone = %v, want %v", in.CreatedAt.Location(), saoPaulo)
	}
	if got := in.CreatedAt.Format(domain.TimeLayout); got != "2024-03-10 22:30:00" {
		t.Errorf("created_at = %s, want 2024-03-10 22:30:00", got)
	}

	evt := h.pub.events[0].(hermes.InteractionRecorded)
	if evt.CreatedAt.Location() != saoPaulo || !evt.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("event created_at = %v, want %v", evt.CreatedAt, in.CreatedAt)
	}
}

func TestConfirm_Twice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.svc.Analyze(ctx, "Ana", "vou pensar")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); !errors.Is(err, draft.ErrNotFound) {
		t.Errorf("second Confirm: expected ErrNotFound, got %v", err)
	}

	records, _ := h.store.All(ctx)
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestConfirm_ConcurrentWritesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.svc.Analyze(ctx, "Ana", "sem orçamento")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, draft.ErrNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful confirm, got %d", ok)
	}
	records, _ := h.store.All(ctx)
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Analyze(context.Background(), "Ana", "   ")
	if !errors.Is(err, classifier.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if h.llm.calls != 0 {
		t.Errorf("expected no llm call, got %d", h.llm.calls)
	}
	if h.drafts.Len() != 0 {
		t.Errorf("expected no draft, got %d", h.drafts.Len())
	}
}

func TestAnalyze_LLMError(t *testing.T) {
	h := newHarness(t)
	h.llm.err = errors.New("rate limited")

	if _, err := h.svc.Analyze(context.Background(), "Ana", "está caro"); err == nil {
		t.Fatal("expected error")
	}
	if h.drafts.Len() != 0 {
		t.Errorf("expected no draft, got %d", h.drafts.Len())
	}
}

func TestConfirm_InvalidAppliedKeepsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.svc.Analyze(ctx, "Ana", "está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, "talvez"); !errors.Is(err, ErrInvalidApplied) {
		t.Fatalf("expected ErrInvalidApplied, got %v", err)
	}
	if _, err := h.svc.Draft(d.ID); err != nil {
		t.Errorf("draft should still be pending: %v", err)
	}
}

func TestConfirm_StoreFailureRestoresDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc.store = failingStore{err: errors.New("permission denied")}

	d, err := h.svc.Analyze(ctx, "Ana", "está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := h.svc.Draft(d.ID); err != nil {
		t.Errorf("draft should be restored after a failed write: %v", err)
	}
	if len(h.pub.events) != 0 {
		t.Errorf("expected no event, got %d", len(h.pub.events))
	}
}

func TestConfirm_PublishFailureStillRecords(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.pub.err = errors.New("nats down")

	d, err := h.svc.Analyze(ctx, "Ana", "está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	records, _ := h.store.All(ctx)
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestConfirm_NilPublisher(t *testing.T) {
	h := newHarness(t)
	h.svc.publisher = nil
	ctx := context.Background()

	d, err := h.svc.Analyze(ctx, "Ana", "está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.svc.Analyze(ctx, "Ana", "está caro")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	h.svc.Discard(d.ID)
	if _, err := h.svc.Confirm(ctx, d.ID, domain.AppliedYes); !errors.Is(err, draft.ErrNotFound) {
		t.Errorf("expected ErrNotFound after discard, got %v", err)
	}
}
