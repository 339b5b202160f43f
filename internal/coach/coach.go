// Package coach runs the submitter flow: classify an objection, hold the
// result as a draft, and persist it once the submitter says whether they
// applied the strategy.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/classifier"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/draft"
	"github.com/redeelle/rodrigo-flow-app/internal/hermes"
)

// ErrInvalidApplied is returned when the applied flag is neither yes nor no.
var ErrInvalidApplied = errors.New("applied must be Sim or Não")

// Recorder is the write side of the interaction store.
type Recorder interface {
	Create(ctx context.Context, in domain.Interaction) (string, error)
}

// Publisher emits events. It may be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

// Service orchestrates the classify, confirm and persist steps.
type Service struct {
	classifier *classifier.Classifier
	drafts     *draft.Store
	store      Recorder
	publisher  Publisher
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
}

// New builds the service. Confirmed interactions are stamped in loc, or the
// local zone when loc is nil.
func New(cls *classifier.Classifier, drafts *draft.Store, st Recorder, pub Publisher, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		classifier: cls,
		drafts:     drafts,
		store:      st,
		publisher:  pub,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

// Analyze classifies text and stores the result as a draft awaiting
// confirmation. A blank name is recorded as not informed. Blank text fails
// with classifier.ErrEmptyInput before any model call.
func (s *Service) Analyze(ctx context.Context, name, text string) (*draft.Draft, error) {
	res, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	d := s.drafts.Put(text, domain.NormalizeName(name), *res)
	s.logger.Info("draft created",
		"draft_id", d.ID,
		"archetype", res.Archetype,
		"partial", res.Partial(),
	)
	return d, nil
}

// Draft returns a pending draft without consuming it.
func (s *Service) Draft(id string) (*draft.Draft, error) {
	return s.drafts.Get(id)
}

// Confirm consumes a draft and writes it as one interaction. Confirming the
// same draft twice writes once; the second call returns draft.ErrNotFound.
// When the write fails the draft is put back so the submitter can retry.
func (s *Service) Confirm(ctx context.Context, draftID string, applied domain.Applied) (*domain.Interaction, error) {
	if applied != domain.AppliedYes && applied != domain.AppliedNo {
		return nil, ErrInvalidApplied
	}

	d, err := s.drafts.Take(draftID)
	if err != nil {
		return nil, err
	}

	in := domain.Interaction{
		InputText:        d.InputText,
		Archetype:        d.Result.Archetype,
		ReactionAnalysis: d.Result.ReactionAnalysis,
		StrategyScript:   d.Result.StrategyScript,
		CoachingTip:      d.Result.CoachingTip,
		Applied:          applied,
		SubmitterName:    d.SubmitterName,
		CreatedAt:        s.now().In(s.loc).Truncate(time.Second),
	}

	id, err := s.store.Create(ctx, in)
	if err != nil {
		s.drafts.Restore(d)
		s.logger.Error("failed to persist interaction", "draft_id", d.ID, "error", err)
		return nil, fmt.Errorf("persist interaction: %w", err)
	}
	in.ID = id

	s.logger.Info("interaction recorded",
		"id", id,
		"draft_id", d.ID,
		"archetype", in.Archetype,
		"applied", string(in.Applied),
	)

	if s.publisher != nil {
		evt := hermes.NewInteractionRecorded(in, d.Result.ArchetypeKnown, d.Result.Partial())
		if err := s.publisher.Publish(hermes.SubjectInteractionRecorded, evt); err != nil {
			s.logger.Error("failed to publish interaction recorded", "id", id, "error", err)
		}
	}

	return &in, nil
}

// Discard drops a draft without writing anything.
func (s *Service) Discard(draftID string) {
	s.drafts.Discard(draftID)
	s.logger.Info("draft discarded", "draft_id", draftID)
}

// PendingDrafts returns how many drafts await confirmation.
func (s *Service) PendingDrafts() int {
	return s.drafts.Len()
}
