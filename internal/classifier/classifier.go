package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redeelle/rodrigo-flow-app/internal/llm"
)

// ErrEmptyInput is returned before any network call when the description is blank.
var ErrEmptyInput = errors.New("objection description is empty")

const maxTokens = 1024

type Classifier struct {
	llm    llm.Completer
	logger *slog.Logger
}

func New(c llm.Completer, logger *slog.Logger) *Classifier {
	return &Classifier{llm: c, logger: logger}
}

// Result carries the raw model output alongside its parsed form.
type Result struct {
	Raw string `json:"raw"`
	Classification
}

// Classify sends one description to the model and parses the coaching response.
func (c *Classifier) Classify(ctx context.Context, description string) (*Result, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyInput
	}

	c.logger.Info("classifying objection",
		"model", c.llm.Model(),
		"input_len", len(description),
	)

	raw, err := c.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: BuildPrompt(description)}},
		Temperature: Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm classification: %w", err)
	}

	parsed := Parse(raw)
	if parsed.Partial() || !parsed.ArchetypeKnown {
		c.logger.Warn("partial classification",
			"missing", parsed.MissingNames(),
			"archetype", parsed.Archetype,
			"archetype_known", parsed.ArchetypeKnown,
		)
	}

	c.logger.Info("classification complete", "archetype", parsed.Archetype)

	return &Result{Raw: raw, Classification: parsed}, nil
}
