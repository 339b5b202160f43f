package domain

import (
	"strings"
	"time"
)

// Sentinel values written in place of fields that were not provided or not parsed.
const (
	NotIdentified = "Não identificado"
	NotInformed   = "Não informado"
)

// TimeLayout is the second-precision layout used for the data_hora document field.
const TimeLayout = "2006-01-02 15:04:05"

// Applied records whether the submitter used the suggested strategy.
type Applied string

const (
	AppliedYes Applied = "Sim"
	AppliedNo  Applied = "Não"
)

// ParseApplied accepts the stored values plus English and unaccented forms.
func ParseApplied(s string) (Applied, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "yes", "y", "true", "1":
		return AppliedYes, true
	case "não", "nao", "no", "n", "false", "0":
		return AppliedNo, true
	default:
		return "", false
	}
}

// Interaction is one submit-classify-confirm cycle. It is written once and never mutated.
type Interaction struct {
	ID               string    `json:"id,omitempty"`
	InputText        string    `json:"input_text"`
	Archetype        string    `json:"archetype"`
	ReactionAnalysis string    `json:"reaction_analysis"`
	StrategyScript   string    `json:"strategy_script"`
	CoachingTip      string    `json:"coaching_tip"`
	Applied          Applied   `json:"applied"`
	SubmitterName    string    `json:"submitter_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// NormalizeName returns NotInformed for a blank submitter name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return NotInformed
	}
	return name
}

// Named reports whether the interaction carries a real submitter name.
func (i Interaction) Named() bool {
	return i.SubmitterName != "" && i.SubmitterName != NotInformed
}
