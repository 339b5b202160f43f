package classifier

import (
	"strings"

	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// Field identifies one of the four labelled lines of a coaching response.
type Field int

const (
	FieldArchetype Field = iota
	FieldReaction
	FieldStrategy
	FieldTip
)

var fieldLabels = [...]string{LabelArchetype, LabelReaction, LabelStrategy, LabelTip}

var fieldNames = [...]string{"archetype", "reaction_analysis", "strategy_script", "coaching_tip"}

func (f Field) Label() string  { return fieldLabels[f] }
func (f Field) String() string { return fieldNames[f] }

// Classification is the parsed form of a coaching response.
//
// Fields whose label never appears hold domain.NotIdentified and are listed in
// Missing. The archetype value is kept verbatim even when it is not a catalog
// label; ArchetypeKnown tells the two cases apart.
type Classification struct {
	Archetype        string  `json:"archetype"`
	ReactionAnalysis string  `json:"reaction_analysis"`
	StrategyScript   string  `json:"strategy_script"`
	CoachingTip      string  `json:"coaching_tip"`
	ArchetypeKnown   bool    `json:"archetype_known"`
	Missing          []Field `json:"-"`
}

// Partial reports whether at least one field fell back to the sentinel.
func (c Classification) Partial() bool {
	return len(c.Missing) > 0
}

// MissingNames returns the names of the missing fields.
func (c Classification) MissingNames() []string {
	names := make([]string, len(c.Missing))
	for i, f := range c.Missing {
		names[i] = f.String()
	}
	return names
}

// Parse extracts the four labelled fields from a raw response. It never fails.
func Parse(raw string) Classification {
	var values [len(fieldLabels)]string
	var found [len(fieldLabels)]bool

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		for i, label := range fieldLabels {
			if found[i] || !strings.HasPrefix(line, label) {
				continue
			}
			values[i] = strings.TrimSpace(strings.TrimPrefix(line, label))
			found[i] = true
			break
		}
	}

	var c Classification
	for i := range values {
		if !found[i] {
			values[i] = domain.NotIdentified
			c.Missing = append(c.Missing, Field(i))
		}
	}
	c.Archetype = values[FieldArchetype]
	c.ReactionAnalysis = values[FieldReaction]
	c.StrategyScript = values[FieldStrategy]
	c.CoachingTip = values[FieldTip]
	c.ArchetypeKnown = archetype.IsKnown(c.Archetype)
	return c
}
