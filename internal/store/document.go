package store

import (
	"fmt"
	"regexp"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// Document field names, shared by every backend and by the CSV export.
const (
	FieldCreatedAt     = "data_hora"
	FieldSubmitterName = "nome_vendedor"
	FieldInputText     = "input_vendedor"
	FieldArchetype     = "perfil_ia"
	FieldReaction      = "reacao_ia"
	FieldStrategy      = "estrategia_ia"
	FieldTip           = "mini_treinamento_ia"
	FieldApplied       = "aplicou_estrategia"
)

// DefaultCollection is the collection (or table) interactions are written to.
const DefaultCollection = "interacoes_vendedores"

var collectionName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func validateCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// document is the stored shape of an interaction.
type document struct {
	CreatedAt     string `json:"data_hora"`
	SubmitterName string `json:"nome_vendedor"`
	InputText     string `json:"input_vendedor"`
	Archetype     string `json:"perfil_ia"`
	Reaction      string `json:"reacao_ia"`
	Strategy      string `json:"estrategia_ia"`
	Tip           string `json:"mini_treinamento_ia"`
	Applied       string `json:"aplicou_estrategia"`
}

func toDocument(in domain.Interaction, loc *time.Location) document {
	return document{
		CreatedAt:     in.CreatedAt.In(loc).Format(domain.TimeLayout),
		SubmitterName: in.SubmitterName,
		InputText:     in.InputText,
		Archetype:     in.Archetype,
		Reaction:      in.ReactionAnalysis,
		Strategy:      in.StrategyScript,
		Tip:           in.CoachingTip,
		Applied:       string(in.Applied),
	}
}

func (d document) toMap() map[string]any {
	return map[string]any{
		FieldCreatedAt:     d.CreatedAt,
		FieldSubmitterName: d.SubmitterName,
		FieldInputText:     d.InputText,
		FieldArchetype:     d.Archetype,
		FieldReaction:      d.Reaction,
		FieldStrategy:      d.Strategy,
		FieldTip:           d.Tip,
		FieldApplied:       d.Applied,
	}
}

// fromMap converts a schemaless document into an Interaction. Absent or
// mistyped fields decode as empty values; an unparseable timestamp is an error.
func fromMap(id string, m map[string]any, loc *time.Location) (domain.Interaction, error) {
	str := func(key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}

	out := domain.Interaction{
		ID:               id,
		InputText:        str(FieldInputText),
		Archetype:        str(FieldArchetype),
		ReactionAnalysis: str(FieldReaction),
		StrategyScript:   str(FieldStrategy),
		CoachingTip:      str(FieldTip),
		SubmitterName:    str(FieldSubmitterName),
	}
	if out.SubmitterName == "" {
		out.SubmitterName = domain.NotInformed
	}

	applied := str(FieldApplied)
	if a, ok := domain.ParseApplied(applied); ok {
		out.Applied = a
	} else {
		out.Applied = domain.Applied(applied)
	}

	switch v := m[FieldCreatedAt].(type) {
	case time.Time:
		out.CreatedAt = v.In(loc).Truncate(time.Second)
	case string:
		t, err := time.ParseInLocation(domain.TimeLayout, v, loc)
		if err != nil {
			return domain.Interaction{}, fmt.Errorf("document %s: parse %s: %w", id, FieldCreatedAt, err)
		}
		out.CreatedAt = t
	default:
		return domain.Interaction{}, fmt.Errorf("document %s: missing %s", id, FieldCreatedAt)
	}

	return out, nil
}
