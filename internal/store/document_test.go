package store

import (
	"testing"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

func TestToDocumentFormatsInLocation(t *testing.T) {
	in := sample("Ana", time.Date(2024, 3, 10, 17, 30, 0, 0, time.UTC))
	doc := toDocument(in, saoPaulo)

	if doc.CreatedAt != "2024-03-10 14:30:00" {
		t.Errorf("CreatedAt = %q, want local wall time", doc.CreatedAt)
	}
	if doc.Applied != "Sim" {
		t.Errorf("Applied = %q, want Sim", doc.Applied)
	}

	m := doc.toMap()
	for _, key := range []string{
		FieldCreatedAt, FieldSubmitterName, FieldInputText, FieldArchetype,
		FieldReaction, FieldStrategy, FieldTip, FieldApplied,
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("toMap() missing %q", key)
		}
	}
}

func TestFromMapNativeTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 10, 17, 30, 0, 500, time.UTC)
	got, err := fromMap("doc-1", map[string]any{
		FieldCreatedAt: ts,
		FieldApplied:   "yes",
		FieldArchetype: "O Guerreiro",
		FieldInputText: 42, // mistyped
	}, saoPaulo)
	if err != nil {
		t.Fatalf("fromMap: %v", err)
	}
	if !got.CreatedAt.Equal(ts.Truncate(time.Second)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	if got.CreatedAt.Location() != saoPaulo {
		t.Errorf("location = %v, want %v", got.CreatedAt.Location(), saoPaulo)
	}
	if got.Applied != domain.AppliedYes {
		t.Errorf("Applied = %q, want Sim", got.Applied)
	}
	if got.InputText != "" {
		t.Errorf("InputText = %q, want empty for mistyped field", got.InputText)
	}
	if got.SubmitterName != domain.NotInformed {
		t.Errorf("SubmitterName = %q, want %q", got.SubmitterName, domain.NotInformed)
	}
}

func TestFromMapKeepsUnknownApplied(t *testing.T) {
	got, err := fromMap("doc-2", map[string]any{
		FieldCreatedAt: "2024-01-01 00:00:00",
		FieldApplied:   "talvez",
	}, saoPaulo)
	if err != nil {
		t.Fatalf("fromMap: %v", err)
	}
	if got.Applied != "talvez" {
		t.Errorf("Applied = %q, want raw value", got.Applied)
	}
}

func TestFromMapTimestampErrors(t *testing.T) {
	cases := map[string]map[string]any{
		"missing":  {FieldArchetype: "O Medroso"},
		"bad text": {FieldCreatedAt: "10/03/2024"},
		"number":   {FieldCreatedAt: 1710000000},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := fromMap("x", m, saoPaulo); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateCollection(t *testing.T) {
	for _, ok := range []string{"interacoes_vendedores", "_x", "A1"} {
		if err := validateCollection(ok); err != nil {
			t.Errorf("validateCollection(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a-b", "a b", "9x"} {
		if err := validateCollection(bad); err == nil {
			t.Errorf("validateCollection(%q) succeeded", bad)
		}
	}
}
