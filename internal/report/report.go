// Package report writes and reads the CSV export of stored interactions.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

// ContentType is served with CSV downloads.
const ContentType = "text/csv; charset=utf-8"

// Header is the column order of the export.
var Header = []string{
	store.FieldCreatedAt,
	store.FieldSubmitterName,
	store.FieldInputText,
	store.FieldArchetype,
	store.FieldReaction,
	store.FieldStrategy,
	store.FieldTip,
	store.FieldApplied,
}

// WriteCSV writes the header and one row per interaction, newest first.
// Timestamps are written in each record's own location.
func WriteCSV(w io.Writer, records []domain.Interaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range analytics.NewestFirst(records) {
		row := []string{
			rec.CreatedAt.Format(domain.TimeLayout),
			rec.SubmitterName,
			rec.InputText,
			rec.Archetype,
			rec.ReactionAnalysis,
			rec.StrategyScript,
			rec.CoachingTip,
			string(rec.Applied),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Filename names an export for the given range.
func Filename(r analytics.Range) string {
	if r.SingleDay() {
		return "rodrigo_flow_relatorio_" + r.Start.Format("20060102") + ".csv"
	}
	return "rodrigo_flow_relatorio_" + r.Start.Format("20060102") + "_" + r.End.Format("20060102") + ".csv"
}

// ErrHeader reports a CSV whose header lacks a required column.
var ErrHeader = errors.New("csv header missing column")

// ReadCSV parses an export back into interactions. Columns are matched by
// name so extra or reordered columns are accepted; data_hora is required.
// Timestamps are read in loc.
func ReadCSV(r io.Reader, loc *time.Location) ([]domain.Interaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrHeader)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	if _, ok := cols[store.FieldCreatedAt]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeader, store.FieldCreatedAt)
	}

	var out []domain.Interaction
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		get := func(field string) string {
			i, ok := cols[field]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		at, err := time.ParseInLocation(domain.TimeLayout, get(store.FieldCreatedAt), loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		applied := domain.Applied(get(store.FieldApplied))
		if a, ok := domain.ParseApplied(string(applied)); ok {
			applied = a
		}
		out = append(out, domain.Interaction{
			InputText:        get(store.FieldInputText),
			Archetype:        get(store.FieldArchetype),
			ReactionAnalysis: get(store.FieldReaction),
			StrategyScript:   get(store.FieldStrategy),
			CoachingTip:      get(store.FieldTip),
			Applied:          applied,
			SubmitterName:    domain.NormalizeName(get(store.FieldSubmitterName)),
			CreatedAt:        at,
		})
	}
	return out, nil
}
