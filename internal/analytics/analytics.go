// Package analytics turns stored interactions into the manager dashboard views.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redeelle/rodrigo-flow-app/internal/archetype"
	"github.com/redeelle/rodrigo-flow-app/internal/domain"
)

// DateLayout is the layout of range bounds in query strings and filenames.
const DateLayout = "2006-01-02"

// DefaultTopObjections is how many objection texts the report lists.
const DefaultTopObjections = 5

// Range is an inclusive span of calendar days. Start and End hold dates only.
type Range struct {
	Start time.Time
	End   time.Time
}

// Day takes the calendar date of t in t's location and returns it as
// midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewRange builds a range from two dates, swapping them when reversed.
func NewRange(start, end time.Time) Range {
	s, e := Day(start), Day(end)
	if e.Before(s) {
		s, e = e, s
	}
	return Range{Start: s, End: e}
}

// ParseRange parses YYYY-MM-DD bounds. An empty bound falls back to def.
func ParseRange(start, end string, def Range) (Range, error) {
	s, e := def.Start, def.End
	if start != "" {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			return Range{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		s = t
	}
	if end != "" {
		t, err := time.Parse(DateLayout, end)
		if err != nil {
			return Range{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		e = t
	}
	return NewRange(s, e), nil
}

// Contains reports whether t falls on a day inside the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) SingleDay() bool {
	return r.Start.Equal(r.End)
}

// Clamp limits r to the days covered by bounds. A range that does not
// overlap bounds is returned unchanged so it selects no records.
func (r Range) Clamp(bounds Range) Range {
	if r.End.Before(bounds.Start) || r.Start.After(bounds.End) {
		return r
	}
	s, e := r.Start, r.End
	if s.Before(bounds.Start) {
		s = bounds.Start
	}
	if e.After(bounds.End) {
		e = bounds.End
	}
	return Range{Start: s, End: e}
}

func (r Range) String() string {
	if r.SingleDay() {
		return r.Start.Format(DateLayout)
	}
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Filter keeps the records whose date falls inside r.
func Filter(records []domain.Interaction, r Range) []domain.Interaction {
	out := make([]domain.Interaction, 0, len(records))
	for _, rec := range records {
		if r.Contains(rec.CreatedAt) {
			out = append(out, rec)
		}
	}
	return out
}

// Bounds returns the first and last observed dates. ok is false for no records.
func Bounds(records []domain.Interaction) (r Range, ok bool) {
	for i, rec := range records {
		d := Day(rec.CreatedAt)
		if i == 0 {
			r = Range{Start: d, End: d}
			continue
		}
		if d.Before(r.Start) {
			r.Start = d
		}
		if d.After(r.End) {
			r.End = d
		}
	}
	return r, len(records) > 0
}

// Count is one labelled bar of a frequency chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ArchetypeFrequency counts records per archetype label, most frequent first.
func ArchetypeFrequency(records []domain.Interaction) []Count {
	return frequency(records, func(in domain.Interaction) string { return in.Archetype })
}

// TopObjections returns the n most frequent input texts, compared verbatim.
func TopObjections(records []domain.Interaction, n int) []Count {
	counts := frequency(records, func(in domain.Interaction) string { return in.InputText })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func frequency(records []domain.Interaction, key func(domain.Interaction) string) []Count {
	idx := make(map[string]int)
	var out []Count
	for _, rec := range records {
		k := key(rec)
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, Count{Label: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Rate summarises how often the suggested strategy was applied.
type Rate struct {
	Applied    int     `json:"applied"`
	NotApplied int     `json:"not_applied"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	HasApplied bool    `json:"has_applied"`
}

// ApplicationRate counts applied and not-applied records. Records with an
// unrecognised flag count toward Total only.
func ApplicationRate(records []domain.Interaction) Rate {
	var r Rate
	for _, rec := range records {
		switch rec.Applied {
		case domain.AppliedYes:
			r.Applied++
		case domain.AppliedNo:
			r.NotApplied++
		}
	}
	r.Total = len(records)
	r.Percent = percent(r.Applied, r.Total)
	r.HasApplied = r.Total > 0 && r.Applied > 0
	return r
}

// percent returns part/total*100 rounded to two decimals, or 0 for an empty total.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}

// SubmitterStats is one row of the per-submitter performance table.
type SubmitterStats struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Applied    int     `json:"applied"`
	NotApplied int     `json:"not_applied"`
	Percent    float64 `json:"percent"`
	Dominant   string  `json:"dominant_archetype"`
}

// Submitters aggregates named records per submitter, highest application
// percentage first. Anonymous records are excluded.
func Submitters(records []domain.Interaction) []SubmitterStats {
	groups := groupByName(records)
	out := make([]SubmitterStats, 0, len(groups))
	for _, g := range groups {
		s := SubmitterStats{Name: g.name, Total: len(g.records)}
		for _, rec := range g.records {
			switch rec.Applied {
			case domain.AppliedYes:
				s.Applied++
			case domain.AppliedNo:
				s.NotApplied++
			}
		}
		s.Percent = percent(s.Applied, s.Total)
		s.Dominant = dominant(g.records)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type nameGroup struct {
	name    string
	records []domain.Interaction
}

// groupByName groups named records, keeping first-seen order.
func groupByName(records []domain.Interaction) []nameGroup {
	idx := make(map[string]int)
	var out []nameGroup
	for _, rec := range records {
		if !rec.Named() {
			continue
		}
		i, ok := idx[rec.SubmitterName]
		if !ok {
			i = len(out)
			idx[rec.SubmitterName] = i
			out = append(out, nameGroup{name: rec.SubmitterName})
		}
		out[i].records = append(out[i].records, rec)
	}
	return out
}

// dominant returns the most frequent archetype; ties go to the one seen first.
func dominant(records []domain.Interaction) string {
	counts := make(map[string]int)
	best, bestN := "", 0
	for _, rec := range records {
		counts[rec.Archetype]++
	}
	for _, rec := range records {
		if n := counts[rec.Archetype]; n > bestN {
			best, bestN = rec.Archetype, n
		}
	}
	return best
}

// AlertMode selects which submitters appear in the alert table.
type AlertMode string

const (
	// AlertOccurrences lists every named submitter with at least one
	// non-ideal archetype in range.
	AlertOccurrences AlertMode = "occurrences"
	// AlertModal lists only submitters whose dominant archetype is non-ideal.
	AlertModal AlertMode = "modal"
)

func ParseAlertMode(s string) (AlertMode, error) {
	switch AlertMode(s) {
	case "", AlertOccurrences:
		return AlertOccurrences, nil
	case AlertModal:
		return AlertModal, nil
	default:
		return "", fmt.Errorf("unknown alert mode %q (want %q or %q)", s, AlertOccurrences, AlertModal)
	}
}

// AlertRow holds one submitter's non-ideal archetype counts.
type AlertRow struct {
	Submitter string         `json:"submitter"`
	Counts    map[string]int `json:"counts"`
	Total     int            `json:"total"`
}

// AlertTable is a submitter by archetype cross-tab of non-ideal occurrences.
type AlertTable struct {
	Mode       AlertMode  `json:"mode"`
	Archetypes []string   `json:"archetypes"`
	Rows       []AlertRow `json:"rows"`
}

func (a AlertTable) Empty() bool {
	return len(a.Rows) == 0
}

// Alerts builds the alert table from named records, rows ordered by total desc.
func Alerts(records []domain.Interaction, mode AlertMode) AlertTable {
	table := AlertTable{Mode: mode}
	columns := make(map[string]bool)

	for _, g := range groupByName(records) {
		if mode == AlertModal && dominant(g.records) == archetype.Ideal {
			continue
		}
		row := AlertRow{Submitter: g.name, Counts: make(map[string]int)}
		for _, rec := range g.records {
			if rec.Archetype == archetype.Ideal {
				continue
			}
			row.Counts[rec.Archetype]++
			row.Total++
			columns[rec.Archetype] = true
		}
		if row.Total > 0 {
			table.Rows = append(table.Rows, row)
		}
	}

	for name := range columns {
		table.Archetypes = append(table.Archetypes, name)
	}
	sort.Strings(table.Archetypes)
	sort.SliceStable(table.Rows, func(i, j int) bool {
		if table.Rows[i].Total != table.Rows[j].Total {
			return table.Rows[i].Total > table.Rows[j].Total
		}
		return table.Rows[i].Submitter < table.Rows[j].Submitter
	})
	return table
}

type Options struct {
	AlertMode     AlertMode
	TopObjections int
}

// Report is every dashboard view for one date range.
type Report struct {
	Range         Range                `json:"-"`
	Start         string               `json:"start"`
	End           string               `json:"end"`
	Empty         bool                 `json:"empty"`
	Records       []domain.Interaction `json:"records"`
	Archetypes    []Count              `json:"archetypes"`
	Application   Rate                 `json:"application"`
	Submitters    []SubmitterStats     `json:"submitters"`
	Alerts        AlertTable           `json:"alerts"`
	TopObjections []Count              `json:"top_objections"`
}

// Build filters records to r and computes every view. When nothing falls in
// range the report is Empty and the views are left unset.
func Build(records []domain.Interaction, r Range, opts Options) Report {
	if opts.AlertMode == "" {
		opts.AlertMode = AlertOccurrences
	}
	if opts.TopObjections <= 0 {
		opts.TopObjections = DefaultTopObjections
	}

	rep := Report{
		Range: r,
		Start: r.Start.Format(DateLayout),
		End:   r.End.Format(DateLayout),
	}
	filtered := Filter(records, r)
	if len(filtered) == 0 {
		rep.Empty = true
		return rep
	}

	rep.Records = NewestFirst(filtered)
	rep.Archetypes = ArchetypeFrequency(filtered)
	rep.Application = ApplicationRate(filtered)
	rep.Submitters = Submitters(filtered)
	rep.Alerts = Alerts(filtered, opts.AlertMode)
	rep.TopObjections = TopObjections(filtered, opts.TopObjections)
	return rep
}

// NewestFirst returns a copy of records sorted by CreatedAt descending.
func NewestFirst(records []domain.Interaction) []domain.Interaction {
	out := append([]domain.Interaction(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
