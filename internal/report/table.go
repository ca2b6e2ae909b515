// Package report assembles per-person time totals into the export table.
package report

import (
	"errors"
	"strconv"
	"strings"

	"example.com/timereport/internal/domain"
)

// ErrTableFrozen is returned when appending to a builder that was already finalized.
var ErrTableFrozen = errors.New("report table already finalized")

// Columns is the fixed header of the report table.
var Columns = []string{"id", "display_name", "placeholder", "on_campus", "off_campus", "social_practice", "total"}

// Row is one line of the report.
type Row struct {
	ID          string
	DisplayName string
	Placeholder string
	Totals      domain.TimeTotals
}

// Record renders the row as text fields in column order.
func (r Row) Record() []string {
	return []string{
		r.ID,
		r.DisplayName,
		r.Placeholder,
		FormatFloat(r.Totals.OnCampus),
		FormatFloat(r.Totals.OffCampus),
		FormatFloat(r.Totals.SocialPractice),
		FormatFloat(r.Totals.Total),
	}
}

// Table is a finalized, read-only report.
type Table struct {
	rows []Row
}

// Header returns a copy of the column names.
func (t Table) Header() []string {
	out := make([]string, len(Columns))
	copy(out, Columns)
	return out
}

// Rows returns a copy of the rows in append order.
func (t Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len is the number of rows.
func (t Table) Len() int {
	return len(t.rows)
}

// Builder grows a report table one person at a time.
type Builder struct {
	rows   []Row
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds a row for a Present result. Absent results are ignored.
// Identities are not deduplicated.
func (b *Builder) Append(id, displayName string, result domain.Result) error {
	if b.frozen {
		return ErrTableFrozen
	}
	if !result.IsPresent() {
		return nil
	}
	b.rows = append(b.rows, Row{
		ID:          id,
		DisplayName: displayName,
		Totals:      result.Totals,
	})
	return nil
}

// Finalize freezes the builder and returns the table.
func (b *Builder) Finalize() Table {
	b.frozen = true
	rows := make([]Row, len(b.rows))
	copy(rows, b.rows)
	return Table{rows: rows}
}

// FormatFloat renders a number as decimal text that always carries a fractional part.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
