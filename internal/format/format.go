package format

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // Fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

func (m Mode) String() string {
	if m == Markdown {
		return "markdown"
	}
	return "ascii"
}

// ParseMode maps "ascii" or "markdown" (also "md") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, fmt.Errorf("unknown table format %q (want ascii|markdown)", s)
}

// Table is built once and rendered in the Mode it was created with.
type Table struct {
	writer table.Writer
	mode   Mode
}

// NewTable returns an empty table rendering in m.
func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &Table{writer: w, mode: m}
}

// Header sets the column headers.
func (t *Table) Header(cols ...string) {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	t.writer.AppendHeader(row)
}

// Row appends a data row. Values are converted to strings via fmt Sprint.
func (t *Table) Row(vals ...any) {
	t.writer.AppendRow(table.Row(vals))
}

// Footer appends a footer row (e.g. totals).
func (t *Table) Footer(vals ...any) {
	t.writer.AppendFooter(table.Row(vals))
}

// AlignRight right-aligns the given 1-based columns, for numbers.
func (t *Table) AlignRight(cols ...int) {
	cfgs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		cfgs[i] = table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight}
	}
	t.writer.SetColumnConfigs(cfgs)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.writer.Length() }

func (t *Table) String() string {
	if t.mode == Markdown {
		return t.writer.RenderMarkdown()
	}
	return t.writer.Render()
}
