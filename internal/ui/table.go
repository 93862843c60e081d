package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table renders rows as aligned columns inside a rounded border. A row can
// be marked, which prints CurrentMarker in front of it.
type Table struct {
	Columns []string
	rows    [][]string
	marked  []bool
}

// NewTable creates a table with the given column titles.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// AddRow appends a row. Missing cells render empty and extra cells are
// dropped.
func (t *Table) AddRow(cells ...string) *Table {
	return t.add(false, cells)
}

// AddMarkedRow appends a highlighted row.
func (t *Table) AddMarkedRow(cells ...string) *Table {
	return t.add(true, cells)
}

func (t *Table) add(marked bool, cells []string) *Table {
	mark := ""
	if marked {
		mark = CurrentMarker
	}
	// Column 0 holds the marker.
	row := make([]string, len(t.Columns)+1)
	row[0] = mark
	copy(row[1:], cells)
	t.rows = append(t.rows, row)
	t.marked = append(t.marked, marked)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Render returns the table as a string: top border, title line, divider,
// one line per row, bottom border.
func (t *Table) Render() string {
	cell := plain.Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(muted).
		BorderColumn(false).
		Headers(append([]string{""}, t.Columns...)...).
		Rows(t.rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle.Padding(0, 1)
			case row >= 0 && row < len(t.marked) && t.marked[row]:
				return TableMarkStyle.Padding(0, 1)
			}
			return cell
		}).
		Render()
}

func (t *Table) String() string {
	return t.Render()
}
