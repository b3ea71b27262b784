// Package tables detects tables on PDF pages and normalizes them into
// row/cell records.
package tables

import "strings"

// Grid is a raw cell matrix as produced by a Detector, top row first.
type Grid [][]string

// Cell is one normalized table cell. Column is 1-based.
type Cell struct {
	Column      int    `json:"column"`
	Text        string `json:"text"`
	HeightUnits int    `json:"height_units"`
	WidthUnits  int    `json:"width_units"`
}

// Row is one table row. Row is 1-based.
type Row struct {
	Row   int    `json:"row"`
	Cells []Cell `json:"cells"`
}

// Table is a normalized table with a uniform column count across rows.
type Table struct {
	Rows []Row `json:"rows"`
}

// ColCount returns the number of columns in the first row.
func (t Table) ColCount() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Cells)
}

// FromGrid converts a raw grid into a Table. The column count is taken from
// the first row; shorter rows are padded with empty cells and longer rows are
// cut. Every cell's text followed by a space is appended to flat.
// It reports false when the grid has no columns.
func FromGrid(g Grid, flat *strings.Builder) (Table, bool) {
	if len(g) == 0 || len(g[0]) == 0 {
		return Table{}, false
	}
	cols := len(g[0])

	t := Table{Rows: make([]Row, 0, len(g))}
	for i, values := range g {
		row := Row{Row: i + 1, Cells: make([]Cell, cols)}
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(values) {
				text = cleanCell(values[c])
			}
			if flat != nil {
				flat.WriteString(text)
				flat.WriteByte(' ')
			}
			row.Cells[c] = Cell{
				Column:      c + 1,
				Text:        text,
				HeightUnits: 1,
				WidthUnits:  1,
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, true
}

func cleanCell(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
