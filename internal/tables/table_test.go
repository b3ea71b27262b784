package tables

import (
	"strings"
	"testing"
)

func TestFromGrid_PadsAndTruncates(t *testing.T) {
	g := Grid{
		{"Name", "Qty"},
		{"Apple"},
		{"Pear", "12", "extra"},
	}
	var flat strings.Builder
	tbl, ok := FromGrid(g, &flat)
	if !ok {
		t.Fatal("expected table")
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	for i, row := range tbl.Rows {
		if row.Row != i+1 {
			t.Errorf("row %d: expected index %d, got %d", i, i+1, row.Row)
		}
		if len(row.Cells) != 2 {
			t.Errorf("row %d: expected 2 cells, got %d", i, len(row.Cells))
		}
		for c, cell := range row.Cells {
			if cell.Column != c+1 || cell.HeightUnits != 1 || cell.WidthUnits != 1 {
				t.Errorf("row %d cell %d: unexpected %+v", i, c, cell)
			}
		}
	}
	if got := tbl.Rows[1].Cells[1].Text; got != "" {
		t.Errorf("expected padded empty cell, got %q", got)
	}
	if got := flat.String(); got != "Name Qty Apple  Pear 12 " {
		t.Errorf("unexpected flattened text %q", got)
	}
}

func TestFromGrid_CleansCells(t *testing.T) {
	tbl, ok := FromGrid(Grid{{"  two\nlines  ", "x"}}, nil)
	if !ok {
		t.Fatal("expected table")
	}
	if got := tbl.Rows[0].Cells[0].Text; got != "two lines" {
		t.Errorf("expected cleaned cell, got %q", got)
	}
}

func TestFromGrid_NoColumns(t *testing.T) {
	for _, g := range []Grid{nil, {}, {{}}, {{}, {"a"}}} {
		if _, ok := FromGrid(g, nil); ok {
			t.Errorf("expected no table for %v", g)
		}
	}
}

func TestTable_ColCount(t *testing.T) {
	if (Table{}).ColCount() != 0 {
		t.Error("expected 0 columns for empty table")
	}
	tbl, _ := FromGrid(Grid{{"a", "b", "c"}}, nil)
	if tbl.ColCount() != 3 {
		t.Errorf("expected 3 columns, got %d", tbl.ColCount())
	}
}
