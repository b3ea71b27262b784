package tables

import (
	"context"
	"fmt"
)

// StreamDetector finds tables without ruling lines by looking for
// consecutive text lines that break into several aligned columns of
// whitespace-separated segments.
type StreamDetector struct {
	src PageSource

	// RowTolerance is the baseline distance under which glyphs share a row.
	RowTolerance float64
	// ColumnGap is the minimum horizontal whitespace separating two cells.
	ColumnGap float64
	// ColumnTolerance is the distance under which segment starts share a
	// column.
	ColumnTolerance float64
	MinRows         int
	MinCols         int
}

func NewStreamDetector(src PageSource) *StreamDetector {
	return &StreamDetector{
		src:             src,
		RowTolerance:    lineTolerance,
		ColumnGap:       15,
		ColumnTolerance: 10,
		MinRows:         2,
		MinCols:         2,
	}
}

func (d *StreamDetector) Name() string { return "stream" }

type textSegment struct {
	X0, X1 float64
	Glyphs []Glyph
}

func (d *StreamDetector) Detect(ctx context.Context, path string, page int) ([]Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layout, err := d.src.Layout(path, page)
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	var (
		grids []Grid
		run   [][]textSegment
	)
	flush := func() {
		if len(run) >= d.MinRows {
			if g := d.grid(run); g != nil {
				grids = append(grids, g)
			}
		}
		run = nil
	}
	for _, ln := range groupLines(layout.Glyphs, d.RowTolerance) {
		segs := d.split(ln.Glyphs)
		if len(segs) < d.MinCols {
			flush()
			continue
		}
		run = append(run, segs)
	}
	flush()
	return grids, nil
}

// split breaks a line into segments wherever the gap between neighbouring
// glyphs reaches ColumnGap.
func (d *StreamDetector) split(gs []Glyph) []textSegment {
	var segs []textSegment
	for _, g := range gs {
		if n := len(segs); n > 0 && g.X-segs[n-1].X1 < d.ColumnGap {
			segs[n-1].Glyphs = append(segs[n-1].Glyphs, g)
			segs[n-1].X1 = max(segs[n-1].X1, g.X+g.W)
			continue
		}
		segs = append(segs, textSegment{X0: g.X, X1: g.X + g.W, Glyphs: []Glyph{g}})
	}
	return segs
}

func (d *StreamDetector) grid(run [][]textSegment) Grid {
	var starts []float64
	for _, segs := range run {
		for _, s := range segs {
			starts = append(starts, s.X0)
		}
	}
	cols := clusterValues(starts, d.ColumnTolerance)
	if len(cols) < d.MinCols {
		return nil
	}

	grid := make(Grid, len(run))
	for i, segs := range run {
		row := make([]string, len(cols))
		for _, s := range segs {
			c := column(cols, s.X0, d.ColumnTolerance)
			text := joinGlyphs(s.Glyphs)
			if row[c] != "" {
				text = row[c] + " " + text
			}
			row[c] = text
		}
		grid[i] = row
	}
	return grid
}

// column returns the last column whose start is at or left of x.
func column(starts []float64, x, tol float64) int {
	idx := 0
	for i, s := range starts {
		if s <= x+tol {
			idx = i
		}
	}
	return idx
}
