package tables

import (
	"context"
	"fmt"
	"sort"
)

// LatticeDetector finds tables delimited by ruling lines. Drawn rectangles
// are reduced to horizontal and vertical segments, connected segments form a
// table frame, and glyphs are assigned to the cells of that frame.
type LatticeDetector struct {
	src PageSource

	// Tolerance is the snap distance used when intersecting and clustering
	// ruling lines.
	Tolerance float64
	// MaxThickness is the widest rectangle still treated as a line.
	MaxThickness float64
	// MinLength is the shortest segment considered a ruling.
	MinLength float64
}

func NewLatticeDetector(src PageSource) *LatticeDetector {
	return &LatticeDetector{
		src:          src,
		Tolerance:    2,
		MaxThickness: 3,
		MinLength:    5,
	}
}

func (d *LatticeDetector) Name() string { return "lattice" }

func (d *LatticeDetector) Detect(ctx context.Context, path string, page int) ([]Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layout, err := d.src.Layout(path, page)
	if err != nil {
		return nil, fmt.Errorf("lattice: %w", err)
	}

	segs := d.segments(layout.Rects)
	if len(segs) == 0 {
		return nil, nil
	}

	var grids []Grid
	for _, frame := range d.frames(segs) {
		if g := d.grid(frame, layout.Glyphs); g != nil {
			grids = append(grids, g)
		}
	}
	return grids, nil
}

type segment struct {
	horizontal bool
	pos        float64 // y for horizontal, x for vertical
	from, to   float64
}

func (d *LatticeDetector) segments(rects []Rect) []segment {
	var segs []segment
	for _, r := range rects {
		w, h := r.X1-r.X0, r.Y1-r.Y0
		switch {
		case h <= d.MaxThickness && w >= d.MinLength:
			segs = append(segs, segment{horizontal: true, pos: (r.Y0 + r.Y1) / 2, from: r.X0, to: r.X1})
		case w <= d.MaxThickness && h >= d.MinLength:
			segs = append(segs, segment{pos: (r.X0 + r.X1) / 2, from: r.Y0, to: r.Y1})
		case w >= d.MinLength && h >= d.MinLength:
			// A filled or stroked box contributes its four edges.
			segs = append(segs,
				segment{horizontal: true, pos: r.Y0, from: r.X0, to: r.X1},
				segment{horizontal: true, pos: r.Y1, from: r.X0, to: r.X1},
				segment{pos: r.X0, from: r.Y0, to: r.Y1},
				segment{pos: r.X1, from: r.Y0, to: r.Y1},
			)
		}
	}
	return segs
}

func (d *LatticeDetector) crosses(a, b segment) bool {
	if a.horizontal == b.horizontal {
		return a.pos-b.pos <= d.Tolerance && b.pos-a.pos <= d.Tolerance &&
			a.from <= b.to+d.Tolerance && b.from <= a.to+d.Tolerance
	}
	h, v := a, b
	if !h.horizontal {
		h, v = b, a
	}
	return v.pos >= h.from-d.Tolerance && v.pos <= h.to+d.Tolerance &&
		h.pos >= v.from-d.Tolerance && h.pos <= v.to+d.Tolerance
}

// frames partitions segments into connected components, ordered top to
// bottom by their highest horizontal line.
func (d *LatticeDetector) frames(segs []segment) [][]segment {
	parent := make([]int, len(segs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if d.crosses(segs[i], segs[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	byRoot := make(map[int][]segment)
	var roots []int
	for i, s := range segs {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], s)
	}

	frames := make([][]segment, 0, len(roots))
	for _, r := range roots {
		frames = append(frames, byRoot[r])
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frameTop(frames[i]) > frameTop(frames[j])
	})
	return frames
}

func frameTop(f []segment) float64 {
	top := f[0].pos
	for _, s := range f {
		if s.horizontal {
			top = max(top, s.pos)
		} else {
			top = max(top, s.to)
		}
	}
	return top
}

// grid lays out the cells of one frame and fills them with the glyphs whose
// centre falls inside. Frames with fewer than two cells or no text at all are
// decoration, not tables.
func (d *LatticeDetector) grid(frame []segment, glyphs []Glyph) Grid {
	var hs, vs []float64
	for _, s := range frame {
		if s.horizontal {
			hs = append(hs, s.pos)
		} else {
			vs = append(vs, s.pos)
		}
	}
	xs := clusterValues(vs, d.Tolerance)
	ys := clusterValues(hs, d.Tolerance)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	rows, cols := len(ys)-1, len(xs)-1
	if rows*cols < 2 {
		return nil
	}

	cells := make([][][]Glyph, rows)
	for r := range cells {
		cells[r] = make([][]Glyph, cols)
	}
	for _, g := range glyphs {
		cx := g.X + g.W/2
		cy := g.Y + fontSize(g)*0.3
		c := span(xs, cx, false)
		r := span(ys, cy, true)
		if c < 0 || r < 0 {
			continue
		}
		cells[r][c] = append(cells[r][c], g)
	}

	grid := make(Grid, rows)
	empty := true
	for r := range cells {
		grid[r] = make([]string, cols)
		for c := range cells[r] {
			grid[r][c] = blockText(cells[r][c], lineTolerance)
			if grid[r][c] != "" {
				empty = false
			}
		}
	}
	if empty {
		return nil
	}
	return grid
}

// span returns the index i such that v lies between bounds[i] and
// bounds[i+1], or -1 when v is outside all bounds.
func span(bounds []float64, v float64, descending bool) int {
	for i := 0; i+1 < len(bounds); i++ {
		lo, hi := bounds[i], bounds[i+1]
		if descending {
			lo, hi = hi, lo
		}
		if v >= lo && v < hi {
			return i
		}
	}
	return -1
}
