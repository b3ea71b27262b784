package tables

import (
	"math"
	"sort"
	"strings"
)

// spaceFactor is the horizontal gap, as a fraction of the font size, above
// which two adjacent glyphs are separated by a space.
const spaceFactor = 0.15

// lineTolerance is the baseline distance under which glyphs share a line.
const lineTolerance = 3.0

type textLine struct {
	Y      float64
	Glyphs []Glyph
}

// groupLines buckets glyphs into lines whose baselines lie within tol of
// each other. Lines are returned top first, glyphs left to right. Blank
// glyphs are dropped; spacing is recovered from gaps in joinGlyphs.
func groupLines(glyphs []Glyph, tol float64) []textLine {
	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) != "" {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Y != gs[j].Y {
			return gs[i].Y > gs[j].Y
		}
		return gs[i].X < gs[j].X
	})

	var lines []textLine
	for _, g := range gs {
		if n := len(lines); n > 0 && math.Abs(lines[n-1].Y-g.Y) <= tol {
			lines[n-1].Glyphs = append(lines[n-1].Glyphs, g)
			continue
		}
		lines = append(lines, textLine{Y: g.Y, Glyphs: []Glyph{g}})
	}
	for i := range lines {
		sort.SliceStable(lines[i].Glyphs, func(a, b int) bool {
			return lines[i].Glyphs[a].X < lines[i].Glyphs[b].X
		})
	}
	return lines
}

// joinGlyphs concatenates one line of glyphs sorted by X.
func joinGlyphs(gs []Glyph) string {
	var sb strings.Builder
	for i, g := range gs {
		if i > 0 {
			prev := gs[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > spaceFactor*fontSize(prev) && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
	}
	return strings.TrimSpace(sb.String())
}

// blockText renders glyphs that may span several lines, one line per row.
func blockText(gs []Glyph, tol float64) string {
	lines := groupLines(gs, tol)
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		if t := joinGlyphs(ln.Glyphs); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func fontSize(g Glyph) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return 10
}

// clusterValues sorts values and merges neighbours closer than tol into
// their mean.
func clusterValues(values []float64, tol float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var out []float64
	sum, n := sorted[0], 1
	for _, v := range sorted[1:] {
		if v-sum/float64(n) <= tol {
			sum += v
			n++
			continue
		}
		out = append(out, sum/float64(n))
		sum, n = v, 1
	}
	return append(out, sum/float64(n))
}
