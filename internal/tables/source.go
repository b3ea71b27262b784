package tables

import (
	"fmt"
	"os"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
)

// Glyph is a positioned run of text. Y grows upwards (PDF user space).
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Rect is an axis-aligned rectangle drawn on the page, typically a ruling
// line or a cell border.
type Rect struct {
	X0, Y0 float64
	X1, Y1 float64
}

// Layout is the geometry of a single page.
type Layout struct {
	Glyphs []Glyph
	Rects  []Rect
}

// PageSource yields page geometry for a document path.
type PageSource interface {
	Layout(path string, page int) (Layout, error)
}

// PDFSource reads page geometry with ledongthuc/pdf. The most recently used
// document stays open until Close.
type PDFSource struct {
	mu   sync.Mutex
	path string
	file *os.File
	r    *pdflib.Reader
}

func NewPDFSource() *PDFSource {
	return &PDFSource{}
}

func (s *PDFSource) Layout(path string, page int) (layout Layout, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.r == nil || s.path != path {
		s.closeLocked()
		f, r, err := pdflib.Open(path)
		if err != nil {
			return Layout{}, fmt.Errorf("open pdf: %w", err)
		}
		s.path, s.file, s.r = path, f, r
	}

	if page < 1 || page > s.r.NumPage() {
		return Layout{}, fmt.Errorf("page %d out of range (1-%d)", page, s.r.NumPage())
	}
	p := s.r.Page(page)
	if p.V.IsNull() {
		return Layout{}, nil
	}

	// Content panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			layout = Layout{}
			err = fmt.Errorf("read page %d content: %v", page, rec)
		}
	}()
	content := p.Content()

	layout.Glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		layout.Glyphs = append(layout.Glyphs, Glyph{
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			S:        t.S,
		})
	}
	layout.Rects = make([]Rect, 0, len(content.Rect))
	for _, r := range content.Rect {
		layout.Rects = append(layout.Rects, Rect{
			X0: min(r.Min.X, r.Max.X),
			Y0: min(r.Min.Y, r.Max.Y),
			X1: max(r.Min.X, r.Max.X),
			Y1: max(r.Min.Y, r.Max.Y),
		})
	}
	return layout, nil
}

// Close releases the open document, if any.
func (s *PDFSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *PDFSource) closeLocked() error {
	var err error
	if s.file != nil {
		err = s.file.Close()
	}
	s.path, s.file, s.r = "", nil, nil
	return err
}
