package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/tables"
)

var (
	// ErrEmptyPageText marks a page without extractable text.
	ErrEmptyPageText = errors.New("page has no text")
	// ErrNoContent marks a page whose reply and tables were both empty.
	ErrNoContent = errors.New("page produced no components")
)

// Document is an open source document read page by page.
type Document interface {
	Path() string
	NumPages() int
	PageText(ctx context.Context, n int) (string, error)
}

// TableExtractor finds the tables of one page. It never fails; problems are
// logged and yield an empty result.
type TableExtractor interface {
	Extract(ctx context.Context, path string, page int) tables.Result
}

// Processor turns a single page into a page record.
type Processor struct {
	tables     TableExtractor
	classifier *Classifier
}

func NewProcessor(tables TableExtractor, classifier *Classifier) *Processor {
	return &Processor{tables: tables, classifier: classifier}
}

// Process reads page n, classifies its prose and merges the detected tables
// after the classified components.
func (p *Processor) Process(ctx context.Context, log *slog.Logger, doc Document, n int) (extract.PageRecord, error) {
	raw, err := doc.PageText(ctx, n)
	if err != nil {
		return extract.PageRecord{}, fmt.Errorf("read page: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return extract.PageRecord{}, ErrEmptyPageText
	}

	var (
		text  string
		found tables.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text = extract.Normalize(raw)
		return nil
	})
	g.Go(func() error {
		found = p.tables.Extract(gctx, doc.Path(), n)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return extract.PageRecord{}, fmt.Errorf("prepare page: %w", err)
	}

	reply, err := p.classifier.Classify(ctx, log, extract.BuildPagePrompt(text, found.Text))
	if err != nil {
		return extract.PageRecord{}, err
	}

	comps, err := extract.ParseComponents(reply)
	if err != nil {
		log.Debug("raw classification reply", "reply", reply)
		return extract.PageRecord{}, err
	}

	rec := Merge(n, comps, found.Tables)
	if len(rec.Components) == 0 {
		return extract.PageRecord{}, ErrNoContent
	}
	return rec, nil
}

// Merge builds the record for page n: the classified components in reply
// order followed by one table component per table in detection order.
func Merge(n int, comps []extract.Component, tbls []tables.Table) extract.PageRecord {
	out := make([]extract.Component, 0, len(comps)+len(tbls))
	out = append(out, comps...)
	for _, t := range tbls {
		out = append(out, extract.NewTableComponent(t))
	}
	return extract.PageRecord{
		ScreenID:   extract.ScreenID,
		PageIndex:  n,
		Components: out,
	}
}
