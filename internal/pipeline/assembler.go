package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/tables"
)

// Skip reasons reported in Summary.Skipped and PageEvent.Reason.
const (
	SkipEmpty        = "empty_text"
	SkipReadError    = "read_error"
	SkipRetries      = "retries_exhausted"
	SkipNoBlock      = "no_json_block"
	SkipMalformed    = "malformed_payload"
	SkipMissingPages = "missing_pages_or_components"
	SkipUnknownType  = "unknown_component_type"
	SkipNoContent    = "no_content"
)

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPageText):
		return SkipEmpty
	case errors.Is(err, ErrRetriesExhausted):
		return SkipRetries
	case errors.Is(err, extract.ErrNoStructuredBlock):
		return SkipNoBlock
	case errors.Is(err, extract.ErrMalformedPayload):
		return SkipMalformed
	case errors.Is(err, extract.ErrMissingPagesOrComponents):
		return SkipMissingPages
	case errors.Is(err, extract.ErrUnknownComponentType):
		return SkipUnknownType
	case errors.Is(err, ErrNoContent):
		return SkipNoContent
	default:
		return SkipReadError
	}
}

// PageEvent reports the outcome of one page.
type PageEvent struct {
	Page    int
	Total   int
	Emitted bool
	Tables  int
	Reason  string // set when the page was skipped
}

// Summary describes a finished run.
type Summary struct {
	RunID        string         `json:"run_id" yaml:"run_id"`
	Document     string         `json:"document" yaml:"document"`
	PagesTotal   int            `json:"pages_total" yaml:"pages_total"`
	PagesEmitted int            `json:"pages_emitted" yaml:"pages_emitted"`
	PagesSkipped int            `json:"pages_skipped" yaml:"pages_skipped"`
	Skipped      map[string]int `json:"skipped" yaml:"skipped"`
	Tables       int            `json:"tables" yaml:"tables"`
	Cancelled    bool           `json:"cancelled" yaml:"cancelled"`
	Duration     string         `json:"duration" yaml:"duration"`
}

// Options are the run settings of an Assembler.
type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	PageDelay   time.Duration
}

// Assembler walks a document page by page and accumulates page records.
type Assembler struct {
	proc      *Processor
	pageDelay time.Duration
	log       *slog.Logger
	closers   []io.Closer
}

func NewAssembler(proc *Processor, pageDelay time.Duration, log *slog.Logger) *Assembler {
	return &Assembler{proc: proc, pageDelay: pageDelay, log: log}
}

// NewPDFAssembler wires the PDF table detectors and the classifier around
// svc. Close releases the page geometry reader.
func NewPDFAssembler(svc Completer, opts Options, log *slog.Logger) *Assembler {
	src := tables.NewPDFSource()
	ext := tables.NewExtractor(log,
		tables.NewLatticeDetector(src),
		tables.NewStreamDetector(src),
	)
	proc := NewProcessor(ext, NewClassifier(svc, opts.MaxAttempts, opts.RetryDelay))
	a := NewAssembler(proc, opts.PageDelay, log)
	a.closers = append(a.closers, src)
	return a
}

// Close releases resources held by the detectors.
func (a *Assembler) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Run processes every page of doc in order. Pages that fail are skipped and
// the run continues; consecutive pages are separated by the page delay.
// Cancelling ctx stops the run and returns what was accumulated so far.
// onPage may be nil.
func (a *Assembler) Run(ctx context.Context, doc Document, onPage func(PageEvent)) (extract.Output, Summary) {
	start := time.Now()
	total := doc.NumPages()
	out := extract.Output{Pages: []extract.PageRecord{}}
	sum := Summary{
		RunID:      uuid.NewString(),
		Document:   doc.Path(),
		PagesTotal: total,
		Skipped:    map[string]int{},
	}
	log := a.log.With("run_id", sum.RunID)
	log.Info("run started", "document", doc.Path(), "pages", total)

	for n := 1; n <= total; n++ {
		if n > 1 && !sleep(ctx, a.pageDelay) {
			sum.Cancelled = true
			break
		}
		plog := log.With("page", n)
		plog.Info("processing page")

		rec, err := a.proc.Process(ctx, plog, doc, n)
		if err != nil && ctx.Err() != nil {
			plog.Warn("run cancelled", "error", err)
			sum.Cancelled = true
			break
		}

		ev := PageEvent{Page: n, Total: total}
		if err != nil {
			ev.Reason = skipReason(err)
			sum.PagesSkipped++
			sum.Skipped[ev.Reason]++
			logSkip(plog, ev.Reason, err)
		} else {
			ev.Emitted = true
			for _, c := range rec.Components {
				if c.Type == extract.TypeTable {
					ev.Tables++
				}
			}
			sum.PagesEmitted++
			sum.Tables += ev.Tables
			out.Pages = append(out.Pages, rec)
		}
		plog.Info("completed page", "emitted", ev.Emitted, "components", len(rec.Components), "tables", ev.Tables)
		if onPage != nil {
			onPage(ev)
		}
	}

	sum.Duration = time.Since(start).Round(time.Millisecond).String()
	log.Info("run finished",
		"pages_emitted", sum.PagesEmitted,
		"pages_skipped", sum.PagesSkipped,
		"cancelled", sum.Cancelled,
		"duration", sum.Duration,
	)
	return out, sum
}

func logSkip(log *slog.Logger, reason string, err error) {
	switch reason {
	case SkipEmpty:
		log.Warn("empty text on page")
	case SkipRetries:
		// Already reported by the classifier.
	case SkipMissingPages:
		log.Warn("reply contains no pages", "error", err)
	default:
		log.Error("page skipped", "reason", reason, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// WriteOutput encodes out as JSON indented by four spaces, leaving non-ASCII
// text and HTML characters as they are.
func WriteOutput(w io.Writer, out extract.Output) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// Persist writes out to path unless it holds no pages. It reports whether a
// file was written; failures are logged only.
func Persist(out extract.Output, path string, log *slog.Logger) bool {
	if out.Empty() {
		log.Warn("no data to save, output is empty", "path", path)
		return false
	}
	if err := writeFile(out, path); err != nil {
		log.Error("saving output failed", "path", path, "error", err)
		return false
	}
	log.Info("output saved", "path", path, "pages", len(out.Pages))
	return true
}

func writeFile(out extract.Output, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdftojson-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := WriteOutput(tmp, out); err != nil {
		tmp.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
