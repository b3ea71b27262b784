package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/tables"
)

func TestAssembler_SinglePageHelloWorld(t *testing.T) {
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "paragraph", "title": "", "text": "Hello world"}`))}
	doc := &fakeDoc{path: "hello.pdf", pages: []string{"Hello world"}}

	out, sum := newTestAssembler(svc, nil, 0).Run(context.Background(), doc, nil)
	if len(out.Pages) != 1 {
		t.Fatalf("expected 1 page record, got %d", len(out.Pages))
	}
	rec := out.Pages[0]
	if rec.PageIndex != 1 || rec.ScreenID != extract.ScreenID {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(rec.Components) != 1 || rec.Components[0].Text != "Hello world" {
		t.Errorf("unexpected components %+v", rec.Components)
	}
	if sum.PagesTotal != 1 || sum.PagesEmitted != 1 || sum.PagesSkipped != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.RunID == "" {
		t.Error("expected run id")
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if !Persist(out, path, discardLogger()) {
		t.Fatal("expected output to be persisted")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("persisted file is not json: %v", err)
	}
	pages, _ := got["pages"].([]any)
	if len(pages) != 1 {
		t.Fatalf("expected 1 persisted page, got %v", got["pages"])
	}
}

func TestAssembler_EmptyPageSkippedRunContinues(t *testing.T) {
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "Two"}`))}
	doc := &fakeDoc{path: "d.pdf", pages: []string{"", "Page two"}}

	var events []PageEvent
	out, sum := newTestAssembler(svc, nil, 0).Run(context.Background(), doc, func(ev PageEvent) {
		events = append(events, ev)
	})
	if len(out.Pages) != 1 || out.Pages[0].PageIndex != 2 {
		t.Fatalf("expected only page 2, got %+v", out.Pages)
	}
	if svc.Calls() != 1 {
		t.Errorf("expected 1 service call, got %d", svc.Calls())
	}
	if sum.Skipped[SkipEmpty] != 1 {
		t.Errorf("expected one empty page in summary, got %v", sum.Skipped)
	}
	if len(events) != 2 || events[0].Emitted || events[0].Reason != SkipEmpty || !events[1].Emitted {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestAssembler_NoRecordsNoFile(t *testing.T) {
	svc := &fakeCompleter{fn: always("")}
	doc := &fakeDoc{path: "d.pdf", pages: []string{"", "  "}}

	out, _ := newTestAssembler(svc, nil, 0).Run(context.Background(), doc, nil)
	if !out.Empty() {
		t.Fatalf("expected empty output, got %+v", out)
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if Persist(out, path, discardLogger()) {
		t.Error("expected nothing to be persisted")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no output file, stat err = %v", err)
	}
}

func TestAssembler_FailingPageIsSkipped(t *testing.T) {
	svc := &fakeCompleter{fn: func(call int, prompt string) (string, error) {
		if strings.Contains(prompt, "bad page") {
			return "", errors.New("service down")
		}
		return replyWith(`{"type": "title", "title": "ok"}`), nil
	}}
	doc := &fakeDoc{path: "d.pdf", pages: []string{"bad page", "good page"}}

	out, sum := newTestAssembler(svc, nil, 0).Run(context.Background(), doc, nil)
	if len(out.Pages) != 1 || out.Pages[0].PageIndex != 2 {
		t.Fatalf("expected only page 2, got %+v", out.Pages)
	}
	if svc.Calls() != 4 {
		t.Errorf("expected 3 attempts for page 1 and 1 for page 2, got %d", svc.Calls())
	}
	if sum.Skipped[SkipRetries] != 1 {
		t.Errorf("expected retries_exhausted in summary, got %v", sum.Skipped)
	}
}

func TestAssembler_TablesCounted(t *testing.T) {
	tbl, _ := tables.FromGrid(tables.Grid{{"a", "b"}}, nil)
	tbls := fakeTables{results: map[int]tables.Result{1: {Tables: []tables.Table{tbl, tbl}, Text: "a b a b"}}}
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "x"}`))}

	out, sum := newTestAssembler(svc, tbls, 0).Run(context.Background(), &fakeDoc{pages: []string{"x"}}, nil)
	if sum.Tables != 2 {
		t.Errorf("expected 2 tables, got %d", sum.Tables)
	}
	if n := len(out.Pages[0].Components); n != 3 {
		t.Errorf("expected 3 components, got %d", n)
	}
}

func TestAssembler_PacesPages(t *testing.T) {
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "x"}`))}
	doc := &fakeDoc{pages: []string{"a", "", "c"}}
	delay := 25 * time.Millisecond

	start := time.Now()
	newTestAssembler(svc, nil, delay).Run(context.Background(), doc, nil)
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("expected at least %v of pacing, took %v", 2*delay, elapsed)
	}
}

func TestAssembler_CancelKeepsPartialOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "x"}`))}
	doc := &fakeDoc{pages: []string{"a", "b", "c"}}

	out, sum := newTestAssembler(svc, nil, time.Hour).Run(ctx, doc, func(PageEvent) { cancel() })
	if !sum.Cancelled {
		t.Error("expected run to be marked cancelled")
	}
	if len(out.Pages) != 1 || out.Pages[0].PageIndex != 1 {
		t.Errorf("expected page 1 only, got %+v", out.Pages)
	}
}

func TestWriteOutput_Format(t *testing.T) {
	parsed, err := extract.ParseComponents(replyWith(`{"type": "title", "title": "Caf\u00e9 \u0026 Bar"}`))
	if err != nil {
		t.Fatal(err)
	}
	comps := append(parsed, extract.Component{Type: extract.TypeParagraph, Text: "Prix <10 €> & plus"})
	tbl, _ := tables.FromGrid(tables.Grid{{"Terms & Conditions", "<5 kg"}}, nil)
	out := extract.Output{Pages: []extract.PageRecord{Merge(1, comps, []tables.Table{tbl})}}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, out); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"Café & Bar", "Prix <10 €> & plus", "Terms & Conditions", "<5 kg"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected literal %q, got %s", want, s)
		}
	}
	if strings.Contains(s, `\u`) {
		t.Errorf("expected no unicode escapes, got %s", s)
	}
	if !strings.Contains(s, "\n    \"pages\": [") {
		t.Errorf("expected four-space indent, got %s", s)
	}
}

func TestSkipReason(t *testing.T) {
	tests := map[error]string{
		ErrEmptyPageText:                    SkipEmpty,
		ErrRetriesExhausted:                 SkipRetries,
		extract.ErrNoStructuredBlock:        SkipNoBlock,
		extract.ErrMalformedPayload:         SkipMalformed,
		extract.ErrMissingPagesOrComponents: SkipMissingPages,
		extract.ErrUnknownComponentType:     SkipUnknownType,
		ErrNoContent:                        SkipNoContent,
		errors.New("other"):                 SkipReadError,
	}
	for err, want := range tests {
		if got := skipReason(err); got != want {
			t.Errorf("skipReason(%v) = %q, want %q", err, got, want)
		}
	}
}
