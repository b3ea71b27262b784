package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pdftojson/internal/tables"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDoc struct {
	path   string
	pages  []string
	errs   map[int]error
	closed bool
}

func (d *fakeDoc) Path() string  { return d.path }
func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) PageText(_ context.Context, n int) (string, error) {
	if err := d.errs[n]; err != nil {
		return "", err
	}
	if n < 1 || n > len(d.pages) {
		return "", errors.New("out of range")
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

// fakeCompleter answers with fn, which sees the 1-based call number.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	fn      func(call int, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.fn(call, prompt)
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func replyWith(components string) string {
	return "```json\n{\"pages\": [{\"screen_id\": \"template_styles\", \"components\": [" + components + "]}]}\n```"
}

func always(reply string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return reply, nil }
}

type fakeTables struct {
	results map[int]tables.Result
}

func (f fakeTables) Extract(_ context.Context, _ string, page int) tables.Result {
	return f.results[page]
}

func newTestAssembler(svc Completer, tbls TableExtractor, pageDelay time.Duration) *Assembler {
	if tbls == nil {
		tbls = fakeTables{}
	}
	proc := NewProcessor(tbls, NewClassifier(svc, 3, 0))
	return NewAssembler(proc, pageDelay, discardLogger())
}
