package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/pdftojson/internal/config"
)

func uploadFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testWorker(doc *fakeDoc, openErr error, svc Completer) *Worker {
	open := func(string) (OpenDocument, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	return NewWorker(open, func(*slog.Logger) *Assembler {
		return newTestAssembler(svc, nil, 0)
	}, discardLogger())
}

func TestWorker_ProcessCompletes(t *testing.T) {
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "x"}`))}
	doc := &fakeDoc{path: "upload.pdf", pages: []string{"one", ""}}
	job := &Job{ID: "w1", Status: StatusQueued}
	path := uploadFile(t)
	job.SetFilePath(path)

	testWorker(doc, nil, svc).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.PagesTotal != 2 || snap.Progress.PagesEmitted != 1 || snap.Progress.PagesSkipped != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	out, _, ok := job.Result()
	if !ok || len(out.Pages) != 1 {
		t.Errorf("expected one page in result, got %+v", out)
	}
	if !doc.closed {
		t.Error("expected document to be closed")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected upload to be removed")
	}
}

func TestWorker_OpenFailure(t *testing.T) {
	job := &Job{ID: "w2", Status: StatusQueued}
	job.SetFilePath(uploadFile(t))

	testWorker(nil, errors.New("not a pdf"), &fakeCompleter{fn: always("")}).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Progress.Errors)
	}
	if _, _, ok := job.Result(); ok {
		t.Error("expected no result for failed job")
	}
}

func TestOrchestrator_RunsSubmittedJob(t *testing.T) {
	svc := &fakeCompleter{fn: always(replyWith(`{"type": "title", "title": "x"}`))}
	doc := &fakeDoc{path: "upload.pdf", pages: []string{"one"}}
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 4, JobTTL: time.Hour}

	o := NewOrchestrator(cfg, testWorker(doc, nil, svc), discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := &Job{ID: "o1", Status: StatusQueued}
	job.SetFilePath(uploadFile(t))
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.GetJob("o1") != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Errorf("expected completed, got %q", s)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, testWorker(nil, nil, nil), discardLogger())
	// Workers are not started, so the queue fills up.

	if err := o.Submit(&Job{ID: "a"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := &Job{ID: "b"}
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	o.Stop()
}
