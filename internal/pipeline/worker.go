package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// OpenDocument is a Document that must be closed after use.
type OpenDocument interface {
	Document
	Close() error
}

// Opener opens the document stored at path.
type Opener func(path string) (OpenDocument, error)

// Worker converts queued jobs one at a time. Each job gets its own
// assembler so log records carry the job id.
type Worker struct {
	open         Opener
	newAssembler func(log *slog.Logger) *Assembler
	log          *slog.Logger
}

func NewWorker(open Opener, newAssembler func(log *slog.Logger) *Assembler, log *slog.Logger) *Worker {
	return &Worker{open: open, newAssembler: newAssembler, log: log}
}

// Process runs the conversion for a job. The uploaded file is removed when
// the job finishes.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	path := job.FilePath()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("remove upload failed", "path", path, "error", err)
		}
	}()

	job.SetStatus(StatusOpening, "opening document")
	doc, err := w.open(path)
	if err != nil {
		log.Error("open document failed", "error", err)
		job.AddError(fmt.Sprintf("open: %s", err))
		job.SetStatus(StatusFailed, "opening document")
		return
	}
	defer doc.Close()

	job.SetTotalPages(doc.NumPages())
	job.SetStatus(StatusConverting, "converting pages")

	asm := w.newAssembler(log)
	defer asm.Close()

	out, sum := asm.Run(ctx, doc, job.RecordPage)
	job.SetResult(out, sum)

	if sum.Cancelled {
		job.SetStatus(StatusCancelled, "cancelled")
		return
	}
	log.Info("job complete", "pages_emitted", sum.PagesEmitted, "pages_skipped", sum.PagesSkipped)
	job.SetStatus(StatusCompleted, "done")
}
