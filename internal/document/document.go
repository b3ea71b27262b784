// Package document opens PDF files and extracts page text.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrPageRange is returned for page numbers outside the document.
var ErrPageRange = errors.New("page out of range")

// Options controls how a document is opened and read.
type Options struct {
	// FallbackPdftotext shells out to pdftotext for pages the Go reader
	// cannot decode.
	FallbackPdftotext bool
	// Strict makes a failed pdfcpu structural check fatal.
	Strict bool
	Log    *slog.Logger
}

// Document is an open PDF. Pages are numbered from 1.
type Document struct {
	path  string
	file  *os.File
	r     *pdflib.Reader
	pages int
	opts  Options
	log   *slog.Logger
}

// Open opens the PDF at path and cross-checks its structure with pdfcpu.
func Open(path string, opts Options) (*Document, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("document", path)

	if err := preflight(path, log, opts.Strict); err != nil {
		return nil, err
	}

	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}

	d := &Document{
		path:  path,
		file:  f,
		r:     r,
		pages: r.NumPage(),
		opts:  opts,
		log:   log,
	}
	log.Info("document opened", "pages", d.pages)
	return d, nil
}

func preflight(path string, log *slog.Logger, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		if strict {
			return fmt.Errorf("pdf structure check %s: %w", path, err)
		}
		log.Warn("pdf structure check failed, continuing", "error", err)
		return nil
	}
	log.Debug("pdf structure check passed", "pages", n)
	return nil
}

func (d *Document) Path() string { return d.path }

func (d *Document) NumPages() int { return d.pages }

// PageText returns the plain text of page n. A page without content yields
// an empty string.
func (d *Document) PageText(ctx context.Context, n int) (string, error) {
	if n < 1 || n > d.pages {
		return "", fmt.Errorf("%w: %d (1-%d)", ErrPageRange, n, d.pages)
	}

	text, err := d.plainText(n)
	if err == nil {
		return text, nil
	}
	if !d.opts.FallbackPdftotext {
		return "", err
	}
	d.log.Warn("pdf reader failed, trying pdftotext", "page", n, "error", err)
	return pdftotext(ctx, d.path, n)
}

func (d *Document) plainText(n int) (text string, err error) {
	page := d.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read page %d: %v", n, r)
		}
	}()
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("read page %d: %w", n, err)
	}
	return text, nil
}

func pdftotext(ctx context.Context, path string, n int) (string, error) {
	page := fmt.Sprint(n)
	cmd := exec.CommandContext(ctx, "pdftotext", "-f", page, "-l", page, "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", n, err)
	}
	return string(out), nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}
