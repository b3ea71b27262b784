package tables

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Detector finds raw tables on one page of a document.
type Detector interface {
	// Name identifies the strategy in logs and results.
	Name() string
	// Detect returns the raw grids found on the 1-based page.
	Detect(ctx context.Context, path string, page int) ([]Grid, error)
}

// Result is the outcome of table extraction for a single page.
type Result struct {
	Tables []Table
	// Text holds every cell's text, space separated, for duplicate suppression.
	Text string
	// Strategy names the detector that produced the tables, empty if none did.
	Strategy string
}

// Extractor runs detectors in order and keeps the first non-empty result.
type Extractor struct {
	detectors []Detector
	log       *slog.Logger
}

func NewExtractor(log *slog.Logger, detectors ...Detector) *Extractor {
	return &Extractor{detectors: detectors, log: log}
}

// Strategies returns the detector names in evaluation order.
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Extract detects the tables on a page. Detector failures are logged and
// yield an empty result; they are never returned to the caller.
func (e *Extractor) Extract(ctx context.Context, path string, page int) Result {
	log := e.log.With("page", page)

	for _, d := range e.detectors {
		grids, err := detectSafely(ctx, d, path, page)
		if err != nil {
			log.Error("table extraction error", "strategy", d.Name(), "error", err)
			return Result{}
		}
		if len(grids) == 0 {
			log.Debug("no tables found", "strategy", d.Name())
			continue
		}

		res := Result{Strategy: d.Name()}
		var flat strings.Builder
		for i, g := range grids {
			t, ok := FromGrid(g, &flat)
			if !ok {
				log.Warn("no columns detected in table", "strategy", d.Name(), "table", i+1)
				continue
			}
			res.Tables = append(res.Tables, t)
		}
		res.Text = strings.TrimSpace(flat.String())
		log.Info("tables detected", "strategy", d.Name(), "raw", len(grids), "kept", len(res.Tables))
		return res
	}
	return Result{}
}

// detectSafely converts detector panics (malformed content streams are a
// common source) into errors.
func detectSafely(ctx context.Context, d Detector, path string, page int) (grids []Grid, err error) {
	defer func() {
		if r := recover(); r != nil {
			grids = nil
			err = fmt.Errorf("%s detector panic: %v", d.Name(), r)
		}
	}()
	return d.Detect(ctx, path, page)
}
