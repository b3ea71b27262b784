package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/pdftojson/internal/config"
	"github.com/dgallion1/pdftojson/internal/document"
	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/pipeline"
)

// newLogger returns a text logger writing to cfg.LogFile and stderr. The
// returned func closes the log file.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(f, os.Stderr)
		closeFn = func() { f.Close() }
	}

	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return log, closeFn, nil
}

func chatConfig(cfg config.Config) extract.ChatConfig {
	return extract.ChatConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.APIURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.RequestTimeout,
	}
}

func assemblerOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		PageDelay:   cfg.PageDelay,
	}
}

func documentOptions(cfg config.Config, log *slog.Logger) document.Options {
	return document.Options{
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		Strict:            cfg.StrictPDF,
		Log:               log,
	}
}
