package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/dgallion1/pdftojson/internal/api"
	"github.com/dgallion1/pdftojson/internal/config"
	"github.com/dgallion1/pdftojson/internal/document"
	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the conversion HTTP API",
	Long: `Start an HTTP server that converts uploaded PDFs in the background.

Endpoints:
  GET  /health                  - liveness check
  POST /api/convert             - upload a PDF (multipart field "file")
  GET  /api/jobs/{id}           - job status and page progress
  GET  /api/jobs/{id}/result    - converted JSON once the job has finished
  GET  /api/stats/llm           - classification latency statistics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		level, err := config.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

		chat := extract.NewChatClient(chatConfig(cfg))
		defer chat.Close()

		open := func(path string) (pipeline.OpenDocument, error) {
			doc, err := document.Open(path, documentOptions(cfg, log))
			if err != nil {
				return nil, err
			}
			return doc, nil
		}
		worker := pipeline.NewWorker(open, func(l *slog.Logger) *pipeline.Assembler {
			return pipeline.NewPDFAssembler(chat, assemblerOptions(cfg), l)
		}, log)

		orch := pipeline.NewOrchestrator(cfg, worker, log)
		orch.Start(ctx)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      api.NewServer(orch, chat, log, cfg),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			<-ctx.Done()
			log.Info("shutting down...")

			orch.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		ln, err := net.Listen("tcp", httpServer.Addr)
		if err != nil {
			orch.Stop()
			return err
		}
		ln = netutil.LimitListener(ln, cfg.MaxConnections)

		log.Info("starting pdftojson", "port", cfg.Port, "model", cfg.Model, "workers", cfg.WorkerCount)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default from config: 8090)")
}
