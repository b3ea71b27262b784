package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/pdftojson/internal/config"
	"github.com/dgallion1/pdftojson/internal/extract"
	"github.com/dgallion1/pdftojson/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for pdftojson.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	chat         *extract.ChatClient
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. chat may be nil, in
// which case the stats endpoint reports itself unavailable.
func NewServer(orch *pipeline.Orchestrator, chat *extract.ChatClient, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		chat:         chat,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Get("/jobs/{jobID}", s.handleJobStatus)
		r.Get("/jobs/{jobID}/result", s.handleJobResult)
		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
