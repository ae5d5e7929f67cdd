package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/extractproof/internal/config"
	"github.com/dgallion1/extractproof/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Server is the HTTP API for submitting documents and viewing their proofs.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	upgrader     websocket.Upgrader
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		log: log,
		cfg: cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ProofAPIKey, s.log))

		r.Post("/api/analyze", s.handleAnalyze)
		r.Route("/api/analyze/{jobID}", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/events", s.handleEvents)
			r.Get("/result", s.handleResult)
			r.Get("/artifact", s.handleArtifact)
			r.Get("/report", s.handleReport)
		})
		r.Get("/api/stats/extraction", s.handleExtractionStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
