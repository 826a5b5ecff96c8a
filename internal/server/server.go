// Package server exposes the store, audit trail and proposal queue
// over HTTP for local dashboards and tooling.
package server

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yuin/goldmark"

	"github.com/kortfolk/chronicle/internal/audit"
	"github.com/kortfolk/chronicle/internal/brief"
	"github.com/kortfolk/chronicle/internal/executor"
	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/kb"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Deps are the components the server exposes. Nil fields leave the
// corresponding endpoints unmounted.
type Deps struct {
	Store     *kb.Store
	Audit     *audit.Store
	Pending   *extract.PendingQueue
	Executor  *executor.Executor
	Proposals *executor.ProposalQueue
	Projector *brief.Projector
}

// Server serves the chronicle HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with its routes mounted.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if s.deps.Store != nil {
		kb.RegisterRoutes(r, s.deps.Store)
	}
	if s.deps.Audit != nil {
		audit.RegisterRoutes(r, s.deps.Audit)
	}
	if s.deps.Pending != nil {
		extract.RegisterRoutes(r, s.deps.Pending)
	}
	if s.deps.Executor != nil && s.deps.Proposals != nil {
		executor.RegisterRoutes(r, s.deps.Executor, s.deps.Proposals)
	}
	if s.deps.Projector != nil {
		r.Get("/api/briefing", s.handleBriefing)
	}

	return r
}

// handleBriefing regenerates the briefing and serves it as markdown,
// or as rendered HTML when the client asks for text/html.
func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	content, err := s.deps.Projector.Generate(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if wantsHTML(r) {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(content), &buf); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(content))
}

func wantsHTML(r *http.Request) bool {
	return r.URL.Query().Get("format") == "html" ||
		strings.HasPrefix(r.Header.Get("Accept"), "text/html")
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chronicle server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
