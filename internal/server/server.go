// Package server provides the HTTP API for Yomu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/keyword"
	"github.com/hyperjump/yomu/internal/qa"
	"github.com/hyperjump/yomu/internal/quiz"
	"github.com/hyperjump/yomu/internal/storage"
	"go.uber.org/zap"
)

// Generation can sit behind the rate limiter for several intervals, so the
// request timeout is generous.
const requestTimeout = 5 * time.Minute

// Server is the HTTP server for the Yomu API.
type Server struct {
	indexer  *indexer.Indexer
	qa       *qa.Engine
	quiz     *quiz.Engine
	storage  storage.Storage
	keywords keyword.Index
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	idx *indexer.Indexer,
	qaEngine *qa.Engine,
	quizEngine *quiz.Engine,
	store storage.Storage,
	keywords keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		indexer:  idx,
		qa:       qaEngine,
		quiz:     quizEngine,
		storage:  store,
		keywords: keywords,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleListDocuments)
			r.Get("/search", s.handleSearchDocuments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)
				r.Get("/summary", s.handleSummary)
				r.Get("/statistics", s.handleStatistics)
				r.Get("/history", s.handleHistory)
			})
		})

		r.Post("/ask", s.handleAsk)
		r.Post("/challenge", s.handleChallenge)
		r.Post("/evaluate", s.handleEvaluate)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
