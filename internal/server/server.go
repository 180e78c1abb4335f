// Package server provides the HTTP API for ragcore.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/config"
	"github.com/feedforge/ragcore/internal/contextbuilder"
	"github.com/feedforge/ragcore/internal/feedback"
	"github.com/feedforge/ragcore/internal/indexer"
	"github.com/feedforge/ragcore/internal/retriever"
	"github.com/feedforge/ragcore/internal/storage"
	"github.com/feedforge/ragcore/internal/vector"
)

// Server is the HTTP server for the ragcore API.
type Server struct {
	retriever   *retriever.Retriever
	indexer     *indexer.Indexer
	builder     *contextbuilder.Builder
	feedback    *feedback.Loop
	store       storage.Store
	vectorIndex vector.Index
	config      *config.ServerConfig
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ret *retriever.Retriever,
	idx *indexer.Indexer,
	builder *contextbuilder.Builder,
	loop *feedback.Loop,
	store storage.Store,
	vectorIndex vector.Index,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever:   ret,
		indexer:     idx,
		builder:     builder,
		feedback:    loop,
		store:       store,
		vectorIndex: vectorIndex,
		config:      cfg,
		logger:      logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/sources", s.handleIndexSource)
	r.Delete("/api/v1/sources/*", s.handleDeleteSource)
	r.Get("/api/v1/stats", s.handleStats)
	r.Post("/api/v1/outputs", s.handleCreateOutput)
	r.Post("/api/v1/feedback/process", s.handleProcessFeedback)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
