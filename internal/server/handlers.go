package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/feedforge/ragcore/internal/models"
	"github.com/feedforge/ragcore/internal/query"
)

type queryRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	IncludeContext bool   `json:"include_context,omitempty"`
}

type queryResponse struct {
	*models.RetrievalResult
	Context string `json:"context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))

	// The retriever treats an invalid query as an empty result; the HTTP
	// surface still owes callers a validation error, so check here.
	if err := query.Validate(query.Normalize(req.Query)); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("%v: %q", err, req.Query))
		return
	}

	result, err := s.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := queryResponse{RetrievalResult: result}
	if req.IncludeContext {
		resp.Context = s.builder.Build(result.Chunks, true)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexSource(w http.ResponseWriter, r *http.Request) {
	var doc models.SourceDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if doc.ID == "" {
		s.respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	s.logger.Debug("index source request", zap.String("source_id", doc.ID))

	n, err := s.indexer.IndexSource(r.Context(), &doc)
	if err != nil {
		s.logger.Error("indexing failed", zap.String("source_id", doc.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"source_id": doc.ID,
		"chunks":    n,
	})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	// Wildcard route: source ids may contain slashes.
	id := chi.URLParam(r, "*")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "source id is required")
		return
	}
	s.logger.Debug("delete source request", zap.String("source_id", id))

	if err := s.indexer.PurgeSource(r.Context(), id); err != nil {
		s.logger.Error("purge failed", zap.String("source_id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"source_id": id, "status": "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_chunks":      stats.TotalChunks,
		"distinct_sources":  stats.DistinctSources,
		"chunks_by_kind":    stats.ChunksByKind,
		"vector_index_size": s.vectorIndex.Size(),
		"vector_index_kind": s.vectorIndex.Kind(),
	})
}

func (s *Server) handleCreateOutput(w http.ResponseWriter, r *http.Request) {
	var out models.Output
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if out.Content == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if err := s.store.CreateOutput(r.Context(), &out); err != nil {
		s.logger.Error("create output failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &out)
}

func (s *Server) handleProcessFeedback(w http.ResponseWriter, r *http.Request) {
	report, err := s.feedback.ProcessPending(r.Context())
	if err != nil {
		s.logger.Error("feedback processing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
