package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/yomu/internal/extract"
	"github.com/hyperjump/yomu/internal/indexer"
	"github.com/hyperjump/yomu/internal/llm"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultListLimit    = 50
	defaultSearchLimit  = 10
	defaultHistoryLimit = 50
	maxLimit            = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	questionCount, err := s.storage.CountQuestions(ctx)
	if err != nil {
		s.logger.Error("status: count questions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
		"questions": questionCount,
	}
	if s.keywords != nil {
		if n, err := s.keywords.DocCount(); err == nil {
			resp["keyword_indexed"] = n
		}
	}

	cfg := s.config
	resp["config"] = map[string]interface{}{
		"llm_provider":       cfg.LLM.Provider,
		"llm_model":          cfg.LLM.Model,
		"embedding_provider": cfg.Embedding.Provider,
		"chunk_size":         cfg.Chunking.ChunkSize,
		"chunk_overlap":      cfg.Chunking.ChunkOverlap,
		"top_k":              cfg.Retrieval.TopK,
		"min_interval":       cfg.LLM.MinInterval.String(),
		"allowed_extensions": cfg.Ingest.AllowedExtensions,
	}
	usage, err := storage.MeasureDiskUsage(
		cfg.Storage.DatabasePath,
		cfg.Storage.IndexDir,
		cfg.Storage.KeywordIndexPath,
		cfg.Storage.UploadDir,
	)
	if err == nil {
		resp["disk_usage"] = usage
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes
	if maxBytes > 0 {
		// Leave room for multipart framing around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(data)))
	doc, err := s.indexer.IngestBytes(r.Context(), header.Filename, data)
	if err != nil {
		s.fail(w, "upload", err)
		return
	}

	resp := &models.UploadResponse{Document: doc, Message: "Document uploaded and processed successfully"}
	summary, err := s.qa.Summarizer().Summarize(r.Context(), doc.Content)
	if err != nil {
		s.logger.Warn("upload summary failed", zap.String("document_id", doc.ID), zap.Error(err))
		resp.Message = "Document uploaded and processed; summary unavailable"
	} else {
		resp.Summary = summary
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultListLimit)
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list documents", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "offset": offset, "limit": limit})
}

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	results, err := s.keywords.Search(r.Context(), q, queryInt(r, "limit", defaultSearchLimit))
	if err != nil {
		s.fail(w, "search documents", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": q, "results": results})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, "delete document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := s.qa.Summary(r.Context(), id)
	if err != nil {
		s.fail(w, "summary", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": id, "summary": summary})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.quiz.Statistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "statistics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(ctx, id); err != nil {
		s.fail(w, "history", err)
		return
	}
	records, err := s.storage.ListQuestions(ctx, id, queryInt(r, "limit", defaultHistoryLimit))
	if err != nil {
		s.fail(w, "history", err)
		return
	}
	if records == nil {
		records = []*models.QuestionRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"document_id": id, "history": records})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.QuestionRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.qa.Ask(r.Context(), req)
	if err != nil {
		s.fail(w, "ask", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.ChallengeRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.quiz.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, "challenge", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.quiz.Evaluate(r.Context(), req)
	if err != nil {
		s.fail(w, "evaluate", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, indexer.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, indexer.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	if v > maxLimit {
		return maxLimit
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
