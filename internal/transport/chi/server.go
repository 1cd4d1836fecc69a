// Package chi is the HTTP boundary layer: multipart upload-and-search,
// document retrieval by name, and engine status.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shashi-deop/insightfinder/internal/domain"
	"github.com/shashi-deop/insightfinder/internal/extract"
	"github.com/shashi-deop/insightfinder/internal/logger"
	"github.com/shashi-deop/insightfinder/internal/version"
)

// Engine is the consumer-side contract of the scalable search engine.
type Engine interface {
	Add(ctx context.Context, docs []domain.Document) ([]string, error)
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Resolve(ctx context.Context, externalID string) (domain.Document, error)
	Status() domain.EngineStatus
	Entries() ([]domain.DocumentMeta, []string)
}

// Server holds the HTTP handlers.
type Server struct {
	engine         Engine
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewServer creates an HTTP API server.
func NewServer(engine Engine, logger *zap.Logger) *Server {
	return &Server{
		engine:         engine,
		logger:         logger,
		maxUploadBytes: 32 << 20,
	}
}

// WithMaxUploadMB configures the multipart memory limit.
func (s *Server) WithMaxUploadMB(mb int) *Server {
	if mb > 0 {
		s.maxUploadBytes = int64(mb) << 20
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.root)
	r.Get("/status", s.status)
	r.Post("/search", s.search)
	r.Get("/file/{filename}", s.file)
	r.Get("/debug/files", s.debugFiles)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// searchResult is the wire format of a single hit, kept compatible with the
// original frontend contract.
type searchResult struct {
	Filename        string  `json:"filename"`
	ContentSnippet  string  `json:"content_snippet"`
	SimilarityScore float64 `json:"similarity_score"`
	FilePath        string  `json:"file_path"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "insightfinder API is running",
		"version": version.Version,
		"status":  s.engine.Status(),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// search handles POST /search: multipart form with a "query" field and one or
// more "files" parts. Files are extracted, added to the engine, and the query
// is ranked against the active backend.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart form: "+err.Error())
		return
	}

	query := r.FormValue("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	topK := 0
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "top_k must be an integer")
			return
		}
		topK = n
	}

	docs := s.extractUploads(r, log)
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, "no_valid_files", "no valid files to search")
		return
	}

	if _, err := s.engine.Add(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	results, err := s.engine.Search(r.Context(), query, topK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make([]searchResult, len(results))
	for i, res := range results {
		out[i] = searchResult{
			Filename:        res.ID,
			ContentSnippet:  res.Excerpt,
			SimilarityScore: res.Score,
			FilePath:        res.SourceRef,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// extractUploads reads every uploaded file and extracts its text. Files that
// cannot be read or extracted are skipped, not surfaced as request errors.
func (s *Server) extractUploads(r *http.Request, log *zap.Logger) []domain.Document {
	if r.MultipartForm == nil {
		return nil
	}

	var docs []domain.Document
	for _, header := range r.MultipartForm.File["files"] {
		text, err := s.extractOne(r.Context(), header)
		if err != nil {
			log.Warn("Skipping file", zap.String("filename", header.Filename), zap.Error(err))
			continue
		}
		docs = append(docs, domain.Document{ID: header.Filename, Content: text})
	}
	return docs
}

func (s *Server) extractOne(ctx context.Context, header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	return extract.Extract(ctx, header.Filename, data)
}

// file handles GET /file/{filename}: multi-key resolution to the full stored
// content. The path segment may still be percent-encoded; the resolver tries
// the decoded form among its key variants.
func (s *Server) file(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	doc, err := s.engine.Resolve(r.Context(), filename)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"filename": doc.ID,
		"content":  doc.Content,
	})
}

func (s *Server) debugFiles(w http.ResponseWriter, r *http.Request) {
	entries, keys := s.engine.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_files":  len(entries),
		"stored_keys":  keys,
		"file_details": entries,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, "embedding_provider_error", err.Error())
	case errors.Is(err, domain.ErrVectorDimMismatch):
		writeError(w, http.StatusInternalServerError, "vector_dim_mismatch", err.Error())
	default:
		s.logger.Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
