package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/54b3r/tealab-go/internal/blend"
	"github.com/54b3r/tealab-go/internal/domain"
	"github.com/54b3r/tealab-go/internal/ingestion"
	"github.com/54b3r/tealab-go/internal/logging"
)

const (
	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 1 << 20
	// maxIngestBytes bounds ingestion request bodies.
	maxIngestBytes = 16 << 20

	// userIDHeader identifies the caller for blend ownership.
	userIDHeader = "X-User-ID"
)

var errKnowledgeDisabled = errors.New("knowledge base not configured")

// handleRecommend handles POST /api/recommendations.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendationRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}

	recs, err := s.deps.Recommender.Recommend(r.Context(), req)
	if err != nil {
		s.metrics.recommendationsTotal.WithLabelValues(outcomeError).Inc()
		s.writeError(w, r, err)
		return
	}

	outcome := outcomeOK
	for _, rec := range recs {
		if rec.Fallback {
			outcome = outcomeFallback
			break
		}
	}
	s.metrics.recommendationsTotal.WithLabelValues(outcome).Inc()
	s.writeJSON(w, r, http.StatusOK, map[string]any{"recommendations": recs})
}

// handleCreateBlend handles POST /api/blends. The blend is owned by the
// X-User-ID header value, or "anonymous".
func (s *Server) handleCreateBlend(w http.ResponseWriter, r *http.Request) {
	var req domain.BlendCreationRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}

	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		userID = blend.AnonymousUser
	}

	resp, err := s.deps.Blender.CreateBlend(r.Context(), userID, req)
	if err != nil {
		s.metrics.blendsTotal.WithLabelValues(outcomeError).Inc()
		s.writeError(w, r, err)
		return
	}

	outcome := outcomeOK
	if resp.Fallback {
		outcome = outcomeFallback
	}
	s.metrics.blendsTotal.WithLabelValues(outcome).Inc()
	s.writeJSON(w, r, http.StatusCreated, resp)
}

// handleGetBlend handles GET /api/blends/{id}.
func (s *Server) handleGetBlend(w http.ResponseWriter, r *http.Request) {
	id, ok := s.blendID(w, r)
	if !ok {
		return
	}
	b, err := s.deps.Blender.GetBlend(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, b)
}

// handleOptimizeBlend handles POST /api/blends/{id}/optimize. An empty body
// is accepted as no feedback.
func (s *Server) handleOptimizeBlend(w http.ResponseWriter, r *http.Request) {
	id, ok := s.blendID(w, r)
	if !ok {
		return
	}

	var req blendOptimizeRequest
	if r.ContentLength != 0 && !s.decode(w, r, maxBodyBytes, &req) {
		return
	}

	res, err := s.deps.Blender.OptimizeBlend(r.Context(), id, req.Feedback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

// handleRAGQuery handles POST /api/rag/query.
func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	if s.deps.Answerer == nil {
		s.writeStatus(w, r, http.StatusServiceUnavailable, errKnowledgeDisabled)
		return
	}

	var req domain.RAGQueryRequest
	if !s.decode(w, r, maxBodyBytes, &req) {
		return
	}

	answer, err := s.deps.Answerer.Query(r.Context(), req)
	if err != nil {
		s.metrics.ragQueriesTotal.WithLabelValues(outcomeError).Inc()
		s.writeError(w, r, err)
		return
	}
	s.metrics.ragQueriesTotal.WithLabelValues(outcomeOK).Inc()
	s.writeJSON(w, r, http.StatusOK, answer)
}

// handleIngest handles POST /api/rag/ingest for a single document (inline
// content or a URL) or a batch of documents.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingester == nil {
		s.writeStatus(w, r, http.StatusServiceUnavailable, errKnowledgeDisabled)
		return
	}

	var req ingestRequest
	if !s.decode(w, r, maxIngestBytes, &req) {
		return
	}

	switch {
	case len(req.Documents) > 0:
		for i, d := range req.Documents {
			req.Documents[i].Metadata = ingestion.Merge(d.Metadata, ingestion.InferMetadata(d.Metadata.Title, d.Content))
		}
		res := s.deps.Ingester.BulkIngest(r.Context(), req.Documents)
		s.metrics.ingestedChunksTotal.Add(float64(res.Chunks))
		s.writeJSON(w, r, http.StatusOK, res)
		return

	case strings.TrimSpace(req.URL) != "":
		content, err := s.deps.Ingester.FetchDocument(r.Context(), req.URL)
		if err != nil {
			s.writeStatus(w, r, http.StatusBadGateway, err)
			return
		}
		if req.Metadata.URL == "" {
			req.Metadata.URL = req.URL
		}
		if req.Metadata.Source == "" {
			req.Metadata.Source = req.URL
		}
		req.Content = content

	case strings.TrimSpace(req.Content) == "":
		s.writeStatus(w, r, http.StatusBadRequest, errors.New("one of content, url or documents is required"))
		return
	}

	meta := ingestion.Merge(req.Metadata, ingestion.InferMetadata(req.Metadata.Title, req.Content))
	n, err := s.deps.Ingester.IngestDocument(r.Context(), req.Content, meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.ingestedChunksTotal.Add(float64(n))
	s.writeJSON(w, r, http.StatusOK, ingestResponse{Chunks: n})
}

// handleListTeas handles GET /api/teas.
func (s *Server) handleListTeas(w http.ResponseWriter, r *http.Request) {
	teas, err := s.deps.Catalog.ListTeaDetails(r.Context(), nil)
	if err != nil {
		s.writeError(w, r, domain.Upstream("catalog: list teas", err))
		return
	}
	if teas == nil {
		teas = []domain.TeaDetail{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"teas": teas})
}

// handleListEffects handles GET /api/effects.
func (s *Server) handleListEffects(w http.ResponseWriter, r *http.Request) {
	effects, err := s.deps.Catalog.ListEffects(r.Context())
	if err != nil {
		s.writeError(w, r, domain.Upstream("catalog: list effects", err))
		return
	}
	if effects == nil {
		effects = []domain.Effect{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"effects": effects})
}

// blendID parses the {id} path value, answering 400 when it is not a
// positive integer.
func (s *Server) blendID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.writeStatus(w, r, http.StatusBadRequest, fmt.Errorf("invalid blend id %q", raw))
		return 0, false
	}
	return id, true
}

// decode reads a JSON body of at most limit bytes into v. It answers 400
// and returns false on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeStatus(w, r, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		case errors.Is(err, io.EOF):
			s.writeStatus(w, r, http.StatusBadRequest, errors.New("request body is required"))
		default:
			s.writeStatus(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		}
		return false
	}
	return true
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status mapped from err. Internal errors are
// logged and reported without their detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		s.writeJSON(w, r, status, errorResponse{Error: "internal error"})
		return
	}
	s.writeStatus(w, r, status, err)
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Warn("request failed",
			slog.Int("status", status), slog.Any("error", err))
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}
