package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"paperfeed/internal/core"
)

// DigestResponse is the success shape for GET /api/digest/weekly.
type DigestResponse struct {
	Success bool         `json:"success"`
	TraceID string       `json:"traceId"`
	Digest  *core.Digest `json:"digest"`
}

// ErrorResponse is the failure shape for all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

// handleWeeklyDigest handles GET /api/digest/weekly.
func (s *Server) handleWeeklyDigest(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		s.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	digest, traceID, err := s.digests.Generate(r.Context(), userID)
	if err != nil {
		s.log.Error("digest generation failed", "trace_id", traceID, "error", err.Error())
		s.respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "digest generation failed",
			Details: "an internal error prevented the digest from being generated",
			TraceID: traceID,
		})
		return
	}

	s.respondJSON(w, http.StatusOK, DigestResponse{Success: true, TraceID: traceID, Digest: digest})
}

// SearchResponse is the success shape for GET /api/papers/search.
type SearchResponse struct {
	Query   string              `json:"query"`
	Results []core.SearchResult `json:"results"`
	Total   int                 `json:"total"`
}

// handleSearch handles GET /api/papers/search?q=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "query parameter q is required"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	results, err := s.search.Search(r.Context(), query, 7, limit)
	if err != nil {
		s.log.Error("paper search failed", "query", query, "error", err.Error())
		s.respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "search unavailable"})
		return
	}

	// The query feeds the profile fallback tier; recording it is best
	// effort and never blocks the response.
	if s.queries != nil && userID != "" {
		if err := s.queries.RecordQuery(r.Context(), userID, query); err != nil {
			s.log.Debug("failed to record search query", "error", err.Error())
		}
	}

	s.respondJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results, Total: len(results)})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "paperfeed",
		"status":  "ok",
	})
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode response", "error", err.Error())
	}
}
