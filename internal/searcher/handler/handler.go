package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/logger"
)

type Handler struct {
	service *searcher.Service
	logger  *slog.Logger
}

func New(service *searcher.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/spell", h.Spell)
	mux.HandleFunc("GET /api/v1/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&type=&ranking=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if params.Get("q") == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.limit(w, params.Get("limit"))
	if !ok {
		return
	}
	result, cacheHit, err := h.service.Search(r.Context(), searcher.SearchParams{
		Query:   params.Get("q"),
		Type:    params.Get("type"),
		Ranking: params.Get("ranking"),
		Limit:   limit,
	})
	if err != nil {
		h.fail(w, r, "search failed", err)
		return
	}
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Spell serves GET /api/v1/spell?q=&limit=.
func (h *Handler) Spell(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if params.Get("q") == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.limit(w, params.Get("limit"))
	if !ok {
		return
	}
	result, err := h.service.Spell(r.Context(), params.Get("q"), limit)
	if err != nil {
		h.fail(w, r, "spell check failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.IndexStats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.service.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.service.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := c.Invalidate(r.Context())
	if err != nil {
		h.fail(w, r, "cache invalidation failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// limit parses the optional limit parameter; 0 means the configured default.
func (h *Handler) limit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

// fail maps err to its status. Client errors carry the error text, server
// errors only message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(message, "error", err, "status_code", status)
		h.writeError(w, status, message)
		return
	}
	log.Warn(message, "error", err, "status_code", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
