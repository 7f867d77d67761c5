package handlers

import (
	"net/http"
	"strconv"

	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DiscoveryHandler handles city search and city-scoped listings
type DiscoveryHandler struct {
	discoveryService *services.DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *services.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
	}
}

func parsePagination(r *http.Request) (int, int) {
	limit, offset := 50, 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = parsed
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}

// SearchCities handles GET /api/v1/cities/search
func (h *DiscoveryHandler) SearchCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	selected := r.URL.Query().Get("selected")

	cities, err := h.discoveryService.SearchCities(ctx, query, selected)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search cities")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

// ListCreatives handles GET /api/v1/cities/{city_id}/creatives
func (h *DiscoveryHandler) ListCreatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cityID := chi.URLParam(r, "city_id")
	limit, offset := parsePagination(r)

	profiles, err := h.discoveryService.ListCreatives(ctx, cityID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"creatives": profiles})
}

// ListOpenJobs handles GET /api/v1/cities/{city_id}/jobs
func (h *DiscoveryHandler) ListOpenJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cityID := chi.URLParam(r, "city_id")
	limit, offset := parsePagination(r)

	jobs, err := h.discoveryService.ListOpenJobs(ctx, cityID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}
