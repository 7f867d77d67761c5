package handlers

import (
	"net/http"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SupportHandler handles supports-graph HTTP requests
type SupportHandler struct {
	supportService *services.SupportService
}

// NewSupportHandler creates a new support handler
func NewSupportHandler(supportService *services.SupportService) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
	}
}

// Support handles POST /api/v1/users/{user_id}/support
func (h *SupportHandler) Support(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "user_id")

	if err := h.supportService.Support(ctx, userID, targetID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("target_id", targetID).Msg("Failed to support user")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unsupport handles DELETE /api/v1/users/{user_id}/support
func (h *SupportHandler) Unsupport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "user_id")

	if err := h.supportService.Unsupport(ctx, userID, targetID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("target_id", targetID).Msg("Failed to unsupport user")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Relationship handles GET /api/v1/users/{user_id}/relationship
func (h *SupportHandler) Relationship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	targetID := chi.URLParam(r, "user_id")

	relationship, err := h.supportService.Relationship(ctx, userID, targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"relationship": relationship})
}

// ListSupporting handles GET /api/v1/users/{user_id}/supporting
func (h *SupportHandler) ListSupporting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID := chi.URLParam(r, "user_id")

	profiles, err := h.supportService.ListSupporting(ctx, targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"supporting": profiles})
}

// ListSupporters handles GET /api/v1/users/{user_id}/supporters
func (h *SupportHandler) ListSupporters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID := chi.URLParam(r, "user_id")

	profiles, err := h.supportService.ListSupporters(ctx, targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"supporters": profiles})
}
