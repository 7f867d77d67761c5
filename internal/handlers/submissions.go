package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	videoUploadURLTTL = 15 * time.Minute
	videoPlaybackTTL  = 1 * time.Hour
	maxUploadParts    = 64
)

// SubmissionHandler handles challenge submission HTTP requests
type SubmissionHandler struct {
	submissionService *services.SubmissionService
	storageService    *services.StorageService
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissionService *services.SubmissionService, storageService *services.StorageService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		storageService:    storageService,
	}
}

// Create handles POST /api/v1/submissions
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.submissionService.Create(ctx, userID, req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create submission")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("submission_id", sub.ID).Msg("Submission created")

	respondJSON(w, http.StatusCreated, sub)
}

// List handles GET /api/v1/submissions
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	subs, err := h.submissionService.List(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// Delete handles DELETE /api/v1/submissions/{submission_id}
func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	subID := chi.URLParam(r, "submission_id")

	if err := h.submissionService.Delete(ctx, userID, subID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("submission_id", subID).Msg("Failed to delete submission")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("submission_id", subID).Msg("Submission deleted")

	w.WriteHeader(http.StatusNoContent)
}

// Vote handles POST /api/v1/submissions/{submission_id}/vote
func (h *SubmissionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID := chi.URLParam(r, "submission_id")

	votes, err := h.submissionService.Vote(ctx, subID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"votes": votes})
}

// StartUploadRequest represents the request body for opening a resumable
// video upload
type StartUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Parts       int    `json:"parts"`
}

// StartUpload handles POST /api/v1/submissions/uploads
func (h *SubmissionHandler) StartUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req StartUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		respondError(w, "filename is required", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "video/mp4"
	}
	if req.Parts <= 0 {
		req.Parts = 1
	}
	if req.Parts > maxUploadParts {
		respondError(w, fmt.Sprintf("parts must be at most %d", maxUploadParts), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	key := fmt.Sprintf("submissions/%s/%s%s", userID, id, path.Ext(req.Filename))

	session, err := h.storageService.StartVideoUpload(ctx, key, req.ContentType, req.Parts, videoUploadURLTTL)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to start video upload")
		respondError(w, "Failed to start upload", http.StatusInternalServerError)
		return
	}

	// Thumbnails are small enough for a single direct PUT.
	thumbKey := fmt.Sprintf("submissions/%s/%s.jpg", userID, id)
	thumbURL, err := h.storageService.PresignPut(ctx, thumbKey, "image/jpeg", videoUploadURLTTL)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to presign thumbnail upload")
		respondError(w, "Failed to start upload", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", userID).Str("key", key).Int("parts", req.Parts).Msg("Video upload started")

	respondJSON(w, http.StatusOK, map[string]any{
		"session":              session,
		"thumbnail_key":        thumbKey,
		"thumbnail_upload_url": thumbURL,
	})
}

// CompleteUploadRequest represents the request body for finishing a
// resumable video upload
type CompleteUploadRequest struct {
	Key      string                   `json:"key"`
	UploadID string                   `json:"upload_id"`
	Parts    []services.CompletedPart `json:"parts"`
}

// CompleteUpload handles POST /api/v1/submissions/uploads/complete
func (h *SubmissionHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Key == "" || req.UploadID == "" || len(req.Parts) == 0 {
		respondError(w, "key, upload_id and parts are required", http.StatusBadRequest)
		return
	}

	if err := h.storageService.CompleteVideoUpload(ctx, req.Key, req.UploadID, req.Parts); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("key", req.Key).Msg("Failed to complete video upload")
		respondError(w, "Failed to complete upload", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", userID).Str("key", req.Key).Msg("Video upload completed")

	respondJSON(w, http.StatusOK, map[string]string{"storage_key": req.Key})
}

// VideoURL handles GET /api/v1/submissions/{submission_id}/video-url.
// Uploaded videos get a time-limited signed URL; link submissions return
// their external URL as-is.
func (h *SubmissionHandler) VideoURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subID := chi.URLParam(r, "submission_id")

	sub, err := h.submissionService.Get(ctx, subID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !sub.HasStoredVideo() {
		if sub.VideoURL == nil {
			respondError(w, "submission has no video", http.StatusNotFound)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"url": *sub.VideoURL})
		return
	}

	url, err := h.storageService.SignedURL(ctx, *sub.StorageKey, videoPlaybackTTL)
	if err != nil {
		log.Error().Err(err).Str("submission_id", subID).Msg("Failed to sign video URL")
		respondError(w, "Failed to sign URL", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
