package handlers

import (
	"encoding/json"
	"net/http"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// JobHandler handles job posting and application HTTP requests
type JobHandler struct {
	jobService *services.JobService
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
	}
}

// CreateJobRequest represents the request body for posting a job
type CreateJobRequest struct {
	Role         string  `json:"role"`
	CityID       string  `json:"city_id"`
	Compensation *string `json:"compensation,omitempty"`
	Paid         bool    `json:"paid"`
}

// Create handles POST /api/v1/jobs
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.jobService.Create(ctx, userID, req.Role, req.CityID, req.Compensation, req.Paid)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create job")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("job_id", job.ID).Msg("Job created")

	respondJSON(w, http.StatusCreated, job)
}

// Get handles GET /api/v1/jobs/{job_id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	job, err := h.jobService.Get(ctx, jobID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Close handles POST /api/v1/jobs/{job_id}/close
func (h *JobHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	if err := h.jobService.Close(ctx, jobID, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("job_id", jobID).Msg("Failed to close job")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("job_id", jobID).Msg("Job closed")

	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /api/v1/jobs/{job_id}/apply
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	app, err := h.jobService.Apply(ctx, jobID, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("job_id", jobID).Msg("Failed to apply to job")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("job_id", jobID).Msg("Applied to job")

	respondJSON(w, http.StatusCreated, app)
}

// Applications handles GET /api/v1/jobs/{job_id}/applications
func (h *JobHandler) Applications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	apps, err := h.jobService.Applications(ctx, jobID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"applications": apps})
}
