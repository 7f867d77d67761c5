package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"filmcrew-backend/internal/services"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// statusForError maps service errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrAlreadyApplied),
		errors.Is(err, services.ErrAlreadySupporting),
		errors.Is(err, services.ErrNotSupporting),
		errors.Is(err, services.ErrJobClosed):
		return http.StatusConflict
	case errors.Is(err, services.ErrTierTooLow),
		errors.Is(err, services.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrSelfConversation),
		errors.Is(err, services.ErrSelfApply),
		errors.Is(err, services.ErrSelfSupport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError maps a service error to a status and sends it
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, err.Error(), statusForError(err))
}
