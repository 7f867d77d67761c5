package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/models"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService       *services.UserService
	membershipService *services.MembershipService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, membershipService *services.MembershipService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		membershipService: membershipService,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AuthResponse carries a user and their session token
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register handles POST /api/v1/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to register user")
		respondServiceError(w, err)
		return
	}

	token, err := h.userService.GenerateJWT(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		respondError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")

	respondJSON(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.userService.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User logged in")

	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	user, err := h.userService.Get(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	CityID      *string `json:"city_id,omitempty"`
}

// UpdateProfile handles PUT /api/v1/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdateProfile(ctx, userID, req.DisplayName, req.AvatarURL, req.CityID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
		respondServiceError(w, err)
		return
	}

	user, err := h.userService.Get(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushTokenRequest represents the request body for push token updates
type UpdatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/v1/users/{user_id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targetID := chi.URLParam(r, "user_id")

	profile, err := h.userService.GetProfile(ctx, targetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// GrantXPRequest represents the request body for XP grants
type GrantXPRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

// GrantXP handles POST /api/v1/me/xp
func (h *UserHandler) GrantXP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req GrantXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	xp, level, err := h.userService.GrantXP(ctx, userID, req.Amount)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to grant xp")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Int("amount", req.Amount).Str("reason", req.Reason).Msg("XP granted")

	respondJSON(w, http.StatusOK, map[string]int{"xp": xp, "level": level})
}

// UpgradeTierRequest represents the request body for tier upgrades
type UpgradeTierRequest struct {
	Tier      models.Tier `json:"tier"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// UpgradeTier handles POST /api/v1/me/tier
func (h *UserHandler) UpgradeTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpgradeTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpgradeTier(ctx, userID, req.Tier, req.ExpiresAt); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to upgrade tier")
		respondServiceError(w, err)
		return
	}

	// Resolve with force so the response reflects the upgrade immediately.
	tier, err := h.membershipService.EffectiveTierFor(ctx, userID, true)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("tier", string(tier)).Msg("Tier upgraded")

	respondJSON(w, http.StatusOK, map[string]any{"effective_tier": tier})
}

// Membership handles GET /api/v1/me/membership
func (h *UserHandler) Membership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	force := r.URL.Query().Get("force") == "true"

	tier, err := h.membershipService.EffectiveTierFor(ctx, userID, force)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	decision, err := h.membershipService.CanSubmit(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"effective_tier": tier,
		"submission":     decision,
	})
}
