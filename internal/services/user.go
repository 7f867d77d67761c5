package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpDays = 30
	xpPerLevel = 1000
)

// UserService handles user-related business logic
type UserService struct {
	userRepo  UserStore
	jwtSecret string

	// onTierChange is invoked after a tier mutation so the membership
	// cache can drop its stale entry. Set at wiring time.
	onTierChange func(userID string)
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, jwtSecret string) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

// SetTierChangeHook registers the callback invoked after tier mutations
func (s *UserService) SetTierChangeHook(fn func(userID string)) {
	s.onTierChange = fn
}

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" || displayName == "" {
		return nil, fmt.Errorf("email, password and display name are required")
	}

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Tier:         models.TierFree,
		Level:        1,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns the user with a fresh JWT
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return user, nil
}

// GetProfile retrieves the public profile of a user
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	profile := user.PublicProfile()
	return &profile, nil
}

// UpdateProfile updates a user's editable profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID, displayName string, avatarURL, cityID *string) error {
	if displayName == "" {
		return fmt.Errorf("display name is required")
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, displayName, avatarURL, cityID); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePushToken stores or clears a user's push token
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return s.userRepo.UpdatePushToken(ctx, userID, pushToken)
}

// LevelForXP computes the level a given xp total corresponds to
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return 1 + xp/xpPerLevel
}

// GrantXP adds xp to a user and recomputes their level. Returns the new
// xp total and level.
func (s *UserService) GrantXP(ctx context.Context, userID string, amount int) (int, int, error) {
	if amount <= 0 {
		return 0, 0, fmt.Errorf("xp amount must be positive")
	}

	xp, err := s.userRepo.AddXP(ctx, userID, amount)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to grant xp: %w", err)
	}

	level := LevelForXP(xp)
	if err := s.userRepo.SetLevel(ctx, userID, level); err != nil {
		return 0, 0, fmt.Errorf("failed to update level: %w", err)
	}

	return xp, level, nil
}

// UpgradeTier sets a user's tier and premium expiry, then invalidates the
// cached effective tier so gated actions see the change immediately.
func (s *UserService) UpgradeTier(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	if tier != models.TierFree && tier != models.TierPro {
		return fmt.Errorf("unknown tier %q", tier)
	}

	if err := s.userRepo.UpgradeTier(ctx, userID, tier, expiresAt); err != nil {
		return fmt.Errorf("failed to upgrade tier: %w", err)
	}

	if s.onTierChange != nil {
		s.onTierChange(userID)
	}

	return nil
}
