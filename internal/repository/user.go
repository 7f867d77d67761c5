package repository

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, avatar_url, city_id,
	tier, is_premium, premium_expires_at, xp, level, push_token, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.AvatarURL, &user.CityID, &user.Tier, &user.IsPremium,
		&user.PremiumExpiresAt, &user.XP, &user.Level, &user.PushToken,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, display_name, avatar_url, city_id,
			tier, is_premium, premium_expires_at, xp, level, push_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.DisplayName, user.AvatarURL,
		user.CityID, user.Tier, user.IsPremium, user.PremiumExpiresAt,
		user.XP, user.Level, user.PushToken, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// GetProfilesByIDs retrieves public profiles for a set of user IDs in one query
func (r *UserRepository) GetProfilesByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	profiles := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	query := `
		SELECT id, display_name, avatar_url, city_id, level
		FROM users
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.CityID, &p.Level); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// ListByCity retrieves public profiles of users in a city
func (r *UserRepository) ListByCity(ctx context.Context, cityID string, limit, offset int) ([]models.Profile, error) {
	query := `
		SELECT id, display_name, avatar_url, city_id, level
		FROM users
		WHERE city_id = $1
		ORDER BY level DESC, display_name ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, cityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by city: %w", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.AvatarURL, &p.CityID, &p.Level); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

// UpdateProfile updates a user's editable profile fields
func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, displayName string, avatarURL, cityID *string) error {
	query := `UPDATE users SET display_name = $1, avatar_url = $2, city_id = $3 WHERE id = $4`
	result, err := r.db.Exec(ctx, query, displayName, avatarURL, cityID, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// GetPushTokens retrieves the push tokens registered for a set of users.
// Users without a token are absent from the result.
func (r *UserRepository) GetPushTokens(ctx context.Context, ids []string) (map[string]string, error) {
	tokens := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return tokens, nil
	}

	query := `SELECT id, push_token FROM users WHERE id = ANY($1) AND push_token IS NOT NULL`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, token string
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens[id] = token
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push tokens: %w", err)
	}

	return tokens, nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// AddXP atomically adds xp to a user and returns the new total
func (r *UserRepository) AddXP(ctx context.Context, userID string, amount int) (int, error) {
	query := `UPDATE users SET xp = xp + $1 WHERE id = $2 RETURNING xp`
	var xp int
	err := r.db.QueryRow(ctx, query, amount, userID).Scan(&xp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("user not found: %w", err)
		}
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	return xp, nil
}

// SetLevel updates a user's level
func (r *UserRepository) SetLevel(ctx context.Context, userID string, level int) error {
	query := `UPDATE users SET level = $1 WHERE id = $2`
	_, err := r.db.Exec(ctx, query, level, userID)
	if err != nil {
		return fmt.Errorf("failed to set level: %w", err)
	}
	return nil
}

// UpgradeTier sets a user's stored tier and premium expiry
func (r *UserRepository) UpgradeTier(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	query := `UPDATE users SET tier = $1, is_premium = $2, premium_expires_at = $3 WHERE id = $4`
	result, err := r.db.Exec(ctx, query, tier, tier == models.TierPro, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to upgrade tier: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}
