package repository

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SupportRepository handles database operations for the supports graph
type SupportRepository struct {
	db *pgxpool.Pool
}

// NewSupportRepository creates a new support repository
func NewSupportRepository(db *pgxpool.Pool) *SupportRepository {
	return &SupportRepository{db: db}
}

// Create inserts a support edge. The pair is unique at the database level;
// inserting an existing edge reports inserted=false.
func (r *SupportRepository) Create(ctx context.Context, supporterID, supportedID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO supports (supporter_id, supported_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (supporter_id, supported_id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, supporterID, supportedID, at)
	if err != nil {
		return false, fmt.Errorf("failed to create support: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Delete removes a support edge
func (r *SupportRepository) Delete(ctx context.Context, supporterID, supportedID string) (bool, error) {
	query := `DELETE FROM supports WHERE supporter_id = $1 AND supported_id = $2`
	result, err := r.db.Exec(ctx, query, supporterID, supportedID)
	if err != nil {
		return false, fmt.Errorf("failed to delete support: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Exists checks whether supporter supports supported
func (r *SupportRepository) Exists(ctx context.Context, supporterID, supportedID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM supports WHERE supporter_id = $1 AND supported_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, supporterID, supportedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check support: %w", err)
	}
	return exists, nil
}

// ListSupporting retrieves profiles of users the given user supports
func (r *SupportRepository) ListSupporting(ctx context.Context, userID string) ([]models.Profile, error) {
	query := `
		SELECT u.id, u.display_name, u.avatar_url, u.city_id, u.level
		FROM supports s
		JOIN users u ON u.id = s.supported_id
		WHERE s.supporter_id = $1
		ORDER BY s.created_at DESC
	`
	return r.listProfiles(ctx, query, userID)
}

// ListSupporters retrieves profiles of users who support the given user
func (r *SupportRepository) ListSupporters(ctx context.Context, userID string) ([]models.Profile, error) {
	query := `
		SELECT u.id, u.display_name, u.avatar_url, u.city_id, u.level
		FROM supports s
		JOIN users u ON u.id = s.supporter_id
		WHERE s.supported_id = $1
		ORDER BY s.created_at DESC
	`
	return r.listProfiles(ctx, query, userID)
}

func (r *SupportRepository) listProfiles(ctx context.Context, query, userID string) ([]models.Profile, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supports: %w", err)
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
		return nil, fmt.Errorf("error iterating supports: %w", err)
	}

	return profiles, nil
}
