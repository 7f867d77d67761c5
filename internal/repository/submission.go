package repository

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository handles database operations for challenge submissions
type SubmissionRepository struct {
	db *pgxpool.Pool
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, user_id, title, word_prompt, video_url, storage_key,
	thumbnail_key, votes, submitted_at`

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Title, &sub.WordPrompt, &sub.VideoURL,
		&sub.StorageKey, &sub.ThumbnailKey, &sub.Votes, &sub.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create creates a new submission
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (id, user_id, title, word_prompt, video_url, storage_key,
			thumbnail_key, votes, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.UserID, sub.Title, sub.WordPrompt, sub.VideoURL,
		sub.StorageKey, sub.ThumbnailKey, sub.Votes, sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("submission not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ListByUser retrieves a user's submissions, newest first
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY submitted_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return subs, nil
}

// Delete deletes a submission by ID
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM submissions WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("submission not found")
	}
	return nil
}

// IncrementVotes adds one vote to a submission and returns the new count
func (r *SubmissionRepository) IncrementVotes(ctx context.Context, id string) (int, error) {
	query := `UPDATE submissions SET votes = votes + 1 WHERE id = $1 RETURNING votes`
	var votes int
	err := r.db.QueryRow(ctx, query, id).Scan(&votes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("submission not found: %w", err)
		}
		return 0, fmt.Errorf("failed to increment votes: %w", err)
	}
	return votes, nil
}

// CountForRange counts a user's submissions in [from, to)
func (r *SubmissionRepository) CountForRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM submissions
		WHERE user_id = $1 AND submitted_at >= $2 AND submitted_at < $3
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}
