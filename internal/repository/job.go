package repository

import (
	"context"
	"fmt"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository handles database operations for jobs and applications
type JobRepository struct {
	db *pgxpool.Pool
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, owner_id, role, city_id, compensation, paid, open, created_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID, &job.OwnerID, &job.Role, &job.CityID, &job.Compensation,
		&job.Paid, &job.Open, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Create creates a new job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, owner_id, role, city_id, compensation, paid, open, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID, job.OwnerID, job.Role, job.CityID, job.Compensation,
		job.Paid, job.Open, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListOpenByCity retrieves open jobs in a city, newest first
func (r *JobRepository) ListOpenByCity(ctx context.Context, cityID string, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE city_id = $1 AND open = true
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, cityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

// Close marks a job as closed
func (r *JobRepository) Close(ctx context.Context, jobID string) error {
	query := `UPDATE jobs SET open = false WHERE id = $1`
	result, err := r.db.Exec(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("failed to close job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job not found")
	}
	return nil
}

// CreateApplication inserts an application. The (job, applicant) pair is
// unique at the database level, so two racing applies yield exactly one
// row; the losing insert reports inserted=false.
func (r *JobRepository) CreateApplication(ctx context.Context, app *models.Application) (bool, error) {
	query := `
		INSERT INTO applications (id, job_id, applicant_id, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, applicant_id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, app.ID, app.JobID, app.ApplicantID, app.AppliedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create application: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListApplicationsByJob retrieves applications for a job, oldest first
func (r *JobRepository) ListApplicationsByJob(ctx context.Context, jobID string) ([]*models.Application, error) {
	query := `
		SELECT id, job_id, applicant_id, applied_at
		FROM applications
		WHERE job_id = $1
		ORDER BY applied_at ASC
	`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.ID, &app.JobID, &app.ApplicantID, &app.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, &app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

// HasApplied checks if a user already applied to a job
func (r *JobRepository) HasApplied(ctx context.Context, jobID, applicantID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, jobID, applicantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}
	return exists, nil
}
