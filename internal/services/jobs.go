package services

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/google/uuid"
)

// JobService handles job postings and applications
type JobService struct {
	jobRepo    JobStore
	membership *MembershipService
	now        func() time.Time
}

// NewJobService creates a new job service. A nil now defaults to time.Now.
func NewJobService(jobRepo JobStore, membership *MembershipService, now func() time.Time) *JobService {
	if now == nil {
		now = time.Now
	}
	return &JobService{
		jobRepo:    jobRepo,
		membership: membership,
		now:        now,
	}
}

// Create posts a new job
func (s *JobService) Create(ctx context.Context, ownerID, role, cityID string, compensation *string, paid bool) (*models.Job, error) {
	if role == "" {
		return nil, fmt.Errorf("role is required")
	}
	if cityID == "" {
		return nil, fmt.Errorf("city is required")
	}

	job := &models.Job{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Role:         role,
		CityID:       cityID,
		Compensation: compensation,
		Paid:         paid,
		Open:         true,
		CreatedAt:    s.now(),
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

// Get retrieves a job by ID
func (s *JobService) Get(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return job, nil
}

// Close marks a job closed; only the owner may close it
func (s *JobService) Close(ctx context.Context, jobID, userID string) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.OwnerID != userID {
		return ErrForbidden
	}
	return s.jobRepo.Close(ctx, jobID)
}

// Apply applies a user to a job. Application eligibility is gated on the
// pro tier, and the (job, applicant) pair is unique at the database level,
// so two racing applies yield exactly one application row.
func (s *JobService) Apply(ctx context.Context, jobID, applicantID string) (*models.Application, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Open {
		return nil, ErrJobClosed
	}
	if job.OwnerID == applicantID {
		return nil, ErrSelfApply
	}

	tier, err := s.membership.EffectiveTierFor(ctx, applicantID, false)
	if err != nil {
		return nil, err
	}
	if tier != models.TierPro {
		return nil, ErrTierTooLow
	}

	app := &models.Application{
		ID:          uuid.New().String(),
		JobID:       jobID,
		ApplicantID: applicantID,
		AppliedAt:   s.now(),
	}

	inserted, err := s.jobRepo.CreateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyApplied
	}

	return app, nil
}

// Applications lists a job's applications; only the owner may see them
func (s *JobService) Applications(ctx context.Context, jobID, userID string) ([]*models.Application, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != userID {
		return nil, ErrForbidden
	}
	return s.jobRepo.ListApplicationsByJob(ctx, jobID)
}

// HasApplied reports whether a user already applied to a job
func (s *JobService) HasApplied(ctx context.Context, jobID, userID string) (bool, error) {
	return s.jobRepo.HasApplied(ctx, jobID, userID)
}
