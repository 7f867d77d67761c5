package services

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubmissionService handles monthly challenge submissions
type SubmissionService struct {
	submissionRepo SubmissionStore
	membership     *MembershipService
	storage        ObjectStorage
	now            func() time.Time
}

// NewSubmissionService creates a new submission service. A nil now
// defaults to time.Now.
func NewSubmissionService(submissionRepo SubmissionStore, membership *MembershipService, storage ObjectStorage, now func() time.Time) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{
		submissionRepo: submissionRepo,
		membership:     membership,
		storage:        storage,
		now:            now,
	}
}

// CreateSubmissionRequest carries the fields of a new submission. Exactly
// one of VideoURL (external link) and StorageKey (uploaded video) must be
// set.
type CreateSubmissionRequest struct {
	Title        *string `json:"title,omitempty"`
	WordPrompt   *string `json:"word_prompt,omitempty"`
	VideoURL     *string `json:"video_url,omitempty"`
	StorageKey   *string `json:"storage_key,omitempty"`
	ThumbnailKey *string `json:"thumbnail_key,omitempty"`
}

// Create records a challenge submission after checking the monthly quota
func (s *SubmissionService) Create(ctx context.Context, userID string, req CreateSubmissionRequest) (*models.Submission, error) {
	hasLink := req.VideoURL != nil && *req.VideoURL != ""
	hasUpload := req.StorageKey != nil && *req.StorageKey != ""
	if hasLink == hasUpload {
		return nil, fmt.Errorf("exactly one of video_url and storage_key is required")
	}

	decision, err := s.membership.CanSubmit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		switch decision.Reason {
		case ReasonTierTooLow:
			return nil, ErrTierTooLow
		default:
			return nil, ErrQuotaExhausted
		}
	}

	sub := &models.Submission{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        req.Title,
		WordPrompt:   req.WordPrompt,
		VideoURL:     req.VideoURL,
		StorageKey:   req.StorageKey,
		ThumbnailKey: req.ThumbnailKey,
		SubmittedAt:  s.now(),
	}

	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return sub, nil
}

// List retrieves a user's submissions
func (s *SubmissionService) List(ctx context.Context, userID string) ([]*models.Submission, error) {
	return s.submissionRepo.ListByUser(ctx, userID)
}

// Get retrieves a submission by ID
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return sub, nil
}

// Delete removes a submission. The database delete is authoritative;
// storage cleanup of an uploaded video is best-effort and never fails the
// delete. Link-only submissions make no storage calls at all.
func (s *SubmissionService) Delete(ctx context.Context, userID, id string) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return ErrForbidden
	}

	if err := s.submissionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	if sub.HasStoredVideo() {
		if err := s.storage.Delete(ctx, *sub.StorageKey); err != nil {
			log.Warn().Err(err).Str("submission_id", id).Msg("Failed to clean up stored video")
		}
		if sub.ThumbnailKey != nil && *sub.ThumbnailKey != "" {
			if err := s.storage.Delete(ctx, *sub.ThumbnailKey); err != nil {
				log.Warn().Err(err).Str("submission_id", id).Msg("Failed to clean up thumbnail")
			}
		}
	}

	return nil
}

// Vote adds a vote to a submission and returns the new count
func (s *SubmissionService) Vote(ctx context.Context, id string) (int, error) {
	votes, err := s.submissionRepo.IncrementVotes(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return votes, nil
}
