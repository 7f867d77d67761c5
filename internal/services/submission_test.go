package services

import (
	"context"
	"testing"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestSubmissionService(subs *fakeSubmissionStore, users *fakeUserStore, storage *fakeStorage, proLimit int) *SubmissionService {
	membership := NewMembershipService(users, subs, time.Minute, 0, proLimit, nil)
	return NewSubmissionService(subs, membership, storage, nil)
}

func TestCreateSubmissionRequiresExactlyOneSource(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierPro})
	svc := newTestSubmissionService(newFakeSubmissionStore(), users, newFakeStorage(), 4)

	_, err := svc.Create(context.Background(), "u1", CreateSubmissionRequest{})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), "u1", CreateSubmissionRequest{
		VideoURL:   strPtr("https://vimeo.com/123"),
		StorageKey: strPtr("submissions/u1/abc.mp4"),
	})
	require.Error(t, err)
}

func TestCreateSubmissionOptionalFieldsOmitted(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierPro})
	subs := newFakeSubmissionStore()
	svc := newTestSubmissionService(subs, users, newFakeStorage(), 4)

	// Title and word prompt are optional; a bare link submits fine and the
	// stored row keeps them unset.
	sub, err := svc.Create(context.Background(), "u1", CreateSubmissionRequest{
		VideoURL: strPtr("https://vimeo.com/123"),
	})
	require.NoError(t, err)
	require.Nil(t, sub.Title)
	require.Nil(t, sub.WordPrompt)

	stored, err := subs.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Title)
	require.Nil(t, stored.WordPrompt)
}

func TestCreateSubmissionFreeTier(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierFree})
	svc := newTestSubmissionService(newFakeSubmissionStore(), users, newFakeStorage(), 4)

	_, err := svc.Create(context.Background(), "u1", CreateSubmissionRequest{
		VideoURL: strPtr("https://vimeo.com/123"),
	})
	require.ErrorIs(t, err, ErrTierTooLow)
}

func TestCreateSubmissionQuotaExhausted(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierPro})
	subs := newFakeSubmissionStore()
	svc := newTestSubmissionService(subs, users, newFakeStorage(), 1)

	_, err := svc.Create(context.Background(), "u1", CreateSubmissionRequest{
		VideoURL: strPtr("https://vimeo.com/123"),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "u1", CreateSubmissionRequest{
		VideoURL: strPtr("https://vimeo.com/456"),
	})
	require.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestDeleteLinkSubmissionMakesNoStorageCalls(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierPro})
	subs := newFakeSubmissionStore(&models.Submission{
		ID:       "s1",
		UserID:   "u1",
		VideoURL: strPtr("https://vimeo.com/123"),
	})
	storage := newFakeStorage()
	svc := newTestSubmissionService(subs, users, storage, 4)

	require.NoError(t, svc.Delete(context.Background(), "u1", "s1"))
	require.Zero(t, storage.calls)

	_, err := subs.GetByID(context.Background(), "s1")
	require.Error(t, err)
}

func TestDeleteStoredSubmissionCleansUpStorage(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1", Tier: models.TierPro})
	subs := newFakeSubmissionStore(&models.Submission{
		ID:           "s1",
		UserID:       "u1",
		StorageKey:   strPtr("submissions/u1/abc.mp4"),
		ThumbnailKey: strPtr("submissions/u1/abc.jpg"),
	})
	storage := newFakeStorage()
	svc := newTestSubmissionService(subs, users, storage, 4)

	require.NoError(t, svc.Delete(context.Background(), "u1", "s1"))
	require.ElementsMatch(t, []string{"submissions/u1/abc.mp4", "submissions/u1/abc.jpg"}, storage.deletes)
}

func TestDeleteSubmissionForbidden(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "u1"}, &models.User{ID: "u2"})
	subs := newFakeSubmissionStore(&models.Submission{
		ID:       "s1",
		UserID:   "u1",
		VideoURL: strPtr("https://vimeo.com/123"),
	})
	svc := newTestSubmissionService(subs, users, newFakeStorage(), 4)

	err := svc.Delete(context.Background(), "u2", "s1")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = subs.GetByID(context.Background(), "s1")
	require.NoError(t, err)
}

func TestVoteUnknownSubmission(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestSubmissionService(newFakeSubmissionStore(), users, newFakeStorage(), 4)

	_, err := svc.Vote(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVoteIncrements(t *testing.T) {
	users := newFakeUserStore()
	subs := newFakeSubmissionStore(&models.Submission{ID: "s1", UserID: "u1", Votes: 2})
	svc := newTestSubmissionService(subs, users, newFakeStorage(), 4)

	votes, err := svc.Vote(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, 3, votes)
}
