package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"filmcrew-backend/internal/models"
)

// EffectiveTier reconciles the three independent pro signals: the stored
// tier, the premium flag, and a premium expiry still in the future. A user
// is pro through any one of subscription, manual grant, or a grace period
// after cancellation.
func EffectiveTier(stored models.Tier, premium bool, expiresAt *time.Time, now time.Time) models.Tier {
	if stored == models.TierPro || premium {
		return models.TierPro
	}
	if expiresAt != nil && expiresAt.After(now) {
		return models.TierPro
	}
	return models.TierFree
}

// MonthKey returns the quota bucket for a point in time: the first of the
// month as a date string.
func MonthKey(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format("2006-01-02")
}

func monthRange(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}

// RemainingQuota clamps limit minus used to zero; it never goes negative.
func RemainingQuota(limit, used int) int {
	if used < 0 {
		used = 0
	}
	remaining := limit - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SubmitDecision is the result of a quota check.
type SubmitDecision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Remaining int    `json:"remaining"`
}

const (
	ReasonTierTooLow     = "tier_too_low"
	ReasonQuotaExhausted = "quota_exhausted"
)

type tierEntry struct {
	tier      models.Tier
	expiresAt time.Time
}

// TierCache caches resolved effective tiers for a short TTL so gated
// actions do not hit the database on every call. The clock is injectable
// so tests control expiry.
type TierCache struct {
	mu      sync.Mutex
	entries map[string]tierEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewTierCache creates a tier cache with the given TTL
func NewTierCache(ttl time.Duration, now func() time.Time) *TierCache {
	if now == nil {
		now = time.Now
	}
	return &TierCache{
		entries: make(map[string]tierEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached tier for a user, if present and fresh
func (c *TierCache) Get(userID string) (models.Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, userID)
		return "", false
	}
	return entry.tier, true
}

// Set caches a resolved tier
func (c *TierCache) Set(userID string, tier models.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = tierEntry{tier: tier, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops the cached tier for a user
func (c *TierCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// MembershipService resolves effective tiers and submission quotas
type MembershipService struct {
	userRepo       UserStore
	submissionRepo SubmissionStore
	cache          *TierCache
	limits         map[models.Tier]int
	now            func() time.Time
}

// NewMembershipService creates a new membership service. A nil now
// defaults to time.Now.
func NewMembershipService(userRepo UserStore, submissionRepo SubmissionStore, cacheTTL time.Duration, freeLimit, proLimit int, now func() time.Time) *MembershipService {
	if now == nil {
		now = time.Now
	}
	return &MembershipService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		cache:          NewTierCache(cacheTTL, now),
		limits: map[models.Tier]int{
			models.TierFree: freeLimit,
			models.TierPro:  proLimit,
		},
		now: now,
	}
}

// EffectiveTierFor resolves a user's effective tier, consulting the cache
// unless force is set (used immediately after an upgrade action).
func (s *MembershipService) EffectiveTierFor(ctx context.Context, userID string, force bool) (models.Tier, error) {
	if !force {
		if tier, ok := s.cache.Get(userID); ok {
			return tier, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tier: %w", err)
	}

	tier := EffectiveTier(user.Tier, user.IsPremium, user.PremiumExpiresAt, s.now())
	s.cache.Set(userID, tier)
	return tier, nil
}

// Invalidate drops a user's cached tier; call after tier mutations
func (s *MembershipService) Invalidate(userID string) {
	s.cache.Invalidate(userID)
}

// MonthlyLimit returns the submission limit for a tier
func (s *MembershipService) MonthlyLimit(tier models.Tier) int {
	return s.limits[tier]
}

// CanSubmit decides whether a user may submit to the monthly challenge.
// Users on a tier with no quota get tier_too_low; users over their
// monthly quota get quota_exhausted.
func (s *MembershipService) CanSubmit(ctx context.Context, userID string) (*SubmitDecision, error) {
	tier, err := s.EffectiveTierFor(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	limit := s.limits[tier]
	if limit <= 0 {
		return &SubmitDecision{Allowed: false, Reason: ReasonTierTooLow}, nil
	}

	from, to := monthRange(s.now())
	used, err := s.submissionRepo.CountForRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	remaining := RemainingQuota(limit, used)
	if remaining == 0 {
		return &SubmitDecision{Allowed: false, Reason: ReasonQuotaExhausted}, nil
	}

	return &SubmitDecision{Allowed: true, Remaining: remaining}, nil
}
