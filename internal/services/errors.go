package services

import "errors"

// Sentinel errors shared by all services. Handlers translate these to HTTP
// status codes with errors.Is; everything else is a 500.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotParticipant     = errors.New("user is not a participant of this conversation")
	ErrSelfConversation   = errors.New("cannot start a conversation with yourself")
	ErrAlreadyApplied     = errors.New("already applied to this job")
	ErrJobClosed          = errors.New("job is closed")
	ErrSelfApply          = errors.New("cannot apply to your own job")
	ErrAlreadySupporting  = errors.New("already supporting this user")
	ErrNotSupporting      = errors.New("not supporting this user")
	ErrSelfSupport        = errors.New("cannot support yourself")
	ErrTierTooLow         = errors.New("tier too low")
	ErrQuotaExhausted     = errors.New("monthly quota exhausted")
)
