package errors

import (
	"errors"
	"fmt"
)

var (
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUsernameTaken        = errors.New("username already in use")
	ErrEmailAlreadyInUse    = errors.New("email already in use")

	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrBadSignature       = errors.New("token signature invalid")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrInvalidFingerprint = errors.New("invalid device fingerprint")
	ErrRefreshExhausted   = errors.New("refresh token exhausted")

	ErrAccountInactive       = errors.New("account inactive")
	ErrVerificationRequired  = errors.New("business verification required")
	ErrOutsideAccessHours    = errors.New("access restricted to university hours")
	ErrUserAgentRequired     = errors.New("user agent header required")
	ErrInvalidClientAddress  = errors.New("invalid client address")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrSchoolIDRequired      = errors.New("school ID is required for student registration")
	ErrInvalidSchoolIDFormat = errors.New("invalid school ID format")

	ErrMoveInNotFuture  = errors.New("move-in date must be after today")
	ErrInvalidDateRange = errors.New("move-out date must be after move-in date")

	ErrBookingConflict   = errors.New("dates conflict with an existing booking")
	ErrDuplicateBooking  = errors.New("booking for these dates already exists")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrDormNotFound      = errors.New("dorm not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBusy signals lock contention; callers may retry with backoff.
	ErrBusy = errors.New("resource busy, retry later")
)

// InvalidTransitionError names the offending source and target states.
// errors.Is(err, ErrInvalidTransition) matches it.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
