package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AldJayR/DormFinder/internal/auth/domain"
	"github.com/AldJayR/DormFinder/internal/auth/fingerprint"
	"github.com/AldJayR/DormFinder/internal/auth/store"
	"github.com/AldJayR/DormFinder/internal/auth/token"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

// AccessPolicy is a pluggable business-policy hook evaluated after the
// security checks pass. It is not a security boundary.
type AccessPolicy func(user *domain.User, now time.Time) error

// HourWindowPolicy restricts the student role to a configured hour range.
func HourWindowPolicy(startHour, endHour int) AccessPolicy {
	return func(user *domain.User, now time.Time) error {
		if user.Role != constant.RoleStudent {
			return nil
		}
		hour := now.Hour()
		if hour < startHour || hour >= endHour {
			return apperrors.ErrOutsideAccessHours
		}
		return nil
	}
}

// Identity is the result of a fully authenticated request.
type Identity struct {
	User   *domain.User
	Claims *token.Claims
	Raw    string
}

// Authenticator walks an inbound bearer token through the full check
// pipeline: lockout, context sanity, signature/expiry, revocation, device
// fingerprint, account state and role policy. Every rejection is audit-logged
// and recorded against the client's failure counter; none is silently
// swallowed.
type Authenticator struct {
	tokens      *TokenService
	users       domain.UserRepository
	revocations store.RevocationStore
	failures    store.FailureCounterStore
	policy      AccessPolicy
	hashSecret  string
	maxFailures int
	window      time.Duration
	logger      *zap.Logger
}

func NewAuthenticator(
	tokens *TokenService,
	users domain.UserRepository,
	revocations store.RevocationStore,
	failures store.FailureCounterStore,
	policy AccessPolicy,
	hashSecret string,
	maxFailures int,
	window time.Duration,
	logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		tokens:      tokens,
		users:       users,
		revocations: revocations,
		failures:    failures,
		policy:      policy,
		hashSecret:  hashSecret,
		maxFailures: maxFailures,
		window:      window,
		logger:      logger,
	}
}

// IsLockedOut reports whether the client key has exceeded the failure
// threshold inside the rolling window. Counter read errors fail closed.
func (a *Authenticator) IsLockedOut(clientKey string) bool {
	count, err := a.failures.Count(clientKey)
	if err != nil {
		a.logger.Error("failure counter unreachable, failing closed",
			zap.String("client", clientKey), zap.Error(err))
		return true
	}
	return count > a.maxFailures
}

// RecordFailure bumps the client's failure counter, resetting its window.
func (a *Authenticator) RecordFailure(clientKey string) {
	if _, err := a.failures.Increment(clientKey, a.window); err != nil {
		a.logger.Error("failed to record auth failure",
			zap.String("client", clientKey), zap.Error(err))
	}
}

// Authenticate validates a raw access token against the full pipeline and
// returns the caller's identity. The typed error identifies which check
// failed; handlers must collapse everything except lockout into one generic
// authentication failure before it reaches a client.
func (a *Authenticator) Authenticate(ctx context.Context, raw string, reqCtx fingerprint.Context) (*Identity, error) {
	if a.IsLockedOut(reqCtx.IPAddress) {
		a.audit("", reqCtx, false, apperrors.ErrTooManyLoginAttempts)
		return nil, apperrors.ErrTooManyLoginAttempts
	}

	if reqCtx.UserAgent == "" {
		return nil, a.reject("", reqCtx, apperrors.ErrUserAgentRequired)
	}
	if reqCtx.IPAddress == "" || len(reqCtx.IPAddress) > constant.MaxClientIPLen {
		return nil, a.reject("", reqCtx, apperrors.ErrInvalidClientAddress)
	}

	claims, err := a.tokens.ValidateAccess(raw)
	if err != nil {
		return nil, a.reject("", reqCtx, err)
	}

	revoked, err := a.revocations.IsRevoked(store.TokenDigest(a.hashSecret, raw))
	if err != nil {
		// Ledger unreachable: a dead ledger must not make every
		// revoked token valid again.
		a.logger.Error("revocation ledger unreachable, failing closed", zap.Error(err))
		revoked = true
	}
	if revoked {
		return nil, a.reject(claims.UserID, reqCtx, apperrors.ErrTokenRevoked)
	}

	if err := a.tokens.VerifyFingerprint(claims, reqCtx); err != nil {
		return nil, a.reject(claims.UserID, reqCtx, err)
	}

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, a.reject(claims.UserID, reqCtx, err)
	}
	if user == nil {
		return nil, a.reject(claims.UserID, reqCtx, apperrors.ErrInvalidCredentials)
	}

	if !user.IsActive {
		return nil, a.reject(user.ID, reqCtx, apperrors.ErrAccountInactive)
	}
	if user.Role == constant.RoleDormOwner && !user.IsVerified {
		return nil, a.reject(user.ID, reqCtx, apperrors.ErrVerificationRequired)
	}

	if a.policy != nil {
		if err := a.policy(user, time.Now()); err != nil {
			return nil, a.reject(user.ID, reqCtx, err)
		}
	}

	a.audit(user.ID, reqCtx, true, nil)

	return &Identity{User: user, Claims: claims, Raw: raw}, nil
}

// reject audit-logs the failed transition, feeds the failure counter and
// hands the typed cause back to the caller.
func (a *Authenticator) reject(subject string, reqCtx fingerprint.Context, cause error) error {
	a.audit(subject, reqCtx, false, cause)
	a.RecordFailure(reqCtx.IPAddress)
	return cause
}

func (a *Authenticator) audit(subject string, reqCtx fingerprint.Context, success bool, cause error) {
	fields := []zap.Field{
		zap.String("subject", subject),
		zap.String("ip", reqCtx.IPAddress),
		zap.String("user_agent", reqCtx.UserAgent),
		zap.Bool("success", success),
		zap.Time("timestamp", time.Now()),
	}
	if cause != nil {
		fields = append(fields, zap.String("reason", cause.Error()))
	}
	a.logger.Info("auth attempt", fields...)
}
