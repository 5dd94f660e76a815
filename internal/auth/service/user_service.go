package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AldJayR/DormFinder/internal/auth/domain"
	"github.com/AldJayR/DormFinder/internal/auth/dto"
	"github.com/AldJayR/DormFinder/internal/auth/fingerprint"
	"github.com/AldJayR/DormFinder/internal/auth/store"
	"github.com/AldJayR/DormFinder/internal/auth/token"
	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

const schoolIDPrefix = "NEUST-"

// UserService owns the credential flows: register, login, refresh, logout.
type UserService struct {
	repo          domain.UserRepository
	tokens        *TokenService
	authenticator *Authenticator
	revocations   store.RevocationStore
	hashSecret    string
	logger        *zap.Logger
}

func NewUserService(
	repo domain.UserRepository,
	tokens *TokenService,
	authenticator *Authenticator,
	revocations store.RevocationStore,
	hashSecret string,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		repo:          repo,
		tokens:        tokens,
		authenticator: authenticator,
		revocations:   revocations,
		hashSecret:    hashSecret,
		logger:        logger,
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = constant.RoleStudent
	}

	if role == constant.RoleStudent {
		if input.SchoolIDNumber == "" {
			return nil, apperrors.ErrSchoolIDRequired
		}
		if !strings.HasPrefix(input.SchoolIDNumber, schoolIDPrefix) {
			return nil, apperrors.ErrInvalidSchoolIDFormat
		}
	}

	existing, err := s.repo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrUsernameTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:             uuid.New().String(),
		Username:       input.Username,
		Email:          input.Email,
		PasswordHash:   string(hashedPassword),
		Role:           role,
		SchoolIDNumber: input.SchoolIDNumber,
		IsActive:       true,
		IsVerified:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues a fresh token pair bound to the
// request context. Failed attempts are recorded both in Postgres (audit
// trail) and in the rolling failure counter (lockout).
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*domain.User, *dto.TokenPair, error) {
	if s.authenticator.IsLockedOut(input.IPAddress) {
		return nil, nil, apperrors.ErrTooManyLoginAttempts
	}

	reqCtx := fingerprint.Context{
		UserAgent:      input.UserAgent,
		AcceptLanguage: input.AcceptLanguage,
		IPAddress:      input.IPAddress,
	}

	user, err := s.repo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, nil, err
	}

	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		if err := s.repo.RecordLoginAttempt(ctx, input.Username, input.IPAddress, false); err != nil {
			s.logger.Warn("failed to record login attempt", zap.Error(err))
		}
		s.authenticator.RecordFailure(input.IPAddress)
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.authenticator.RecordFailure(input.IPAddress)
		return nil, nil, apperrors.ErrAccountInactive
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role, reqCtx, 0)
	if err != nil {
		return nil, nil, err
	}

	// The trusted-device row stores a keyed digest of the composite, never
	// the raw components.
	fpDigest := store.TokenDigest(s.hashSecret, fingerprint.Composite(reqCtx))
	if err := s.repo.UpsertTrustedDevice(ctx, user.ID, fpDigest, input.UserAgent, input.IPAddress); err != nil {
		s.logger.Warn("failed to upsert trusted device", zap.String("user", user.ID), zap.Error(err))
	}

	if err := s.repo.RecordLoginAttempt(ctx, input.Username, input.IPAddress, true); err != nil {
		s.logger.Warn("failed to record login attempt", zap.Error(err))
	}

	return user, pair, nil
}

// Refresh redeems a refresh token for a new pair. A lineage may be redeemed
// at most MaxRefreshUses times; the redeemed token is revoked for its
// remaining lifetime so it cannot be replayed.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*domain.User, *dto.TokenPair, error) {
	if s.authenticator.IsLockedOut(input.IPAddress) {
		return nil, nil, apperrors.ErrTooManyLoginAttempts
	}

	fail := func(err error) (*domain.User, *dto.TokenPair, error) {
		s.authenticator.RecordFailure(input.IPAddress)
		return nil, nil, err
	}

	claims, err := s.tokens.ValidateRefresh(input.RefreshToken)
	if err != nil {
		return fail(err)
	}

	digest := store.TokenDigest(s.hashSecret, input.RefreshToken)
	revoked, err := s.revocations.IsRevoked(digest)
	if err != nil {
		s.logger.Error("revocation ledger unreachable, failing closed", zap.Error(err))
		revoked = true
	}
	if revoked {
		return fail(apperrors.ErrTokenRevoked)
	}

	if claims.UseCount >= s.tokens.MaxRefreshUses() {
		return fail(apperrors.ErrRefreshExhausted)
	}

	reqCtx := fingerprint.Context{
		UserAgent:      input.UserAgent,
		AcceptLanguage: input.AcceptLanguage,
		IPAddress:      input.IPAddress,
	}
	if err := s.tokens.VerifyFingerprint(claims, reqCtx); err != nil {
		return fail(err)
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return fail(apperrors.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return fail(apperrors.ErrAccountInactive)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Role, reqCtx, claims.UseCount+1)
	if err != nil {
		return nil, nil, err
	}

	// Rotation: the redeemed token dies here, not at its natural expiry.
	if claims.ExpiresAt != nil {
		if err := s.revocations.Revoke(digest, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Error("failed to revoke redeemed refresh token", zap.Error(err))
		}
	}

	return user, pair, nil
}

// Logout places the session's tokens on the revocation ledger for exactly
// their remaining lifetimes. Unparseable tokens are ignored; there is nothing
// left to revoke.
func (s *UserService) Logout(ctx context.Context, rawAccess, rawRefresh string) {
	s.revokeRemaining(rawAccess, constant.TokenTypeAccess)
	s.revokeRemaining(rawRefresh, constant.TokenTypeRefresh)
}

func (s *UserService) revokeRemaining(raw, tokenType string) {
	if raw == "" {
		return
	}

	var validate func(string) (*token.Claims, error)
	if tokenType == constant.TokenTypeAccess {
		validate = s.tokens.ValidateAccess
	} else {
		validate = s.tokens.ValidateRefresh
	}

	claims, err := validate(raw)
	if err != nil || claims.ExpiresAt == nil {
		return
	}

	digest := store.TokenDigest(s.hashSecret, raw)
	if err := s.revocations.Revoke(digest, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Error("token revocation failed", zap.Error(err))
	}
}
