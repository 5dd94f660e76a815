package service

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/AldJayR/DormFinder/internal/auth/domain UserRepository

import (
	"time"

	"github.com/AldJayR/DormFinder/internal/auth/dto"
	"github.com/AldJayR/DormFinder/internal/auth/fingerprint"
	"github.com/AldJayR/DormFinder/internal/auth/token"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

// TokenService couples the token codec with the fingerprint sealer so every
// issued pair is bound to the requesting device.
type TokenService struct {
	codec          *token.Codec
	sealer         *fingerprint.Sealer
	maxRefreshUses int
}

func NewTokenService(codec *token.Codec, sealer *fingerprint.Sealer, maxRefreshUses int) *TokenService {
	return &TokenService{
		codec:          codec,
		sealer:         sealer,
		maxRefreshUses: maxRefreshUses,
	}
}

// IssuePair mints an access/refresh pair bound to the request context.
// useCount carries the refresh lineage's redemption count; zero on login.
func (ts *TokenService) IssuePair(userID, role string, reqCtx fingerprint.Context, useCount int) (*dto.TokenPair, error) {
	sealed, err := ts.sealer.Seal(fingerprint.Composite(reqCtx))
	if err != nil {
		return nil, err
	}

	access, _, err := ts.codec.Issue(userID, role, sealed, constant.TokenTypeAccess, 0)
	if err != nil {
		return nil, err
	}

	refresh, _, err := ts.codec.Issue(userID, role, sealed, constant.TokenTypeRefresh, useCount)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpirySec:  int(ts.codec.AccessExpiry().Seconds()),
		RefreshExpirySec: int(ts.codec.RefreshExpiry().Seconds()),
	}, nil
}

func (ts *TokenService) ValidateAccess(raw string) (*token.Claims, error) {
	return ts.codec.Validate(raw, constant.TokenTypeAccess)
}

func (ts *TokenService) ValidateRefresh(raw string) (*token.Claims, error) {
	return ts.codec.Validate(raw, constant.TokenTypeRefresh)
}

// VerifyFingerprint checks a validated claim set against the current request
// context.
func (ts *TokenService) VerifyFingerprint(claims *token.Claims, reqCtx fingerprint.Context) error {
	return ts.sealer.Matches(claims.DeviceFingerprint, claims.UserID, reqCtx)
}

func (ts *TokenService) AccessExpiry() time.Duration  { return ts.codec.AccessExpiry() }
func (ts *TokenService) RefreshExpiry() time.Duration { return ts.codec.RefreshExpiry() }
func (ts *TokenService) MaxRefreshUses() int          { return ts.maxRefreshUses }
