package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

// Claims is the full claim set carried by both token types. Refresh tokens
// additionally track how many times their lineage has been redeemed.
type Claims struct {
	jwt.RegisteredClaims
	UserID            string `json:"user_id"`
	Role              string `json:"role"`
	DeviceFingerprint string `json:"dfp,omitempty"`
	UseCount          int    `json:"use_count"`
	TokenType         string `json:"token_type"`
}

// Codec issues and validates self-contained HS256 tokens. Access and refresh
// tokens are signed with separate secrets.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewCodec(accessSecret, refreshSecret string, accessMinutes, refreshMinutes int) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  time.Duration(accessMinutes) * time.Minute,
		refreshExpiry: time.Duration(refreshMinutes) * time.Minute,
	}
}

func (c *Codec) AccessExpiry() time.Duration  { return c.accessExpiry }
func (c *Codec) RefreshExpiry() time.Duration { return c.refreshExpiry }

// Issue signs a token of the given type. sealedFingerprint is the encrypted
// device fingerprint blob (may be empty), useCount is only meaningful for
// refresh tokens.
func (c *Codec) Issue(userID, role, sealedFingerprint, tokenType string, useCount int) (string, time.Time, error) {
	now := time.Now()

	var secret []byte
	var expiry time.Duration
	switch tokenType {
	case constant.TokenTypeAccess:
		secret = c.accessSecret
		expiry = c.accessExpiry
	case constant.TokenTypeRefresh:
		secret = c.refreshSecret
		expiry = c.refreshExpiry
	default:
		return "", time.Time{}, fmt.Errorf("unknown token type %q", tokenType)
	}

	expiresAt := now.Add(expiry)
	claims := Claims{
		UserID:            userID,
		Role:              role,
		DeviceFingerprint: sealedFingerprint,
		UseCount:          useCount,
		TokenType:         tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies a raw token of the expected type. Failures map
// to exactly one of ErrTokenExpired, ErrTokenMalformed or ErrBadSignature.
// Oversized input is rejected before any parsing happens.
func (c *Codec) Validate(raw, tokenType string) (*Claims, error) {
	if raw == "" || len(raw) > constant.MaxTokenBytes {
		return nil, apperrors.ErrTokenMalformed
	}

	var secret []byte
	switch tokenType {
	case constant.TokenTypeAccess:
		secret = c.accessSecret
	case constant.TokenTypeRefresh:
		secret = c.refreshSecret
	default:
		return nil, apperrors.ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			// Expiry wins over signature state so expired tokens report
			// uniformly regardless of tampering.
			if expiredIgnoringSignature(raw) {
				return nil, apperrors.ErrTokenExpired
			}
			return nil, apperrors.ErrBadSignature
		default:
			return nil, apperrors.ErrTokenMalformed
		}
	}

	if !parsed.Valid || claims.TokenType != tokenType {
		return nil, apperrors.ErrTokenMalformed
	}

	return claims, nil
}

func expiredIgnoringSignature(raw string) bool {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now())
}
