package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/AldJayR/DormFinder/internal/errors"
	"github.com/AldJayR/DormFinder/pkg/constant"
)

func TestCodec_IssueValidate_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		tokenType   string
		userID      string
		role        string
		fingerprint string
		useCount    int
	}{
		{
			name:        "access token with fingerprint",
			tokenType:   constant.TokenTypeAccess,
			userID:      "user-123",
			role:        "student",
			fingerprint: "sealed-fp-blob",
		},
		{
			name:      "access token without fingerprint",
			tokenType: constant.TokenTypeAccess,
			userID:    "user-456",
			role:      "dorm_owner",
		},
		{
			name:        "refresh token carries use count",
			tokenType:   constant.TokenTypeRefresh,
			userID:      "user-789",
			role:        "student",
			fingerprint: "sealed-fp-blob",
			useCount:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCodec("access-secret", "refresh-secret", 15, 10080)

			raw, expiresAt, err := c.Issue(tt.userID, tt.role, tt.fingerprint, tt.tokenType, tt.useCount)
			require.NoError(t, err)
			require.NotEmpty(t, raw)
			assert.True(t, expiresAt.After(time.Now()))

			claims, err := c.Validate(raw, tt.tokenType)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.userID, claims.Subject)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, tt.fingerprint, claims.DeviceFingerprint)
			assert.Equal(t, tt.useCount, claims.UseCount)
			assert.Equal(t, tt.tokenType, claims.TokenType)
		})
	}
}

func TestCodec_Validate_Expired(t *testing.T) {
	// Negative lifetime issues tokens that are already expired.
	c := NewCodec("access-secret", "refresh-secret", -1, -1)

	raw, _, err := c.Issue("user-123", "student", "", constant.TokenTypeAccess, 0)
	require.NoError(t, err)

	_, err = c.Validate(raw, constant.TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestCodec_Validate_ExpiredWinsOverBadSignature(t *testing.T) {
	// An expired token signed with the wrong key must still report Expired.
	forger := NewCodec("wrong-secret", "wrong-secret", -1, -1)
	raw, _, err := forger.Issue("user-123", "student", "", constant.TokenTypeAccess, 0)
	require.NoError(t, err)

	c := NewCodec("access-secret", "refresh-secret", 15, 10080)
	_, err = c.Validate(raw, constant.TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestCodec_Validate_BadSignature(t *testing.T) {
	forger := NewCodec("wrong-secret", "wrong-secret", 15, 10080)
	raw, _, err := forger.Issue("user-123", "student", "", constant.TokenTypeAccess, 0)
	require.NoError(t, err)

	c := NewCodec("access-secret", "refresh-secret", 15, 10080)
	_, err = c.Validate(raw, constant.TokenTypeAccess)
	assert.ErrorIs(t, err, apperrors.ErrBadSignature)
}

func TestCodec_Validate_Malformed(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 15, 10080)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "aaaa.bbbb"},
		{"oversized", strings.Repeat("x", constant.MaxTokenBytes+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Validate(tt.raw, constant.TokenTypeAccess)
			assert.ErrorIs(t, err, apperrors.ErrTokenMalformed)
		})
	}
}

func TestCodec_Validate_RejectsWrongTokenType(t *testing.T) {
	// Shared secret isolates the token_type claim check from the
	// signature check.
	c := NewCodec("shared-secret", "shared-secret", 15, 10080)

	raw, _, err := c.Issue("user-123", "student", "", constant.TokenTypeAccess, 0)
	require.NoError(t, err)

	_, err = c.Validate(raw, constant.TokenTypeRefresh)
	assert.ErrorIs(t, err, apperrors.ErrTokenMalformed)
}

func TestCodec_Validate_RejectsNonHMACAlg(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 15, 10080)

	// alg=none token with otherwise plausible claims.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:    "user-123",
		TokenType: constant.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Validate(raw, constant.TokenTypeAccess)
	assert.Error(t, err)
}

func TestCodec_Issue_RefreshOutlivesAccess(t *testing.T) {
	c := NewCodec("access-secret", "refresh-secret", 15, 10080)

	_, accessExp, err := c.Issue("user-123", "student", "", constant.TokenTypeAccess, 0)
	require.NoError(t, err)
	_, refreshExp, err := c.Issue("user-123", "student", "", constant.TokenTypeRefresh, 0)
	require.NoError(t, err)

	assert.True(t, refreshExp.After(accessExp))
}
