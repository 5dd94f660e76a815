// Package fingerprint binds tokens to an approximate request context so a
// stolen token replayed from a different client is rejected. The raw context
// components are never stored verbatim: they are sealed with a server-held
// symmetric key before being embedded in a token claim.
package fingerprint

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	apperrors "github.com/AldJayR/DormFinder/internal/errors"
)

// Context is the request-derived material a fingerprint is computed from.
type Context struct {
	UserAgent      string
	AcceptLanguage string
	IPAddress      string
}

const maxIPComponentLen = 256

// Composite deterministically flattens the request context. Pure and
// idempotent; the sealed form wraps this value.
func Composite(ctx Context) string {
	ip := ctx.IPAddress
	if len(ip) > maxIPComponentLen {
		ip = ip[:maxIPComponentLen]
	}
	return strings.Join([]string{ctx.UserAgent, ctx.AcceptLanguage, ip}, "-")
}

type Sealer struct {
	aead   cipher.AEAD
	logger *zap.Logger
}

func NewSealer(key []byte, logger *zap.Logger) (*Sealer, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("fingerprint key: %w", err)
	}
	return &Sealer{aead: aead, logger: logger}, nil
}

// Seal encrypts a composite for embedding in a token claim.
func (s *Sealer) Seal(composite string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(composite), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed fingerprint back to its composite.
func (s *Sealer) Open(sealed string) (string, error) {
	blob, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", apperrors.ErrInvalidFingerprint
	}
	if len(blob) < s.aead.NonceSize() {
		return "", apperrors.ErrInvalidFingerprint
	}
	nonce, ciphertext := blob[:s.aead.NonceSize()], blob[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperrors.ErrInvalidFingerprint
	}
	return string(plain), nil
}

// Matches verifies a token's sealed fingerprint claim against the current
// request context. Tokens issued before fingerprinting existed carry no claim
// and pass unconditionally. Decrypt failures and mismatches both surface as
// ErrInvalidFingerprint; the mismatch case is logged with the subject id
// before rejecting.
func (s *Sealer) Matches(sealedClaim, subjectID string, ctx Context) error {
	if sealedClaim == "" {
		return nil // legacy token
	}

	stored, err := s.Open(sealedClaim)
	if err != nil {
		return err
	}

	if stored != Composite(ctx) {
		s.logger.Warn("device fingerprint mismatch",
			zap.String("subject", subjectID),
			zap.String("ip", ctx.IPAddress),
		)
		return apperrors.ErrInvalidFingerprint
	}

	return nil
}
