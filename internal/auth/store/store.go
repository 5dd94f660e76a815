// Package store holds the TTL-bounded key-value stores the session and
// booking layers depend on: the token revocation ledger, the failed-attempt
// counters and the dorm availability cache. Implementations are injected into
// their consumers; nothing here is ambient global state.
package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RevocationStore is a TTL-bounded denylist of token digests. Entries expire
// when the token they shadow would have expired anyway, so the ledger never
// grows without bound.
type RevocationStore interface {
	// Revoke marks a token digest revoked for the given remaining lifetime.
	Revoke(digest string, ttl time.Duration) error
	// IsRevoked reports whether the digest is present. A miss means "not
	// revoked"; implementations return an error only when the lookup
	// itself failed, and callers must treat that as revoked (fail closed).
	IsRevoked(digest string) (bool, error)
}

// FailureCounterStore counts failed authentication attempts per client key
// inside a rolling window.
type FailureCounterStore interface {
	// Increment bumps the counter and resets its TTL to the window.
	Increment(key string, window time.Duration) (int, error)
	// Count reads the current value; an expired or absent key counts zero.
	Count(key string) (int, error)
}

// AvailabilityCache holds the derived availability snapshot per dorm. It is a
// read optimization only; the booking table stays authoritative.
type AvailabilityCache interface {
	Put(dormID string, snapshot []byte, ttl time.Duration) error
	// Get returns nil with no error on a cache miss.
	Get(dormID string) ([]byte, error)
	Invalidate(dormID string) error
}

// TokenDigest produces the keyed hash under which a raw token is stored in
// the revocation ledger. The plaintext token never reaches the store.
func TokenDigest(secret, raw string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
