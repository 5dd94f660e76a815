package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenDigest(t *testing.T) {
	t.Run("deterministic per secret and token", func(t *testing.T) {
		assert.Equal(t, TokenDigest("s", "tok"), TokenDigest("s", "tok"))
	})

	t.Run("different secrets give different digests", func(t *testing.T) {
		assert.NotEqual(t, TokenDigest("s1", "tok"), TokenDigest("s2", "tok"))
	})

	t.Run("digest does not contain the raw token", func(t *testing.T) {
		assert.NotContains(t, TokenDigest("s", "raw-token-value"), "raw-token-value")
	})
}

func TestMemoryRevocationStore(t *testing.T) {
	t.Run("absent digest is not revoked", func(t *testing.T) {
		s := NewMemoryRevocationStore()
		revoked, err := s.IsRevoked("unknown")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("revoked digest reports revoked", func(t *testing.T) {
		s := NewMemoryRevocationStore()
		require.NoError(t, s.Revoke("digest-1", time.Minute))

		revoked, err := s.IsRevoked("digest-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("entry self-expires at the token's natural expiry", func(t *testing.T) {
		s := NewMemoryRevocationStore()
		current := time.Now()
		s.now = func() time.Time { return current }

		require.NoError(t, s.Revoke("digest-1", time.Minute))

		current = current.Add(61 * time.Second)
		revoked, err := s.IsRevoked("digest-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		s := NewMemoryRevocationStore()
		require.NoError(t, s.Revoke("digest-1", 0))

		revoked, err := s.IsRevoked("digest-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestMemoryFailureCounterStore(t *testing.T) {
	t.Run("increments accumulate", func(t *testing.T) {
		s := NewMemoryFailureCounterStore()
		for i := 1; i <= 3; i++ {
			n, err := s.Increment("203.0.113.7", 15*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}

		n, err := s.Count("203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := NewMemoryFailureCounterStore()
		_, err := s.Increment("a", 15*time.Minute)
		require.NoError(t, err)

		n, err := s.Count("b")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("window lapses and the counter resets", func(t *testing.T) {
		s := NewMemoryFailureCounterStore()
		current := time.Now()
		s.now = func() time.Time { return current }

		for i := 0; i < 6; i++ {
			_, err := s.Increment("203.0.113.7", 15*time.Minute)
			require.NoError(t, err)
		}

		current = current.Add(16 * time.Minute)
		n, err := s.Count("203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("each increment slides the window forward", func(t *testing.T) {
		s := NewMemoryFailureCounterStore()
		current := time.Now()
		s.now = func() time.Time { return current }

		_, err := s.Increment("203.0.113.7", 15*time.Minute)
		require.NoError(t, err)

		// 10 minutes later another failure re-arms the full window.
		current = current.Add(10 * time.Minute)
		_, err = s.Increment("203.0.113.7", 15*time.Minute)
		require.NoError(t, err)

		// 10 more minutes: the original window would have lapsed, the
		// re-armed one has not.
		current = current.Add(10 * time.Minute)
		n, err := s.Count("203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestMemoryAvailabilityCache(t *testing.T) {
	t.Run("miss returns nil without error", func(t *testing.T) {
		c := NewMemoryAvailabilityCache()
		snapshot, err := c.Get("dorm-1")
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("put then get", func(t *testing.T) {
		c := NewMemoryAvailabilityCache()
		require.NoError(t, c.Put("dorm-1", []byte(`[]`), 0))

		snapshot, err := c.Get("dorm-1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), snapshot)
	})

	t.Run("invalidate removes the snapshot", func(t *testing.T) {
		c := NewMemoryAvailabilityCache()
		require.NoError(t, c.Put("dorm-1", []byte(`[]`), 0))
		require.NoError(t, c.Invalidate("dorm-1"))

		snapshot, err := c.Get("dorm-1")
		require.NoError(t, err)
		assert.Nil(t, snapshot)
	})
}
