package store

import (
	"sync"
	"time"
)

// In-memory implementations backing tests and single-process deployments.
// Entries expire lazily on read.

type memoryEntry struct {
	value     []byte
	count     int
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(digest string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[digest] = memoryEntry{expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(digest string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[digest]
	if !ok {
		return false, nil
	}
	if entry.expired(s.now()) {
		delete(s.entries, digest)
		return false, nil
	}
	return true, nil
}

type MemoryFailureCounterStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ FailureCounterStore = (*MemoryFailureCounterStore)(nil)

func NewMemoryFailureCounterStore() *MemoryFailureCounterStore {
	return &MemoryFailureCounterStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryFailureCounterStore) Increment(key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || entry.expired(now) {
		entry = memoryEntry{}
	}
	entry.count++
	entry.expiresAt = now.Add(window)
	s.entries[key] = entry
	return entry.count, nil
}

func (s *MemoryFailureCounterStore) Count(key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if entry.expired(s.now()) {
		delete(s.entries, key)
		return 0, nil
	}
	return entry.count, nil
}

type MemoryAvailabilityCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ AvailabilityCache = (*MemoryAvailabilityCache)(nil)

func NewMemoryAvailabilityCache() *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryAvailabilityCache) Put(dormID string, snapshot []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: snapshot}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[dormID] = entry
	return nil
}

func (c *MemoryAvailabilityCache) Get(dormID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[dormID]
	if !ok {
		return nil, nil
	}
	if entry.expired(c.now()) {
		delete(c.entries, dormID)
		return nil, nil
	}
	return entry.value, nil
}

func (c *MemoryAvailabilityCache) Invalidate(dormID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, dormID)
	return nil
}
