package store

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
)

const (
	revokedKeyPrefix      = "revoked:"
	authFailureKeyPrefix  = "auth_failures:"
	availabilityKeyPrefix = "availability:"
)

// NewRedisClient connects and pings the server.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping().Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

type RedisRevocationStore struct {
	client *redis.Client
}

var _ RevocationStore = (*RedisRevocationStore)(nil)

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) Revoke(digest string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already past natural expiry, nothing to shadow
	}
	return s.client.Set(revokedKeyPrefix+digest, "1", ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(digest string) (bool, error) {
	_, err := s.client.Get(revokedKeyPrefix + digest).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type RedisFailureCounterStore struct {
	client *redis.Client
}

var _ FailureCounterStore = (*RedisFailureCounterStore)(nil)

func NewRedisFailureCounterStore(client *redis.Client) *RedisFailureCounterStore {
	return &RedisFailureCounterStore{client: client}
}

func (s *RedisFailureCounterStore) Increment(key string, window time.Duration) (int, error) {
	fullKey := authFailureKeyPrefix + key
	count, err := s.client.Incr(fullKey).Result()
	if err != nil {
		return 0, err
	}
	// TTL reset on every increment keeps the window rolling.
	if err := s.client.Expire(fullKey, window).Err(); err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *RedisFailureCounterStore) Count(key string) (int, error) {
	count, err := s.client.Get(authFailureKeyPrefix + key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

type RedisAvailabilityCache struct {
	client *redis.Client
}

var _ AvailabilityCache = (*RedisAvailabilityCache)(nil)

func NewRedisAvailabilityCache(client *redis.Client) *RedisAvailabilityCache {
	return &RedisAvailabilityCache{client: client}
}

func (c *RedisAvailabilityCache) Put(dormID string, snapshot []byte, ttl time.Duration) error {
	return c.client.Set(availabilityKeyPrefix+dormID, snapshot, ttl).Err()
}

func (c *RedisAvailabilityCache) Get(dormID string) ([]byte, error) {
	val, err := c.client.Get(availabilityKeyPrefix + dormID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *RedisAvailabilityCache) Invalidate(dormID string) error {
	return c.client.Del(availabilityKeyPrefix + dormID).Err()
}
