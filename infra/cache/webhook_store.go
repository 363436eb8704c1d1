package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// webhookKeyPrefix is the prefix for all webhook de-duplication keys
const webhookKeyPrefix = "webhook_event:"

// DefaultWebhookEventTTL is how long a processed event id is remembered
const DefaultWebhookEventTTL = 72 * time.Hour

// RedisWebhookEventStore remembers processed webhook deliveries in Redis
type RedisWebhookEventStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWebhookEventStore creates a store on top of an existing client
func NewRedisWebhookEventStore(client *redis.Client, ttl time.Duration) *RedisWebhookEventStore {
	if ttl <= 0 {
		ttl = DefaultWebhookEventTTL
	}
	return &RedisWebhookEventStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and verifies the server answers
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// buildKey builds the Redis key of an event
// Format: webhook_event:{provider}:{event_id}
func buildKey(providerName, eventID string) string {
	return webhookKeyPrefix + strings.ToLower(providerName) + ":" + eventID
}

// MarkProcessed atomically records the event and reports whether this was its first delivery
func (s *RedisWebhookEventStore) MarkProcessed(ctx context.Context, providerName, eventID string) (bool, error) {
	acquired, err := s.client.SetNX(ctx, buildKey(providerName, eventID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return acquired, nil
}

// Forget removes a recorded event so a later delivery is processed again
func (s *RedisWebhookEventStore) Forget(ctx context.Context, providerName, eventID string) error {
	if err := s.client.Del(ctx, buildKey(providerName, eventID)).Err(); err != nil {
		return fmt.Errorf("failed to forget webhook event: %w", err)
	}
	return nil
}

// Ping checks the redis connection
func (s *RedisWebhookEventStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryWebhookEventStore is the single-process fallback used when no redis is configured
type MemoryWebhookEventStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	seen   map[string]time.Time
	now    func() time.Time
	sweeps int
}

// NewMemoryWebhookEventStore creates an in-memory store
func NewMemoryWebhookEventStore(ttl time.Duration) *MemoryWebhookEventStore {
	if ttl <= 0 {
		ttl = DefaultWebhookEventTTL
	}
	return &MemoryWebhookEventStore{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// MarkProcessed records the event and reports whether this was its first delivery
func (s *MemoryWebhookEventStore) MarkProcessed(_ context.Context, providerName, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := buildKey(providerName, eventID)

	if expiresAt, ok := s.seen[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.seen[key] = now.Add(s.ttl)

	s.sweeps++
	if s.sweeps >= 1000 {
		s.sweeps = 0
		for k, expiresAt := range s.seen {
			if !now.Before(expiresAt) {
				delete(s.seen, k)
			}
		}
	}

	return true, nil
}

// Forget removes a recorded event
func (s *MemoryWebhookEventStore) Forget(_ context.Context, providerName, eventID string) error {
	s.mu.Lock()
	delete(s.seen, buildKey(providerName, eventID))
	s.mu.Unlock()
	return nil
}

// Size returns the number of remembered events
func (s *MemoryWebhookEventStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
