package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"campaignclean/pkg/contracts/domain"
)

// DefaultSummaryKeyPrefix prefixes every summary key in Redis.
const DefaultSummaryKeyPrefix = "campaignclean:batch:"

// RedisClient defines the minimal Redis commands used by RedisSummaryStore.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisSummaryStore keeps summaries as JSON values with a TTL.
type RedisSummaryStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisSummaryStore creates a Redis-backed summary store.
func NewRedisSummaryStore(client RedisClient, prefix string, ttl time.Duration, logger *slog.Logger) *RedisSummaryStore {
	if prefix == "" {
		prefix = DefaultSummaryKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSummaryStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_summary_store")),
	}
}

func (s *RedisSummaryStore) key(id string) string {
	return s.prefix + id
}

// Save stores summary under its id.
func (s *RedisSummaryStore) Save(ctx context.Context, summary *domain.BatchSummary) error {
	if summary == nil || summary.ID == "" {
		return fmt.Errorf("summary must have an id")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := s.client.Set(ctx, s.key(summary.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save summary %s: %w", summary.ID, err)
	}

	s.logger.DebugContext(ctx, "summary saved",
		slog.String("batch_id", summary.ID),
		slog.Duration("ttl", s.ttl))
	return nil
}

// Get loads the summary stored under id.
func (s *RedisSummaryStore) Get(ctx context.Context, id string) (*domain.BatchSummary, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
		}
		return nil, fmt.Errorf("failed to load summary %s: %w", id, err)
	}

	var summary domain.BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary %s: %w", id, err)
	}
	return &summary, nil
}

// Delete removes the summary stored under id.
func (s *RedisSummaryStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete summary %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisSummaryStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
