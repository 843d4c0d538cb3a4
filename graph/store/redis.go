package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of Store[S].
//
// Each run's steps are appended to a Redis list keyed by runID, preserving
// step order without requiring a secondary index. This matches how a
// session-scoped conversation accumulates turns: short-lived, append-only,
// and naturally expirable.
//
// Designed for:
//   - Multi-instance deployments where any instance can resume a session
//   - Session-scoped history with a TTL (chat sessions that expire after
//     inactivity rather than being retained indefinitely)
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type RedisStore[S any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces all keys. Default "ragengine:".
	Prefix string

	// TTL is the expiration applied to a run's step list after each write.
	// Default 0 (no expiration).
	TTL time.Duration
}

// NewRedisStore creates a new Redis-backed store.
//
// Example:
//
//	store := store.NewRedisStore[rag.RunState](store.RedisOptions{
//	    Addr: "localhost:6379",
//	    TTL:  24 * time.Hour,
//	})
func NewRedisStore[S any](opts RedisOptions) *RedisStore[S] {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ragengine:"
	}

	return &RedisStore[S]{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisStore[S]) stepsKey(runID string) string {
	return fmt.Sprintf("%ssteps:%s", s.prefix, runID)
}

type redisStepRecord[S any] struct {
	Step   int    `json:"step"`
	NodeID string `json:"node_id"`
	State  S      `json:"state"`
}

// SaveStep appends a workflow execution step to the run's Redis list
// (implements Store interface).
func (s *RedisStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	data, err := json.Marshal(redisStepRecord[S]{Step: step, NodeID: nodeID, State: state})
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}

	key := s.stepsKey(runID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save step to redis: %w", err)
	}

	return nil
}

// LoadLatest retrieves the most recent step for a run (implements Store
// interface). Returns ErrNotFound if the run has no steps.
func (s *RedisStore[S]) LoadLatest(ctx context.Context, runID string) (state S, step int, err error) {
	key := s.stepsKey(runID)
	raw, err := s.client.LIndex(ctx, key, -1).Result()
	if err == redis.Nil {
		var zero S
		return zero, 0, ErrNotFound
	}
	if err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to load latest step from redis: %w", err)
	}

	var record redisStepRecord[S]
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to unmarshal step: %w", err)
	}

	return record.State, record.Step, nil
}

// LoadHistory returns every saved step for a run, oldest first (implements
// Store interface). Returns an empty slice, not ErrNotFound, when the run
// has no steps.
func (s *RedisStore[S]) LoadHistory(ctx context.Context, runID string) ([]StepRecord[S], error) {
	key := s.stepsKey(runID)
	raws, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history from redis: %w", err)
	}

	records := make([]StepRecord[S], 0, len(raws))
	for _, raw := range raws {
		var record redisStepRecord[S]
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step: %w", err)
		}
		records = append(records, StepRecord[S]{Step: record.Step, NodeID: record.NodeID, State: record.State})
	}

	return records, nil
}

// Close closes the underlying Redis client connection.
func (s *RedisStore[S]) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore[S]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
