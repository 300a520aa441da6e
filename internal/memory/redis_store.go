package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stazy/concierge/pkg/logging"
)

// RedisStore keeps each user's turns in a Redis list.
type RedisStore struct {
	redis    *redis.Client
	maxTurns int
	ttl      time.Duration
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewRedisStore builds a Redis-backed store. Non-positive limits fall back to
// the package defaults.
func NewRedisStore(client *redis.Client, maxTurns int, ttl time.Duration, logger *logging.Logger) *RedisStore {
	if client == nil {
		panic("memory: redis client cannot be nil")
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStore{
		redis:    client,
		maxTurns: maxTurns,
		ttl:      ttl,
		tracer:   otel.Tracer("concierge.internal.memory"),
		logger:   logger,
	}
}

// Load reads every retained turn. Entries that fail to decode are skipped.
func (s *RedisStore) Load(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "memory.load",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	raw, err := s.redis.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: load %s: %v", ErrUnavailable, userID, err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, entry := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			s.logger.Warn("skipping undecodable turn", "user_id", userID, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	span.SetAttributes(attribute.Int("memory.turns", len(turns)))
	return turns, nil
}

// Append pushes turns, trims the list and refreshes its expiry in one pipeline.
func (s *RedisStore) Append(ctx context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "memory.append",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.Int("memory.appended", len(turns)),
		))
	defer span.End()

	values := make([]any, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("memory: failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(userID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: append %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}

// Clear deletes the user's context.
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "memory.clear")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: clear %s: %v", ErrUnavailable, userID, err)
	}
	return nil
}
