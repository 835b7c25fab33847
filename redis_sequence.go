package launchbase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisSequence hands out ids with INCR on one key per family. It lets
// several durable-backend processes share id allocation without a round trip
// to the counters table.
type RedisSequence struct {
	redis   *redis.Client
	prefix  string
	logger  Logger
	metrics Metrics
}

// DefaultSequencePrefix namespaces sequence keys in Redis.
const DefaultSequencePrefix = "launchbase:seq:"

func NewRedisSequence(client *redis.Client, prefix string, logger Logger, metrics Metrics) *RedisSequence {
	if prefix == "" {
		prefix = DefaultSequencePrefix
	}
	return &RedisSequence{
		redis:   client,
		prefix:  prefix,
		logger:  orNoOpLogger(logger),
		metrics: orNoOpMetrics(metrics),
	}
}

func (s *RedisSequence) key(f Family) string {
	return s.prefix + string(f)
}

// Next atomically increments the family counter and returns the new value
func (s *RedisSequence) Next(ctx context.Context, f Family) (int64, error) {
	if s.redis == nil {
		return 0, fmt.Errorf("redis not available: %w", ErrBackendUnavailable)
	}

	val, err := s.redis.Incr(ctx, s.key(f)).Result()
	if err != nil {
		s.metrics.Increment(MetricSequenceErrors, "source", IDSourceRedis)
		return 0, fmt.Errorf("increment %s: %w", s.key(f), err)
	}

	s.metrics.Increment(MetricSequenceNext, "source", IDSourceRedis)
	return val, nil
}

// Current returns the last id handed out for f, or 0 if none was.
func (s *RedisSequence) Current(ctx context.Context, f Family) (int64, error) {
	if s.redis == nil {
		return 0, fmt.Errorf("redis not available: %w", ErrBackendUnavailable)
	}

	val, err := s.redis.Get(ctx, s.key(f)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		s.metrics.Increment(MetricSequenceErrors, "source", IDSourceRedis)
		return 0, fmt.Errorf("get %s: %w", s.key(f), err)
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, WithContext(ErrInvalidData, map[string]interface{}{
			"key":   s.key(f),
			"value": val,
		})
	}
	return n, nil
}

// Advance moves the counter forward to at least floor. It never moves it
// back, so ids already handed out stay unique.
func (s *RedisSequence) Advance(ctx context.Context, f Family, floor int64) error {
	if s.redis == nil {
		return fmt.Errorf("redis not available: %w", ErrBackendUnavailable)
	}

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, s.key(f)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur >= floor {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key(f), floor, 0)
			return nil
		})
		return err
	}, s.key(f))
	if err != nil {
		s.metrics.Increment(MetricSequenceErrors, "source", IDSourceRedis)
		return fmt.Errorf("advance %s: %w", s.key(f), err)
	}

	s.logger.Info("sequence advanced", "key", s.key(f), "floor", floor)
	return nil
}

// AdvanceAll advances every family in floors. Use it before switching the
// id source to Redis on tables that already hold records.
func (s *RedisSequence) AdvanceAll(ctx context.Context, floors map[Family]int64) error {
	for _, f := range Families {
		if err := s.Advance(ctx, f, floors[f]); err != nil {
			return err
		}
	}
	return nil
}
