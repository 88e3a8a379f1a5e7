package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"userapi/pkg/tracing"
)

// RedisStore talks to redis with a full connect-operate-disconnect cycle per
// logical operation. That trades connection reuse for operational
// simplicity; under load a pooled persistent client avoids the reconnect
// latency and connection storms, and can be swapped in behind Store without
// touching call sites.
type RedisStore struct {
	addr     string
	password string
	db       int
	logger   *otelzap.Logger
}

func NewRedisStore(addr, password string, logger *otelzap.Logger) *RedisStore {
	return &RedisStore{
		addr:     addr,
		password: password,
		logger:   logger,
	}
}

func (s *RedisStore) connect() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     s.addr,
		Password: s.password,
		DB:       s.db,
	})
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return tracing.CacheSpanWrapper(ctx, "redis", "set", key, func(ctx context.Context) error {
		client := s.connect()
		defer client.Close()

		return client.Set(ctx, key, payload, ttl).Err()
	})
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	var payload string
	found := false

	err := tracing.CacheSpanWrapper(ctx, "redis", "get", key, func(ctx context.Context) error {
		client := s.connect()
		defer client.Close()

		value, err := client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		payload = value
		found = true
		return nil
	})

	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		// Corrupt entries count as misses; the caller falls through to
		// the record store and repopulates the key.
		s.logger.Ctx(ctx).Debug("cache entry failed to decode, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, nil
	}

	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return tracing.CacheSpanWrapper(ctx, "redis", "del", key, func(ctx context.Context) error {
		client := s.connect()
		defer client.Close()

		return client.Del(ctx, key).Err()
	})
}
