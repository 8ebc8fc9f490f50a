package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	MENU_CACHE_PREFIX        = "menu:"
	MENU_INVALIDATION_EVENTS = "menu:events:cache-invalidated"
)

// InvalidationEvent is published when an instance drops cache prefixes.
type InvalidationEvent struct {
	Prefixes  []string  `json:"prefixes"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisStore is the durable tier backed by redis. Keys are namespaced under
// MENU_CACHE_PREFIX.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.redis.Get(ctx, MENU_CACHE_PREFIX+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.redis.Set(ctx, MENU_CACHE_PREFIX+key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = MENU_CACHE_PREFIX + k
	}
	return s.redis.Del(ctx, full...).Err()
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.redis.Scan(ctx, 0, MENU_CACHE_PREFIX+prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.redis.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.redis.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) Notify(ctx context.Context, prefixes []string) error {
	eventJSON, err := json.Marshal(InvalidationEvent{Prefixes: prefixes, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.redis.Publish(ctx, MENU_INVALIDATION_EVENTS, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Listen drops the memory tier of c for every invalidation published by any
// instance, until ctx is done.
func (s *RedisStore) Listen(ctx context.Context, c *Cache, log *zap.Logger) error {
	sub := s.redis.Subscribe(ctx, MENU_INVALIDATION_EVENTS)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", MENU_INVALIDATION_EVENTS, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event InvalidationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("ignoring malformed invalidation event", zap.Error(err))
				continue
			}
			c.Forget(event.Prefixes...)
			log.Debug("cache prefixes invalidated by peer", zap.Strings("prefixes", event.Prefixes))
		}
	}
}
