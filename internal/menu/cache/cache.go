// Package cache is the two-tier row cache used by the menu fetchers: an
// in-process map checked first, backed by an optional durable Store that
// survives restarts. Durable failures never reach the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/metrics"
)

const DefaultTTL = 90 * time.Second

// ErrMiss is returned by a Store when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Store is the durable tier. Values are opaque to the store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Notifier tells other processes sharing the durable tier to forget keys.
type Notifier interface {
	Notify(ctx context.Context, prefixes []string) error
}

// Source reports which tier answered a read.
type Source int

const (
	Miss Source = iota
	Memory
	Durable
)

func (s Source) String() string {
	switch s {
	case Memory:
		return "memory"
	case Durable:
		return "durable"
	default:
		return "miss"
	}
}

// Result is the best-effort outcome of a write. A durable failure is recorded
// here instead of being returned as an error.
type Result struct {
	DurableErr error
}

func (r Result) Degraded() bool { return r.DurableErr != nil }

type entry struct {
	value     []byte
	expiresAt time.Time
}

// envelope is the durable encoding; the absolute expiry travels with the value
// so every reader applies the same clock check.
type envelope struct {
	ExpiresAt int64           `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	store    Store
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Cache)

func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

func WithNotifier(n Notifier) Option { return func(c *Cache) { c.notifier = n } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l *zap.Logger) Option { return func(c *Cache) { c.log = l } }

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value for key and the tier that held it. Expired entries
// count as absent and are evicted on the way.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, Source) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if now.Before(e.expiresAt) {
			metrics.CacheLookupCounter.WithLabelValues(Memory.String()).Inc()
			return e.value, Memory
		}
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !now.Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	if value, expiresAt, ok := c.getDurable(ctx, key, now); ok {
		c.mu.Lock()
		c.entries[key] = entry{value: value, expiresAt: expiresAt}
		c.mu.Unlock()
		metrics.CacheLookupCounter.WithLabelValues(Durable.String()).Inc()
		return value, Durable
	}

	metrics.CacheLookupCounter.WithLabelValues(Miss.String()).Inc()
	return nil, Miss
}

// Set stores value in both tiers until now+ttl. A ttl <= 0 uses the cache default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) Result {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()

	if c.store == nil {
		return Result{}
	}

	payload, err := json.Marshal(envelope{ExpiresAt: expiresAt.UnixMilli(), Value: value})
	if err == nil {
		err = c.store.Set(ctx, key, payload, ttl)
	}
	return c.degrade("set", key, err)
}

// Delete drops keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) Result {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()

	if c.store == nil || len(keys) == 0 {
		return Result{}
	}
	return c.degrade("delete", strings.Join(keys, ","), c.store.Delete(ctx, keys...))
}

// Invalidate drops every key starting with one of prefixes from both tiers and
// notifies peer processes so they drop their memory tier too.
func (c *Cache) Invalidate(ctx context.Context, prefixes ...string) Result {
	c.Forget(prefixes...)

	var errs []error
	if c.store != nil {
		for _, p := range prefixes {
			if err := c.store.DeletePrefix(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, prefixes); err != nil {
			errs = append(errs, err)
		}
	}
	return c.degrade("invalidate", strings.Join(prefixes, ","), errors.Join(errs...))
}

// Forget drops prefixed keys from the memory tier only.
func (c *Cache) Forget(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				delete(c.entries, k)
				break
			}
		}
	}
}

// Len reports the number of live memory entries.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) getDurable(ctx context.Context, key string, now time.Time) ([]byte, time.Time, bool) {
	if c.store == nil {
		return nil, time.Time{}, false
	}

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.degrade("get", key, err)
		}
		return nil, time.Time{}, false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.degrade("decode", key, err)
		return nil, time.Time{}, false
	}

	expiresAt := time.UnixMilli(env.ExpiresAt)
	if !now.Before(expiresAt) {
		return nil, time.Time{}, false
	}
	return []byte(env.Value), expiresAt, true
}

func (c *Cache) degrade(op, key string, err error) Result {
	if err == nil {
		return Result{}
	}
	metrics.CacheDurableErrorCounter.Inc()
	c.log.Debug("durable cache tier unavailable, using memory only",
		zap.String("op", op), zap.String("key", key), zap.Error(err))
	return Result{DurableErr: err}
}
