package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a fixed-window counter store. IncrementWithin applies the
// window rule atomically:
//   - no live counter: create it at 1 with a fresh window, allow
//   - counter >= ceiling: deny, counter unchanged
//   - otherwise: increment within the current window, allow
type Counter interface {
	IncrementWithin(ctx context.Context, key string, ceiling int64, window time.Duration) (count int64, allowed bool, err error)
}

var ErrInvalidWindow = errors.New("cache: window must be positive")

// fixedWindowScript keeps the TTL of an existing counter so that increments
// never extend the window.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
	return {1, 1}
end
current = tonumber(current)
if current >= tonumber(ARGV[1]) then
	return {current, 0}
end
return {redis.call("INCR", KEYS[1]), 1}
`)

type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter wraps an existing client. prefix is prepended to every key.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (r *RedisCounter) IncrementWithin(ctx context.Context, key string, ceiling int64, window time.Duration) (int64, bool, error) {
	if window <= 0 {
		return 0, false, ErrInvalidWindow
	}

	res, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + key}, ceiling, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("cache: increment %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("cache: unexpected script reply %v", res)
	}

	return res[0], res[1] == 1, nil
}

func (r *RedisCounter) Close() error {
	return r.client.Close()
}

type InMemoryCounter struct {
	mu   sync.Mutex
	data map[string]counterEntry
	now  func() time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

func NewInMemoryCounter() *InMemoryCounter {
	return NewInMemoryCounterWithClock(time.Now)
}

// NewInMemoryCounterWithClock lets tests move time forward.
func NewInMemoryCounterWithClock(now func() time.Time) *InMemoryCounter {
	return &InMemoryCounter{
		data: make(map[string]counterEntry),
		now:  now,
	}
}

func (m *InMemoryCounter) IncrementWithin(ctx context.Context, key string, ceiling int64, window time.Duration) (int64, bool, error) {
	if window <= 0 {
		return 0, false, ErrInvalidWindow
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, exists := m.data[key]
	if !exists || !now.Before(entry.expiresAt) {
		m.data[key] = counterEntry{count: 1, expiresAt: now.Add(window)}
		m.sweep(now)
		return 1, true, nil
	}

	if entry.count >= ceiling {
		return entry.count, false, nil
	}

	entry.count++
	m.data[key] = entry
	return entry.count, true, nil
}

// sweep drops expired counters so per-client keys do not accumulate.
func (m *InMemoryCounter) sweep(now time.Time) {
	for k, e := range m.data {
		if !now.Before(e.expiresAt) {
			delete(m.data, k)
		}
	}
}

// Len reports the number of live counters.
func (m *InMemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
