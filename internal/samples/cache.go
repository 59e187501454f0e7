// Package samples remembers the previous GPS sample of a guard at a job so
// successive check-in attempts can be labelled as improving.
package samples

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"securyflex/verification-service/internal/gps"
)

func key(guardID, jobID string) string {
	return fmt.Sprintf("gps:last:%s:%s", guardID, jobID)
}

// RedisCache stores the last sample per guard and job with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a cache on rdb whose entries expire after ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Previous returns the last remembered sample, or nil when there is none.
func (c *RedisCache) Previous(ctx context.Context, guardID, jobID string) (*gps.Reading, error) {
	raw, err := c.rdb.Get(ctx, key(guardID, jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("samples get: %w", err)
	}

	var r gps.Reading
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("samples decode: %w", err)
	}
	return &r, nil
}

// Remember stores r as the latest sample.
func (c *RedisCache) Remember(ctx context.Context, guardID, jobID string, r gps.Reading) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("samples encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key(guardID, jobID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("samples set: %w", err)
	}
	return nil
}

// Memory is an in-process cache for single-instance deployments
// (SAMPLE_CACHE=memory). Expired entries are dropped on read and by Purge.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	reading gps.Reading
	expires time.Time
}

// NewMemory returns an in-process cache whose entries expire after ttl.
// A nil now uses time.Now.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

// Previous returns the last remembered sample, or nil when there is none.
func (m *Memory) Previous(_ context.Context, guardID, jobID string) (*gps.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(guardID, jobID)
	e, ok := m.entries[k]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, k)
		return nil, nil
	}
	r := e.reading
	return &r, nil
}

// Purge drops every expired entry and returns how many were removed.
func (m *Memory) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries held, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Remember stores r as the latest sample.
func (m *Memory) Remember(_ context.Context, guardID, jobID string, r gps.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key(guardID, jobID)] = memoryEntry{reading: r, expires: m.now().Add(m.ttl)}
	return nil
}
