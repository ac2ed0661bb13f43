package roster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/backendapi"
)

// Cache stores class rosters keyed by class id. Entries expire by TTL and
// can be invalidated explicitly (session reset, refresh action).
type Cache interface {
	Get(ctx context.Context, classID string) ([]backendapi.Student, bool)
	Set(ctx context.Context, classID string, students []backendapi.Student)
	Invalidate(ctx context.Context, classID string)
}

// MemoryCache is a process-local roster cache for single-instance deploys.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	students  []backendapi.Student
	expiresAt time.Time
}

// NewMemoryCache creates a cache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, classID string) ([]backendapi.Student, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[classID]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, classID)
		return nil, false
	}
	return e.students, true
}

func (c *MemoryCache) Set(_ context.Context, classID string, students []backendapi.Student) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[classID] = memoryEntry{students: students, expiresAt: time.Now().Add(c.ttl)}
}

func (c *MemoryCache) Invalidate(_ context.Context, classID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, classID)
}

// RedisCache shares rosters across instances as JSON blobs with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func rosterKey(classID string) string {
	return "roster:" + classID
}

func (c *RedisCache) Get(ctx context.Context, classID string) ([]backendapi.Student, bool) {
	data, err := c.client.Get(ctx, rosterKey(classID)).Bytes()
	if err != nil {
		return nil, false
	}
	var students []backendapi.Student
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, false
	}
	return students, true
}

func (c *RedisCache) Set(ctx context.Context, classID string, students []backendapi.Student) {
	data, err := json.Marshal(students)
	if err != nil {
		return
	}
	// Cache write failures are not fatal; the next read falls through.
	_ = c.client.Set(ctx, rosterKey(classID), data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, classID string) {
	_ = c.client.Del(ctx, rosterKey(classID)).Err()
}
