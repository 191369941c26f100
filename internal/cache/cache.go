// Package cache provides the process-local, time-expiring byte cache used to
// serve profile pictures without a storage round trip.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-memory key→bytes cache with per-entry TTL. Expiration is
// absolute from insertion; reads do not extend it. Safe for concurrent use.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates a cache that sweeps expired entries every cleanupInterval.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Get returns the cached bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores a private copy of value under key for ttl.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	m.c.Set(key, append([]byte(nil), value...), ttl)
}

// Invalidate removes key. Removing an absent key is a no-op.
func (m *Memory) Invalidate(key string) {
	m.c.Delete(key)
}
