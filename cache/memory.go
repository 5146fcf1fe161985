// Package cache provides caching implementations for Prefect module
// resolution. Only module lookups are cached; authorization decisions are
// re-evaluated on every check.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/campuskit/prefect"
	"github.com/campuskit/prefect/module"
)

// Compile-time interface check.
var _ prefect.ModuleCache = (*Memory)(nil)

// Memory is an in-memory module cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	mod       *module.Module
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory module cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached module.
func (m *Memory) Get(_ context.Context, tenantID, name string) (*module.Module, bool) {
	key := cacheKey(tenantID, name)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.mod, true
}

// Set stores a module in the cache.
func (m *Memory) Set(_ context.Context, mod *module.Module) {
	key := cacheKey(mod.TenantID, mod.Name)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict oldest entry.
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		mod:       mod,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// Invalidate removes one module from the cache.
func (m *Memory) Invalidate(_ context.Context, tenantID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(tenantID, name))
}

// InvalidateTenant removes all cached modules for a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	prefix := tenantID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

func cacheKey(tenantID, name string) string {
	return tenantID + ":" + name
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
