package data

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryCacheRepo implements the CacheRepository interface in process memory.
// It is used for single-instance deployments and tests.
type MemoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   TimeProvider
}

// NewMemoryCacheRepo creates an empty MemoryCacheRepo. A nil clock uses the system time.
func NewMemoryCacheRepo(clock TimeProvider) *MemoryCacheRepo {
	return &MemoryCacheRepo{entries: make(map[string]memoryEntry), clock: clockOrSystem(clock)}
}

func (m *MemoryCacheRepo) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.clock.Now().Add(ttl)
}

// lookup returns a live entry, evicting it if expired. Caller holds m.mu.
func (m *MemoryCacheRepo) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if e.expired(m.clock.Now()) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Set stores a copy of value under key.
func (m *MemoryCacheRepo) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyCacheKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: m.deadline(ttl)}
	return nil
}

// Get returns a copy of the value stored under key, or nil if absent.
func (m *MemoryCacheRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyCacheKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

// Delete removes key.
func (m *MemoryCacheRepo) Delete(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyCacheKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	delete(m.entries, key)
	return ok, nil
}

// DeletePrefix removes every key starting with prefix.
func (m *MemoryCacheRepo) DeletePrefix(_ context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, ErrEmptyCacheKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	n := 0
	for k, e := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !e.expired(now) {
			n++
		}
		delete(m.entries, k)
	}
	return n, nil
}

// Exists reports whether key holds a live value.
func (m *MemoryCacheRepo) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyCacheKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// Health always succeeds.
func (m *MemoryCacheRepo) Health(context.Context) error { return nil }

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *MemoryCacheRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
