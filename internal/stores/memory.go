package stores

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryKey struct {
	space Space
	key   string
}

// Memory is the in-process variant. It is not durable and not shared
// between processes.
type Memory struct {
	clock Clock

	mu      sync.Mutex
	entries map[memoryKey]memoryEntry
}

// NewMemory returns an empty Memory store. A nil clock uses time.Now.
func NewMemory(clock Clock) *Memory {
	return &Memory{
		clock:   clock,
		entries: make(map[memoryKey]memoryEntry),
	}
}

func (m *Memory) Kind() Kind { return KindMemory }

func (m *Memory) Put(_ context.Context, space Space, key, value string, ttl time.Duration) error {
	if !space.valid() {
		return ErrUnknownSpace
	}
	k := memoryKey{space, key}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.entries, k)
		return nil
	}
	m.entries[k] = memoryEntry{value: value, expiresAt: m.clock.now().Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, space Space, key string) (string, bool, error) {
	if !space.valid() {
		return "", false, ErrUnknownSpace
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(memoryKey{space, key})
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Delete(_ context.Context, space Space, key string) error {
	if !space.valid() {
		return ErrUnknownSpace
	}

	m.mu.Lock()
	delete(m.entries, memoryKey{space, key})
	m.mu.Unlock()
	return nil
}

func (m *Memory) ConsumeIfMatch(_ context.Context, space Space, key, expected string) (bool, error) {
	if !space.valid() {
		return false, ErrUnknownSpace
	}
	k := memoryKey{space, key}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(k)
	if !ok {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(e.value), []byte(expected)) != 1 {
		return false, nil
	}
	delete(m.entries, k)
	return true, nil
}

// Len returns the number of entries held, including stale ones not yet
// evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// liveLocked returns the entry for k, evicting it if stale. m.mu must be held.
func (m *Memory) liveLocked(k memoryKey) (memoryEntry, bool) {
	e, ok := m.entries[k]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.clock.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return memoryEntry{}, false
	}
	return e, true
}
