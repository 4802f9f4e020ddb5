package cache

import (
	"context"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLMap is an in-process map whose entries read as absent once older than
// the TTL. Expired entries are dropped lazily on access.
type TTLMap[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]entry[V]
}

func NewTTLMap[V any](ttl time.Duration, clk clock.Clock) *TTLMap[V] {
	return &TTLMap[V]{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]entry[V]),
	}
}

func (m *TTLMap[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if m.clock.Now().Sub(e.storedAt) >= m.ttl {
		delete(m.entries, key)
		return zero, false
	}
	return e.value, true
}

func (m *TTLMap[V]) Set(_ context.Context, key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[V]{value: value, storedAt: m.clock.Now()}
}

func (m *TTLMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
