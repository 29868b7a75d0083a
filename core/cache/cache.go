package cache

import "sync"

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, val V)
	Delete(key K)
	Len() int
}

// Map is an unbounded Cache.
type Map[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Map[K, V]) Put(key K, val V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = val
}

func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

var _ Cache[string, any] = (*Map[string, any])(nil)
