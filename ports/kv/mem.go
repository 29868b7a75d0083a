package kv

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemStore keeps everything in maps. It is meant for tests and ephemeral setups.
type MemStore struct {
	mu       sync.RWMutex
	data     map[Key][]byte
	archived map[ArchiveKind]map[Key][]byte
}

func NewMemStore() *MemStore {
	m := &MemStore{
		data:     map[Key][]byte{},
		archived: map[ArchiveKind]map[Key][]byte{},
	}
	for _, kind := range ArchiveKinds {
		m.archived[kind] = map[Key][]byte{}
	}
	return m
}

func (m *MemStore) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (m *MemStore) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(data)
	return nil
}

func (m *MemStore) PutNew(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return ErrExists
	}
	m.data[key] = slices.Clone(data)
	return nil
}

func (m *MemStore) Has(_ context.Context, key Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemStore) HasScope(_ context.Context, scope string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k := range m.data {
		if k.Scope == scope {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) Move(_ context.Context, src, dst Key) error {
	if err := dst.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[src]
	if !ok {
		return ErrNotFound
	}
	delete(m.data, src)
	m.data[dst] = data
	return nil
}

func (m *MemStore) Drop(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemStore) Keys(_ context.Context, scope string, prefix string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Key, 0)
	for k := range m.data {
		if k.Scope == scope && strings.HasPrefix(k.Name, prefix) {
			out = append(out, k)
		}
	}
	slices.SortFunc(out, func(a, b Key) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MemStore) Scopes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]struct{}{}
	out := make([]string, 0)
	for k := range m.data {
		if k.Scope == "" {
			continue
		}
		if _, ok := seen[k.Scope]; ok {
			continue
		}
		seen[k.Scope] = struct{}{}
		out = append(out, k.Scope)
	}
	slices.Sort(out)
	return out, nil
}

func (m *MemStore) Archive(_ context.Context, key Key) error {
	return m.archive(ArchiveKindArchived, key)
}

func (m *MemStore) ArchiveSurplus(_ context.Context, key Key) error {
	return m.archive(ArchiveKindSurplus, key)
}

func (m *MemStore) ArchiveCorrupt(_ context.Context, key Key) error {
	return m.archive(ArchiveKindCorrupt, key)
}

func (m *MemStore) archive(kind ArchiveKind, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[key]
	if !ok {
		return ErrNotFound
	}
	ns := m.archived[kind]
	name := ArchiveName(key.Name, func(n string) bool {
		_, taken := ns[key.WithName(n)]
		return taken
	})
	ns[key.WithName(name)] = data
	delete(m.data, key)
	return nil
}

// Archived lists the keys moved into the given archive namespace, ordered by scope and name.
func (m *MemStore) Archived(kind ArchiveKind) []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Key, 0, len(m.archived[kind]))
	for k := range m.archived[kind] {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Key) int {
		if c := strings.Compare(a.Scope, b.Scope); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// ArchivedValue returns the data of an archived key.
func (m *MemStore) ArchivedValue(kind ArchiveKind, key Key) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.archived[kind][key]
	return data, ok
}

var _ Store = (*MemStore)(nil)
