package estests

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/core/es/estests/domain"
	"github.com/codewandler/castore/ports/kv"
)

type sut struct {
	name  string
	newKV func(t *testing.T) kv.Store
}

func getSUTs() []sut {
	return []sut{
		{
			name:  "memory",
			newKV: func(t *testing.T) kv.Store { return kv.NewMemStore() },
		},
		{
			name: "disk",
			newKV: func(t *testing.T) kv.Store {
				s, err := kv.NewDiskStore(t.TempDir())
				require.NoError(t, err)
				return s
			},
		},
	}
}

func forEachSUT(t *testing.T, fn func(t *testing.T, store kv.Store)) {
	for _, s := range getSUTs() {
		t.Run(s.name, func(t *testing.T) {
			fn(t, s.newKV(t))
		})
	}
}

// openStore opens a counter store whose exit hook panics instead of exiting.
func openStore(t *testing.T, store kv.Store, opts ...es.Option) *domain.Store {
	t.Helper()
	defaults := []es.Option{
		es.WithExit(func(code int) { panic(fmt.Sprintf("exit %d", code)) }),
	}
	s, err := domain.Open(t.Context(), store, append(defaults, opts...)...)
	require.NoError(t, err)
	return s
}

func addCounter(t *testing.T, s *domain.Store, h es.Handle) *domain.Counter {
	t.Helper()
	c, err := s.Add(t.Context(), domain.Created{ID: h})
	require.NoError(t, err)
	return c
}

func incTimes(t *testing.T, s *domain.Store, h es.Handle, n int) *domain.Counter {
	t.Helper()
	var (
		c   *domain.Counter
		err error
	)
	for range n {
		c, err = s.Command(t.Context(), domain.Inc(h, 1))
		require.NoError(t, err)
	}
	return c
}

// dump returns every active key and its value.
func dump(t *testing.T, store kv.Store) map[string]string {
	t.Helper()
	ctx := t.Context()

	scopes, err := store.Scopes(ctx)
	require.NoError(t, err)

	out := map[string]string{}
	for _, scope := range append([]string{""}, scopes...) {
		keys, err := store.Keys(ctx, scope, "")
		require.NoError(t, err)
		for _, k := range keys {
			data, err := store.Get(ctx, k)
			require.NoError(t, err)
			out[k.String()] = string(data)
		}
	}
	return out
}

func keyNames(t *testing.T, store kv.Store, h es.Handle, prefix string) []string {
	t.Helper()
	keys, err := store.Keys(t.Context(), string(h), prefix)
	require.NoError(t, err)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Name)
	}
	return out
}

func archived(t *testing.T, store kv.Store, kind kv.ArchiveKind) []string {
	t.Helper()
	var keys []kv.Key
	switch s := store.(type) {
	case *kv.MemStore:
		keys = s.Archived(kind)
	case *kv.DiskStore:
		var err error
		keys, err = s.Archived(kind)
		require.NoError(t, err)
	default:
		t.Skipf("cannot inspect archive of %T", store)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}
	slices.Sort(out)
	return out
}

func snapshotAt(t *testing.T, store kv.Store, h es.Handle, name string) *domain.Counter {
	t.Helper()
	c, err := kv.Get[*domain.Counter](t.Context(), store, kv.Scoped(string(h), name))
	require.NoError(t, err)
	return c
}

func corrupt(t *testing.T, store kv.Store, h es.Handle, name string) {
	t.Helper()
	require.NoError(t, store.Put(t.Context(), kv.Scoped(string(h), name), []byte("{not json")))
}

func drop(t *testing.T, store kv.Store, h es.Handle, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, store.Drop(t.Context(), kv.Scoped(string(h), name)))
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errDiskFull = errors.New("disk full")

// failingStore rejects PutNew for matching keys.
type failingStore struct {
	kv.Store
	fail func(key kv.Key) bool
}

func (f failingStore) PutNew(ctx context.Context, key kv.Key, data []byte) error {
	if f.fail(key) {
		return errDiskFull
	}
	return f.Store.PutNew(ctx, key, data)
}

// unreadableStore fails Get for matching keys.
type unreadableStore struct {
	kv.Store
	fail func(key kv.Key) bool
}

func (u unreadableStore) Get(ctx context.Context, key kv.Key) ([]byte, error) {
	if u.fail(key) {
		return nil, errDiskFull
	}
	return u.Store.Get(ctx, key)
}
