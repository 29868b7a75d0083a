// Package kvtest holds the behaviour every kv.Store implementation has to provide.
package kvtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/ports/kv"
)

type fooBar struct {
	Fruit string `json:"fruit"`
	Count int    `json:"count"`
}

// Run exercises store. newStore must return an empty store on each call.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Run("get put", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		key := kv.Scoped("ca-1", "info.json")

		_, err := kv.Get[fooBar](ctx, s, key)
		require.ErrorIs(t, err, kv.ErrNotFound)

		_, ok, err := kv.Lookup[fooBar](ctx, s, key)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, kv.Put(ctx, s, key, fooBar{Fruit: "apple", Count: 10}))
		require.NoError(t, kv.Put(ctx, s, key, fooBar{Fruit: "apple", Count: 11}))

		loaded, err := kv.Get[fooBar](ctx, s, key)
		require.NoError(t, err)
		require.Equal(t, fooBar{Fruit: "apple", Count: 11}, loaded)

		has, err := s.Has(ctx, key)
		require.NoError(t, err)
		require.True(t, has)
	})

	t.Run("put new refuses overwrite", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		key := kv.Scoped("ca-1", "delta-0.json")

		require.NoError(t, s.PutNew(ctx, key, []byte(`{"v":1}`)))
		require.ErrorIs(t, s.PutNew(ctx, key, []byte(`{"v":2}`)), kv.ErrExists)

		data, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.JSONEq(t, `{"v":1}`, string(data))
	})

	t.Run("corrupt value", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		key := kv.Scoped("ca-1", "snapshot.json")

		require.NoError(t, s.Put(ctx, key, []byte("{not json")))
		_, err := kv.Get[fooBar](ctx, s, key)
		require.Error(t, err)
		require.True(t, kv.IsCorrupt(err))
	})

	t.Run("global keys", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, kv.Put(ctx, s, kv.Simple("version"), "V0_8"))
		v, err := kv.Get[string](ctx, s, kv.Simple("version"))
		require.NoError(t, err)
		require.Equal(t, "V0_8", v)

		scopes, err := s.Scopes(ctx)
		require.NoError(t, err)
		require.Empty(t, scopes)
	})

	t.Run("keys and scopes", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		for _, k := range []kv.Key{
			kv.Scoped("ca-2", "delta-0.json"),
			kv.Scoped("ca-1", "delta-1.json"),
			kv.Scoped("ca-1", "delta-0.json"),
			kv.Scoped("ca-1", "info.json"),
		} {
			require.NoError(t, s.Put(ctx, k, []byte("{}")))
		}

		keys, err := s.Keys(ctx, "ca-1", "delta-")
		require.NoError(t, err)
		require.Equal(t, []kv.Key{
			kv.Scoped("ca-1", "delta-0.json"),
			kv.Scoped("ca-1", "delta-1.json"),
		}, keys)

		scopes, err := s.Scopes(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"ca-1", "ca-2"}, scopes)

		has, err := s.HasScope(ctx, "ca-2")
		require.NoError(t, err)
		require.True(t, has)
		has, err = s.HasScope(ctx, "ca-3")
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("move and drop", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		cur := kv.Scoped("ca-1", "snapshot.json")
		bk := kv.Scoped("ca-1", "snapshot-bk.json")

		require.NoError(t, s.Put(ctx, cur, []byte(`"a"`)))
		require.NoError(t, s.Put(ctx, bk, []byte(`"old"`)))
		require.NoError(t, s.Move(ctx, cur, bk))

		has, err := s.Has(ctx, cur)
		require.NoError(t, err)
		require.False(t, has)

		data, err := s.Get(ctx, bk)
		require.NoError(t, err)
		require.Equal(t, `"a"`, string(data))

		require.ErrorIs(t, s.Move(ctx, cur, bk), kv.ErrNotFound)

		require.NoError(t, s.Drop(ctx, bk))
		require.NoError(t, s.Drop(ctx, bk))
		_, err = s.Get(ctx, bk)
		require.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("archive", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		key := kv.Scoped("ca-1", "delta-3.json")

		for _, kind := range kv.ArchiveKinds {
			require.NoError(t, s.Put(ctx, key, []byte(`{}`)))
			require.NoError(t, kv.ArchiveTo(ctx, s, kind, key))

			has, err := s.Has(ctx, key)
			require.NoError(t, err)
			require.False(t, has)
		}

		// archiving the same name twice keeps both copies
		require.NoError(t, s.Put(ctx, key, []byte(`{}`)))
		require.NoError(t, s.ArchiveCorrupt(ctx, key))

		keys, err := s.Keys(ctx, "ca-1", "")
		require.NoError(t, err)
		require.Empty(t, keys)

		require.ErrorIs(t, s.Archive(ctx, key), kv.ErrNotFound)
	})

	t.Run("scope disappears after its last key is archived", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()
		key := kv.Scoped("ca-1", "info.json")

		require.NoError(t, s.Put(ctx, key, []byte(`{}`)))
		require.NoError(t, s.Put(ctx, kv.Scoped("ca-2", "info.json"), []byte(`{}`)))
		require.NoError(t, s.Archive(ctx, key))

		scopes, err := s.Scopes(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"ca-2"}, scopes)

		has, err := s.HasScope(ctx, "ca-1")
		require.NoError(t, err)
		require.False(t, has)
	})
}
