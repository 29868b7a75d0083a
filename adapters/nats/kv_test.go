package nats

import (
	"testing"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/ports/kv"
	"github.com/codewandler/castore/ports/kv/kvtest"
)

func TestKV(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	connect := NewTestContainer(t)
	kvtest.Run(t, func(t *testing.T) kv.Store {
		return NewTestKvStore(t, connect, "castore_"+gonanoid.MustGenerate("abcdefghijklmnop", 10))
	})
}

func TestKV_Subjects(t *testing.T) {
	s, err := subjectFor(kv.Scoped("ca-1", "delta-0.json"))
	require.NoError(t, err)
	require.Equal(t, "s.ca-1.delta-0.json", s)

	s, err = subjectFor(kv.Simple("version"))
	require.NoError(t, err)
	require.Equal(t, "g.version", s)

	_, err = subjectFor(kv.Scoped("ca.1", "info.json"))
	require.ErrorIs(t, err, kv.ErrInvalidKey)

	require.Equal(t, "a.corrupt.ca-1.snapshot.json", archiveSubjectFor(kv.ArchiveKindCorrupt, kv.Scoped("ca-1", "snapshot.json")))
	require.Equal(t, "a.archived._.version", archiveSubjectFor(kv.ArchiveKindArchived, kv.Simple("version")))
}
