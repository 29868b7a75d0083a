package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/internal/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendDisk, Dir: t.TempDir()},
		Archive: config.ArchiveConfig{Labels: []string{"cmd-ca-publish"}},
		Log:     config.LogConfig{Level: "error"},
	}
	a, err := newApp(t.Context(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestHandleArg(t *testing.T) {
	h, err := handleArg([]string{"ca-1"})
	require.NoError(t, err)
	require.Equal(t, es.Handle("ca-1"), h)

	_, err = handleArg(nil)
	require.Error(t, err)
	_, err = handleArg([]string{"a", "b"})
	require.Error(t, err)
	_, err = handleArg([]string{"a/b"})
	require.ErrorIs(t, err, es.ErrInvalidHandle)
}

func TestApp_Version(t *testing.T) {
	a := newTestApp(t)

	v, err := a.journal.GetVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, es.CurrentKeyStoreVersion, v)

	require.NoError(t, a.version(t.Context(), []string{"-set=V0_7"}))
	v, err = a.journal.GetVersion(t.Context())
	require.NoError(t, err)
	require.Equal(t, es.V0_7, v)

	require.Error(t, a.version(t.Context(), []string{"-set=bogus"}))
}

func TestApp_Commands(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.list(t.Context(), nil))
	require.ErrorIs(t, a.info(t.Context(), []string{"ca-1"}), es.ErrInfoMissing)
	require.Error(t, a.history(t.Context(), []string{"-after=yesterday", "ca-1"}))

	require.Error(t, a.archive(t.Context(), nil))
	require.NoError(t, a.archive(t.Context(), []string{"-days=30"}))
	require.ErrorIs(t, a.archive(t.Context(), []string{"-days=30", "ca-1"}), es.ErrCouldNotArchive)
}
