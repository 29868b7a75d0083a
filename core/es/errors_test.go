package es

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	var replay error = &ReplayError{Handle: "ca", Limit: 3, FailedAt: 2}
	require.ErrorIs(t, replay, ErrReplay)
	require.Equal(t, "cannot reconstruct 'ca' to version '3', failed at version 2", replay.Error())

	warm := &WarmupError{Handle: "ca", Err: replay}
	require.ErrorIs(t, warm, ErrWarmupFailed)
	require.ErrorIs(t, warm, ErrReplay)

	var re *ReplayError
	require.ErrorAs(t, warm, &re)
	require.EqualValues(t, 2, re.FailedAt)

	joined := errors.Join(&RecoverError{Handle: "a", Err: io.EOF}, &RecoverError{Handle: "b", Err: replay})
	require.ErrorIs(t, joined, ErrCouldNotRecover)
	require.ErrorIs(t, joined, io.EOF)
	require.ErrorIs(t, joined, ErrReplay)

	require.ErrorIs(t, &ArchiveError{Handle: "ca", Err: io.EOF}, ErrCouldNotArchive)
	require.ErrorIs(t, &CommandRefError{Kind: ErrCommandCorrupt, Handle: "ca"}, ErrCommandCorrupt)
	require.ErrorIs(t, &EventRefError{Handle: "ca", Version: 3}, ErrEventCorrupt)

	sf := storeFailure("get info", io.ErrUnexpectedEOF)
	require.ErrorIs(t, sf, ErrStoreFailure)
	require.ErrorIs(t, sf, io.ErrUnexpectedEOF)
}
