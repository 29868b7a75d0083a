package es

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommandKey_RoundTrip(t *testing.T) {
	k := NewCommandKey(42, time.Unix(1700000000, 0), "cmd-ca-publish")
	require.Equal(t, "command--1700000000--42--cmd-ca-publish", k.String())
	require.Equal(t, "command--1700000000--42--cmd-ca-publish.json", k.FileName())

	parsed, err := ParseCommandKey(k.FileName())
	require.NoError(t, err)
	require.Equal(t, k, parsed)
}

func TestParseCommandKey_Rejects(t *testing.T) {
	for _, s := range []string{
		"",
		"command--1--2--label",
		"command--1--2.json",
		"cmd--1--2--label.json",
		"command--x--2--label.json",
		"command--1--x--label.json",
		"command--1---2--label.json",
		"command--1--2--la--bel.json",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseCommandKey(s)
			var ke *CommandKeyError
			require.ErrorAs(t, err, &ke)
			require.Equal(t, s, ke.Key)
		})
	}
}

func TestCommandKey_Matches(t *testing.T) {
	k := CommandKey{Sequence: 1, TimestampSecs: 100, Label: "cmd-ca-publish"}

	var crit HistoryCriteria
	require.True(t, k.Matches(crit))

	crit.SetAfter(100)
	require.False(t, k.Matches(crit))
	crit.SetAfter(99)
	require.True(t, k.Matches(crit))

	crit.SetBefore(100)
	require.False(t, k.Matches(crit))
	crit.SetBefore(101)
	require.True(t, k.Matches(crit))

	crit.SetIncludes("other")
	require.False(t, k.Matches(crit))
	crit.SetIncludes("other", "cmd-ca-publish")
	require.True(t, k.Matches(crit))

	crit.SetExcludes("cmd-ca-publish")
	require.False(t, k.Matches(crit))
}

func TestHistoryCriteria_Rows(t *testing.T) {
	require.Equal(t, 100, HistoryCriteria{}.rows())
	require.Equal(t, 7, HistoryCriteria{Rows: 7}.rows())
	require.Greater(t, HistoryCriteria{Rows: -1}.rows(), 1<<30)
}
