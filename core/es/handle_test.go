package es

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandle_Validate(t *testing.T) {
	for _, h := range []string{"ca", "ca-1", "TA_root", strings.Repeat("a", 255)} {
		_, err := ParseHandle(h)
		require.NoError(t, err, h)
	}
	for _, h := range []string{"", "ca 1", "ca/1", "ca.1", "ca\n", "çà", strings.Repeat("a", 256)} {
		_, err := ParseHandle(h)
		require.ErrorIs(t, err, ErrInvalidHandle, h)
	}
}

func TestParseEventVersion(t *testing.T) {
	tests := []struct {
		name string
		v    uint64
		ok   bool
	}{
		{"delta-0.json", 0, true},
		{"delta-42.json", 42, true},
		{"delta-.json", 0, false},
		{"delta-x.json", 0, false},
		{"delta-1", 0, false},
		{"snapshot.json", 0, false},
		{"delta--1.json", 0, false},
	}
	for _, tt := range tests {
		v, ok := parseEventVersion(tt.name)
		require.Equal(t, tt.ok, ok, tt.name)
		require.Equal(t, tt.v, v, tt.name)
	}

	name := eventKey("ca", 17).Name
	v, ok := parseEventVersion(name)
	require.True(t, ok)
	require.EqualValues(t, 17, v)
}
