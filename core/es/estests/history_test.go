package estests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/core/es/estests/domain"
	"github.com/codewandler/castore/ports/kv"
)

func sequences(h es.CommandHistory) []uint64 {
	out := make([]uint64, 0, len(h.Commands))
	for _, r := range h.Commands {
		out = append(out, r.Key.Sequence)
	}
	return out
}

// historyStore records one command per minute: inc, publish, inc, reset, publish, inc.
func historyStore(t *testing.T, store kv.Store) (*domain.Store, time.Time) {
	t.Helper()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	s := openStore(t, store, es.WithClock(clock.Now))
	h := es.Handle("ca-1")
	addCounter(t, s, h)

	for _, cmd := range []domain.Command{
		domain.Inc(h, 1),
		domain.Publish(h),
		domain.Inc(h, 2),
		domain.Reset(h),
		domain.Publish(h),
		domain.Inc(h, 3),
	} {
		clock.Advance(time.Minute)
		_, err := s.Command(t.Context(), cmd)
		require.NoError(t, err)
	}
	return s, start
}

func TestCommandHistory(t *testing.T) {
	forEachSUT(t, func(t *testing.T, store kv.Store) {
		s, start := historyStore(t, store)
		h := es.Handle("ca-1")
		minute := func(n int) int64 { return start.Add(time.Duration(n) * time.Minute).Unix() }

		tests := []struct {
			name  string
			crit  func() es.HistoryCriteria
			total int
			want  []uint64
		}{
			{
				name:  "all",
				crit:  func() es.HistoryCriteria { return es.HistoryCriteria{} },
				total: 6,
				want:  []uint64{1, 2, 3, 4, 5, 6},
			},
			{
				name:  "page",
				crit:  func() es.HistoryCriteria { return es.HistoryCriteria{Offset: 2, Rows: 3} },
				total: 6,
				want:  []uint64{3, 4, 5},
			},
			{
				name:  "page past end",
				crit:  func() es.HistoryCriteria { return es.HistoryCriteria{Offset: 4, Rows: 10} },
				total: 6,
				want:  []uint64{5, 6},
			},
			{
				name:  "offset at total",
				crit:  func() es.HistoryCriteria { return es.HistoryCriteria{Offset: 6} },
				total: 6,
				want:  []uint64{},
			},
			{
				name: "includes",
				crit: func() es.HistoryCriteria {
					var c es.HistoryCriteria
					c.SetIncludes(domain.PublishLabel)
					return c
				},
				total: 2,
				want:  []uint64{2, 5},
			},
			{
				name: "excludes",
				crit: func() es.HistoryCriteria {
					var c es.HistoryCriteria
					c.SetExcludes("cmd-counter-inc", "cmd-counter-reset")
					return c
				},
				total: 2,
				want:  []uint64{2, 5},
			},
			{
				name: "after is exclusive",
				crit: func() es.HistoryCriteria {
					var c es.HistoryCriteria
					c.SetAfter(minute(4))
					return c
				},
				total: 2,
				want:  []uint64{5, 6},
			},
			{
				name: "before is exclusive",
				crit: func() es.HistoryCriteria {
					var c es.HistoryCriteria
					c.SetBefore(minute(3))
					return c
				},
				total: 2,
				want:  []uint64{1, 2},
			},
			{
				name: "window and label",
				crit: func() es.HistoryCriteria {
					var c es.HistoryCriteria
					c.SetAfter(minute(1))
					c.SetBefore(minute(6))
					c.SetIncludes("cmd-counter-inc")
					return c
				},
				total: 1,
				want:  []uint64{3},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				hist, err := s.CommandHistory(t.Context(), h, tt.crit())
				require.NoError(t, err)
				require.Equal(t, tt.total, hist.Total)
				require.Equal(t, tt.want, sequences(hist))
			})
		}
	})
}

func TestCommandHistory_Records(t *testing.T) {
	s, start := historyStore(t, kv.NewMemStore())
	h := es.Handle("ca-1")

	hist, err := s.CommandHistory(t.Context(), h, es.HistoryCriteria{Offset: 2, Rows: 1})
	require.NoError(t, err)
	require.Equal(t, 2, hist.Offset)
	require.Len(t, hist.Commands, 1)

	rec := hist.Commands[0]
	require.Equal(t, es.CommandKey{
		Sequence:      3,
		TimestampSecs: start.Add(3 * time.Minute).Unix(),
		Label:         "cmd-counter-inc",
	}, rec.Key)
	require.Equal(t, h, rec.Command.Handle)
	require.EqualValues(t, 3, rec.Command.Version)
	require.Equal(t, "test", rec.Command.Actor)
	require.Equal(t, []uint64{3}, rec.Command.Effect.Events)
	require.Nil(t, rec.Command.Effect.Error)
	require.JSONEq(t, `{"id":"ca-1","op":"inc","by":2}`, string(rec.Command.Details))
}

func TestCommandHistory_OffsetTooLarge(t *testing.T) {
	s, _ := historyStore(t, kv.NewMemStore())

	_, err := s.CommandHistory(t.Context(), "ca-1", es.HistoryCriteria{Offset: 7})
	require.ErrorIs(t, err, es.ErrCommandOffsetTooLarge)

	_, err = s.CommandHistory(t.Context(), "ca-1", es.HistoryCriteria{Offset: -1})
	require.ErrorIs(t, err, es.ErrCommandOffsetTooLarge)
}

func TestCommandHistory_SkipsStrangeKeys(t *testing.T) {
	store := kv.NewMemStore()
	s, _ := historyStore(t, store)
	require.NoError(t, store.Put(t.Context(), kv.Scoped("ca-1", "command--oops.json"), []byte("{}")))

	hist, err := s.CommandHistory(t.Context(), "ca-1", es.HistoryCriteria{})
	require.NoError(t, err)
	require.Equal(t, 6, hist.Total)
}

func TestGetCommand(t *testing.T) {
	forEachSUT(t, func(t *testing.T, store kv.Store) {
		s, _ := historyStore(t, store)
		h := es.Handle("ca-1")

		cmd, err := s.GetCommandBySequence(t.Context(), h, 4)
		require.NoError(t, err)
		require.Equal(t, "cmd-counter-reset", cmd.Label)
		require.EqualValues(t, 5, cmd.ResultingVersion())

		byKey, err := s.GetCommand(t.Context(), h, cmd.Key())
		require.NoError(t, err)
		require.Equal(t, cmd, byKey)

		_, err = s.GetCommandBySequence(t.Context(), h, 42)
		require.ErrorIs(t, err, es.ErrUnknownCommand)

		corrupt(t, store, h, cmd.Key().FileName())
		_, err = s.GetCommand(t.Context(), h, cmd.Key())
		require.ErrorIs(t, err, es.ErrCommandCorrupt)

		var ref *es.CommandRefError
		require.ErrorAs(t, err, &ref)
		require.Equal(t, cmd.Key(), ref.Key)
		require.Equal(t, []string{"ca-1/" + cmd.Key().FileName()}, archived(t, store, kv.ArchiveKindCorrupt))

		_, err = s.GetCommand(t.Context(), h, cmd.Key())
		require.ErrorIs(t, err, es.ErrCommandNotFound)
	})
}
