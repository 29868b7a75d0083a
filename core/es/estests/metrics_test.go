package estests

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/core/es/estests/domain"
	"github.com/codewandler/castore/ports/kv"
)

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) add(name string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name] += n
}

func (m *recordingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

type recordingTimer struct{ m *recordingMetrics }

func (t recordingTimer) ObserveDuration() time.Duration {
	t.m.add("command_duration", 1)
	return 0
}

func (m *recordingMetrics) CommandDuration() es.Timer { return recordingTimer{m} }
func (m *recordingMetrics) CommandProcessed(outcome string) {
	m.add("command_"+outcome, 1)
}
func (m *recordingMetrics) EventsAppended(n int) { m.add("events_appended", n) }
func (m *recordingMetrics) SnapshotSaved()       { m.add("snapshot_saved", 1) }
func (m *recordingMetrics) CacheHit()            { m.add("cache_hit", 1) }
func (m *recordingMetrics) CacheMiss()           { m.add("cache_miss", 1) }
func (m *recordingMetrics) EventsReplayed(n int) { m.add("events_replayed", n) }
func (m *recordingMetrics) KeyArchived(kind kv.ArchiveKind) {
	m.add("archived_"+string(kind), 1)
}
func (m *recordingMetrics) HandleRecovered(clean bool) {
	m.add(fmt.Sprintf("recovered_%t", clean), 1)
}

func TestStore_Metrics(t *testing.T) {
	store := kv.NewMemStore()
	m := newRecordingMetrics()
	s := openStore(t, store, es.WithMetrics(m))
	h := es.Handle("ca-1")
	addCounter(t, s, h)

	_, err := s.Command(t.Context(), domain.IncN(h, 4, 1))
	require.NoError(t, err)
	_, err = s.Command(t.Context(), domain.Noop(h))
	require.NoError(t, err)
	_, err = s.Command(t.Context(), domain.Inc(h, domain.MaxCount))
	require.Error(t, err)
	_, err = s.Command(t.Context(), domain.Inc(h, 1).Expect(2))
	require.Error(t, err)

	require.Equal(t, 4, m.count("command_duration"))
	require.Equal(t, 1, m.count("command_ok"))
	require.Equal(t, 1, m.count("command_noop"))
	require.Equal(t, 1, m.count("command_error"))
	require.Equal(t, 1, m.count("command_conflict"))
	require.Equal(t, 4, m.count("events_appended"))
	// one for the init snapshot and one at version 5
	require.Equal(t, 2, m.count("snapshot_saved"))

	drop(t, store, h, "snapshot.json", "snapshot-bk.json")
	_, err = openStore(t, store, es.WithMetrics(m)).GetLatest(t.Context(), h)
	require.NoError(t, err)
	require.Equal(t, 4, m.count("events_replayed"))

	corrupt(t, store, h, "delta-4.json")
	require.NoError(t, openStore(t, store, es.WithMetrics(m)).Recover(t.Context()))
	require.Equal(t, 1, m.count("archived_corrupt"))
	require.Equal(t, 1, m.count("recovered_false"))
}
