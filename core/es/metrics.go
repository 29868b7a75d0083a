package es

import (
	"time"

	"github.com/codewandler/castore/ports/kv"
)

// Command outcomes reported to Metrics.CommandProcessed.
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeError    = "error"
	OutcomeConflict = "conflict"
)

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes. *prometheus.Timer satisfies it.
type Timer interface {
	ObserveDuration() time.Duration
}

// Metrics is the instrumentation surface of the store. Implementations must be
// safe for concurrent use.
type Metrics interface {
	CommandDuration() Timer
	CommandProcessed(outcome string)
	EventsAppended(count int)
	SnapshotSaved()

	CacheHit()
	CacheMiss()
	EventsReplayed(count int)

	KeyArchived(kind kv.ArchiveKind)
	HandleRecovered(clean bool)
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() time.Duration { return 0 }

type nopMetrics struct{}

func (nopMetrics) CommandDuration() Timer     { return nopTimer{} }
func (nopMetrics) CommandProcessed(string)    {}
func (nopMetrics) EventsAppended(int)         {}
func (nopMetrics) SnapshotSaved()             {}
func (nopMetrics) CacheHit()                  {}
func (nopMetrics) CacheMiss()                 {}
func (nopMetrics) EventsReplayed(int)         {}
func (nopMetrics) KeyArchived(kv.ArchiveKind) {}
func (nopMetrics) HandleRecovered(bool)       {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
