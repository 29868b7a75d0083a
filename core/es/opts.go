package es

import (
	"log/slog"
	"os"
	"time"
)

var defaultArchivableLabels = []string{"cmd-ca-publish", "pubd-publish"}

type (
	storeOptions struct {
		log            *slog.Logger
		metrics        Metrics
		cacheSize      int
		archivable     []string
		now            func() time.Time
		exit           func(code int)
		requireCurrent bool
	}

	Option interface{ applyToStore(*storeOptions) }

	valueOption[T any]          struct{ v T }
	LogOption                   valueOption[*slog.Logger]
	MetricsOption               valueOption[Metrics]
	CacheSizeOption             valueOption[int]
	ArchivableLabelsOption      valueOption[[]string]
	ClockOption                 valueOption[func() time.Time]
	ExitOption                  valueOption[func(code int)]
	RequireCurrentVersionOption struct{}
)

func WithLog(l *slog.Logger) LogOption    { return LogOption{v: l} }
func WithMetrics(m Metrics) MetricsOption { return MetricsOption{v: m} }

// WithCacheSize bounds the aggregate cache to n entries (LRU). The default is unbounded.
func WithCacheSize(n int) CacheSizeOption { return CacheSizeOption{v: n} }

// WithArchivableLabels replaces the command labels ArchiveOldCommands may archive.
func WithArchivableLabels(labels ...string) ArchivableLabelsOption {
	return ArchivableLabelsOption{v: labels}
}

func WithClock(now func() time.Time) ClockOption { return ClockOption{v: now} }

// WithExit replaces os.Exit as the hook called when a validated command cannot be
// written. The hook must not return.
func WithExit(exit func(code int)) ExitOption { return ExitOption{v: exit} }

// WithRequireCurrentVersion makes Open fail with ErrMigrationRequired on an outdated layout.
func WithRequireCurrentVersion() RequireCurrentVersionOption {
	return RequireCurrentVersionOption{}
}

func (o LogOption) applyToStore(s *storeOptions)              { s.log = o.v }
func (o MetricsOption) applyToStore(s *storeOptions)          { s.metrics = o.v }
func (o CacheSizeOption) applyToStore(s *storeOptions)        { s.cacheSize = o.v }
func (o ArchivableLabelsOption) applyToStore(s *storeOptions) { s.archivable = o.v }
func (o ClockOption) applyToStore(s *storeOptions)            { s.now = o.v }
func (o ExitOption) applyToStore(s *storeOptions)             { s.exit = o.v }
func (o RequireCurrentVersionOption) applyToStore(s *storeOptions) {
	s.requireCurrent = true
}

func newStoreOptions(opts []Option) storeOptions {
	options := storeOptions{
		log:        slog.Default(),
		metrics:    NopMetrics(),
		archivable: defaultArchivableLabels,
		now:        time.Now,
		exit:       os.Exit,
	}
	for _, opt := range opts {
		opt.applyToStore(&options)
	}
	if options.log == nil {
		options.log = slog.Default()
	}
	if options.metrics == nil {
		options.metrics = NopMetrics()
	}
	if options.now == nil {
		options.now = time.Now
	}
	if options.exit == nil {
		options.exit = os.Exit
	}
	return options
}
