package es

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/codewandler/castore/core/cache"
	"github.com/codewandler/castore/core/sf"
	"github.com/codewandler/castore/ports/kv"
)

// Store persists aggregates of type A, changed by commands C through events E and
// created from init events I.
type Store[A Aggregate[A, C, E], C Command, E Event, I Event] struct {
	*Journal

	init      InitFunc[A, I]
	cache     cache.Cache[Handle, A]
	loads     *sf.Singleflight[A]
	listeners []Listener[A, E]
	exit      func(code int)
}

// Open opens the aggregate store on top of store.
func Open[A Aggregate[A, C, E], C Command, E Event, I Event](
	ctx context.Context,
	store kv.Store,
	init InitFunc[A, I],
	opts ...Option,
) (*Store[A, C, E, I], error) {
	if init == nil {
		return nil, fmt.Errorf("%w: init func is nil", ErrNotInitialised)
	}

	options := newStoreOptions(opts)
	j, err := openJournal(ctx, store, options)
	if err != nil {
		return nil, err
	}

	var c cache.Cache[Handle, A]
	if options.cacheSize > 0 {
		c = cache.NewLRU[Handle, A](options.cacheSize)
	} else {
		c = cache.NewMap[Handle, A]()
	}

	return &Store[A, C, E, I]{
		Journal: j,
		init:    init,
		cache:   c,
		loads:   sf.New[A](),
		exit:    options.exit,
	}, nil
}

// AddListener registers l for all events committed after this call.
func (s *Store[A, C, E, I]) AddListener(l Listener[A, E]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Add creates a new aggregate from its init event.
func (s *Store[A, C, E, I]) Add(ctx context.Context, init I) (agg A, err error) {
	h := init.Handle()
	if err = h.Validate(); err != nil {
		return
	}
	if init.Version() != 0 {
		return agg, fmt.Errorf("%w: init event for '%s' has version %d", ErrWrongEventForAggregate, h, init.Version())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = kv.PutNew(ctx, s.kv, eventKey(h, 0), init); err != nil {
		if errors.Is(err, kv.ErrExists) {
			return agg, fmt.Errorf("%w: '%s'", ErrAggregateExists, h)
		}
		return agg, storeFailure("store init event", err)
	}

	if agg, err = s.init(init); err != nil {
		return agg, fmt.Errorf("%w for '%s': %w", ErrInitFailed, h, err)
	}
	if err = storeSnapshot(ctx, s.Journal, h, agg); err != nil {
		return
	}
	if err = s.saveInfo(ctx, h, NewStoredValueInfo(s.now())); err != nil {
		return
	}
	s.cache.Put(h, agg)

	s.log.Info("aggregate added", h.SlogAttr())
	return agg, nil
}

// Command applies cmd to the latest version of its aggregate.
//
// A rejected command is recorded with its error and the error is returned as is.
// A command without events is not recorded. Otherwise the command, its events,
// snapshots and bookkeeping are written before listeners are called.
func (s *Store[A, C, E, I]) Command(ctx context.Context, cmd C) (out A, err error) {
	timer := s.metrics.CommandDuration()
	defer timer.ObserveDuration()

	h := cmd.Handle()

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.getInfo(ctx, h)
	if err != nil {
		if errors.Is(err, ErrInfoMissing) {
			if ok, _ := s.kv.HasScope(ctx, string(h)); !ok {
				return out, fmt.Errorf("%w: '%s'", ErrUnknownAggregate, h)
			}
		}
		return out, err
	}
	now := s.now()
	info.LastUpdate = now
	info.LastCommand++

	latest, err := s.latest(ctx, h)
	if err != nil {
		return out, err
	}
	before := latest.Version()

	log := s.log.With(slog.Group("agg", h.SlogAttr(), slog.Uint64("version", before)))

	if expected, ok := cmd.Version(); ok && expected != before {
		log.Error("version conflict", slog.Uint64("expected", expected))
		s.metrics.CommandProcessed(OutcomeConflict)
		return out, fmt.Errorf("%w: '%s' expected version %d, found %d", ErrConcurrentModification, h, expected, before)
	}

	stored := newStoredCommand(log, cmd, before, info.LastCommand, now)

	events, cmdErr := latest.ProcessCommand(cmd)
	if cmdErr != nil {
		if err := s.storeCommand(ctx, stored.withError(cmdErr)); err != nil {
			return out, err
		}
		if err := s.saveInfo(ctx, h, info); err != nil {
			return out, err
		}
		log.Debug("command rejected", slog.String("label", cmd.Label()), slog.Any("error", cmdErr))
		s.metrics.CommandProcessed(OutcomeError)
		return out, cmdErr
	}

	if len(events) == 0 {
		s.metrics.CommandProcessed(OutcomeNoop)
		return latest, nil
	}

	versions := make([]uint64, len(events))
	for i, evt := range events {
		if evt.Version() != before+uint64(i) || evt.Handle() != h {
			log.Error("command produced wrong event",
				slog.String("event_handle", string(evt.Handle())),
				slog.Uint64("event_version", evt.Version()),
			)
			return out, fmt.Errorf("%w: '%s'", ErrWrongEventForAggregate, h)
		}
		versions[i] = evt.Version()
	}

	if err := s.storeCommand(ctx, stored.withEvents(versions)); err != nil {
		log.Error("cannot save state", slog.Any("error", err))
		log.Error("exiting, verify that the store can be written to")
		s.exit(1)
		panic(fmt.Sprintf("es: exit hook returned after failing to store command for '%s'", h))
	}

	agg := latest.Clone()
	for _, evt := range events {
		if err := kv.PutNew(ctx, s.kv, eventKey(h, evt.Version()), evt); err != nil {
			return out, storeFailure("store event", err)
		}
		agg.Apply(evt)
		if agg.Version()%snapshotFreq == 0 {
			info.SnapshotVersion = agg.Version()
			if err := storeSnapshot(ctx, s.Journal, h, agg); err != nil {
				return out, err
			}
		}
	}

	info.LastEvent += uint64(len(events))
	if err := s.saveInfo(ctx, h, info); err != nil {
		return out, err
	}
	s.cache.Put(h, agg)

	s.metrics.EventsAppended(len(events))
	s.metrics.CommandProcessed(OutcomeOK)
	log.Debug("command applied",
		slog.String("label", cmd.Label()),
		slog.Uint64("new_version", agg.Version()),
	)

	for _, evt := range events {
		for _, l := range s.listeners {
			l.Listen(agg, evt)
		}
	}
	return agg, nil
}

// GetLatest returns the latest version of h. The result is shared and must not
// be modified.
func (s *Store[A, C, E, I]) GetLatest(ctx context.Context, h Handle) (agg A, err error) {
	if err = h.Validate(); err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest(ctx, h)
}

func (s *Store[A, C, E, I]) latest(ctx context.Context, h Handle) (A, error) {
	if agg, ok := s.cache.Get(h); ok {
		s.metrics.CacheHit()
		newer, err := s.kv.Has(ctx, eventKey(h, agg.Version()))
		if err != nil {
			return agg, storeFailure("check updates", err)
		}
		if !newer {
			return agg, nil
		}

		s.log.Warn("cached aggregate is behind the store", h.SlogAttr())
		next := agg.Clone()
		if err := s.replay(ctx, h, next, nil); err != nil {
			return agg, err
		}
		s.cache.Put(h, next)
		return next, nil
	}

	s.metrics.CacheMiss()
	agg, _, err := s.loads.Do(string(h), func() (A, error) {
		return s.reconstruct(ctx, h, nil)
	})
	if err != nil {
		return agg, err
	}
	s.cache.Put(h, agg)
	return agg, nil
}

// GetEvent loads the event of h at version. A corrupt event is moved to the
// corrupt archive and reported as ErrEventCorrupt.
func (s *Store[A, C, E, I]) GetEvent(ctx context.Context, h Handle, version uint64) (E, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupEvent(ctx, h, version)
}

func (s *Store[A, C, E, I]) lookupEvent(ctx context.Context, h Handle, version uint64) (E, bool, error) {
	key := eventKey(h, version)
	evt, ok, err := kv.Lookup[E](ctx, s.kv, key)
	switch {
	case err == nil:
		return evt, ok, nil
	case kv.IsCorrupt(err):
		s.log.Error("corrupt event, archiving", slog.String("key", key.String()), slog.Any("error", err))
		if err := s.archive(ctx, kv.ArchiveKindCorrupt, key); err != nil {
			return evt, false, err
		}
		return evt, false, &EventRefError{Handle: h, Version: version}
	default:
		return evt, false, storeFailure("get event", err)
	}
}

// Warm loads every aggregate into the cache. It fails with a *WarmupError for
// the first aggregate that cannot be rebuilt, see Recover.
func (s *Store[A, C, E, I]) Warm(ctx context.Context) error {
	handles, err := s.List(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			if _, err := s.GetLatest(gctx, h); err != nil {
				return &WarmupError{Handle: h, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("warm up failed", slog.Any("error", err))
		return err
	}

	s.log.Info("warmed up", slog.Int("aggregates", len(handles)))
	return nil
}
