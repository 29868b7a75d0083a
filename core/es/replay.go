package es

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codewandler/castore/ports/kv"
)

// reconstruct builds h from the newest usable starting point and replays events
// up to limit, or up to the last known event if limit is nil.
func (s *Store[A, C, E, I]) reconstruct(ctx context.Context, h Handle, limit *uint64) (agg A, err error) {
	log := s.log.With(h.SlogAttr())

	agg, ok, err := s.loadSnapshot(ctx, snapshotKey(h), limit)
	if err != nil {
		return
	}
	if !ok {
		log.Warn("no usable snapshot, trying backup snapshot")
		if agg, ok, err = s.loadSnapshot(ctx, backupSnapshotKey(h), limit); err != nil {
			return
		}
	}
	if !ok {
		log.Warn("no usable snapshots, rebuilding from init event")
		if agg, err = s.loadInit(ctx, h); err != nil {
			return
		}
	}

	if err = s.replay(ctx, h, agg, limit); err != nil {
		return
	}
	return agg, nil
}

// loadSnapshot accepts the snapshot at key unless it is corrupt or newer than
// limit, in which case it is archived.
func (s *Store[A, C, E, I]) loadSnapshot(ctx context.Context, key kv.Key, limit *uint64) (agg A, ok bool, err error) {
	agg, ok, err = kv.Lookup[A](ctx, s.kv, key)
	switch {
	case kv.IsCorrupt(err):
		s.log.Error("corrupt snapshot, archiving", slog.String("key", key.String()), slog.Any("error", err))
		return agg, false, s.archive(ctx, kv.ArchiveKindCorrupt, key)
	case err != nil:
		return agg, false, storeFailure("get snapshot", err)
	case !ok:
		return agg, false, nil
	}

	// applying event limit yields version limit+1, so a snapshot at exactly that
	// version is still usable and is kept
	if limit != nil && agg.Version() > *limit+1 {
		s.log.Debug("snapshot after limit, archiving",
			slog.String("key", key.String()),
			slog.Uint64("version", agg.Version()),
			slog.Uint64("limit", *limit),
		)
		return agg, false, s.archive(ctx, kv.ArchiveKindSurplus, key)
	}
	return agg, true, nil
}

func (s *Store[A, C, E, I]) loadInit(ctx context.Context, h Handle) (agg A, err error) {
	init, ok, err := kv.Lookup[I](ctx, s.kv, eventKey(h, 0))
	switch {
	case kv.IsCorrupt(err):
		return agg, &EventRefError{Handle: h, Version: 0}
	case err != nil:
		return agg, storeFailure("get init event", err)
	case !ok:
		return agg, fmt.Errorf("%w: '%s'", ErrUnknownAggregate, h)
	}
	if agg, err = s.init(init); err != nil {
		return agg, fmt.Errorf("%w for '%s': %w", ErrInitFailed, h, err)
	}
	return agg, nil
}

// replay applies the events following agg's version in place, up to limit.
// agg must be owned by the caller.
func (s *Store[A, C, E, I]) replay(ctx context.Context, h Handle, agg A, limit *uint64) error {
	target, err := s.replayLimit(ctx, h, limit)
	if err != nil {
		return err
	}

	// an event carries the version of the aggregate it applies to, so delta-10 yields version 11
	start := agg.Version()
	if start == target+1 {
		return nil
	}
	if start > target+1 {
		return &ReplayError{Handle: h, Limit: target, FailedAt: start}
	}

	for v := start; v <= target; v++ {
		evt, ok, err := s.lookupEvent(ctx, h, v)
		if err != nil {
			return err
		}
		if !ok || evt.Version() != v || agg.Version() != v {
			s.log.Error("cannot apply event in replay", h.SlogAttr(), slog.Uint64("version", v), slog.Bool("found", ok))
			return &ReplayError{Handle: h, Limit: target, FailedAt: v}
		}
		agg.Apply(evt)
	}

	s.metrics.EventsReplayed(int(target + 1 - start))
	return nil
}

// replayLimit is limit if given, else the last event recorded in the
// bookkeeping, else derived from the number of stored events.
func (s *Store[A, C, E, I]) replayLimit(ctx context.Context, h Handle, limit *uint64) (uint64, error) {
	if limit != nil {
		return *limit, nil
	}
	if info, err := s.getInfo(ctx, h); err == nil {
		return info.LastEvent, nil
	}
	versions, err := s.eventVersions(ctx, h)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("%w for '%s'", ErrInfoMissing, h)
	}
	return uint64(len(versions) - 1), nil
}
