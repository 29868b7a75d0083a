package es

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codewandler/castore/ports/kv"
)

// Recover verifies every command and the events it references for all
// aggregates. From the first command that fails to load, commands are moved to
// the surplus archive, as are all events after the last good one. Each
// aggregate is then rebuilt up to its last good event and a fresh snapshot and
// bookkeeping record are written.
//
// A handle that cannot be rebuilt does not stop the others; its failure is
// returned as a *RecoverError joined with the rest.
func (s *Store[A, C, E, I]) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles, err := s.list(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, h := range handles {
		if err := s.recoverHandle(ctx, h); err != nil {
			s.log.Error("could not recover, use backup", h.SlogAttr(), slog.Any("error", err))
			errs = append(errs, &RecoverError{Handle: h, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *Store[A, C, E, I]) recoverHandle(ctx context.Context, h Handle) error {
	log := s.log.With(h.SlogAttr())
	log.Info("recovering state")

	keys, err := s.commandKeys(ctx, h, HistoryCriteria{})
	if err != nil {
		return err
	}

	var (
		lastGoodCmd uint64
		lastGoodEvt uint64
		lastUpdate  = s.now()
		clean       = true
	)
	for _, key := range keys {
		if clean {
			cmd, err := s.getCommand(ctx, h, key)
			switch {
			case errors.Is(err, ErrCommandCorrupt):
				// getCommand already moved it to the corrupt archive
				clean = false
				continue
			case errors.Is(err, ErrStoreFailure):
				return err
			case err != nil:
				clean = false
			default:
				clean, err = s.eventsPresent(ctx, cmd, &lastGoodEvt)
				if err != nil {
					return err
				}
				if clean {
					lastGoodCmd = cmd.Sequence
					lastUpdate = cmd.Time
				}
			}
		}
		if !clean {
			if err := s.archive(ctx, kv.ArchiveKindSurplus, commandKey(h, key)); err != nil {
				return err
			}
		}
	}

	if err := s.archiveSurplusEvents(ctx, h, lastGoodEvt+1); err != nil {
		return err
	}
	if !clean {
		log.Warn("state can only be recovered partially, check the corrupt and surplus archives",
			slog.Uint64("version", lastGoodEvt))
	}

	limit := lastGoodEvt
	agg, err := s.reconstruct(ctx, h, &limit)
	if err != nil {
		return err
	}
	// rewriting an up to date snapshot would replace the older backup with a copy of it
	current, ok, err := kv.Lookup[A](ctx, s.kv, snapshotKey(h))
	if err != nil && !kv.IsCorrupt(err) {
		return storeFailure("get snapshot", err)
	}
	if !ok || current.Version() != agg.Version() {
		if err := storeSnapshot(ctx, s.Journal, h, agg); err != nil {
			return err
		}
	}
	info := StoredValueInfo{
		SnapshotVersion: agg.Version(),
		LastEvent:       lastGoodEvt,
		LastCommand:     lastGoodCmd,
		LastUpdate:      lastUpdate,
	}
	if err := s.saveInfo(ctx, h, info); err != nil {
		return err
	}
	s.cache.Put(h, agg)

	s.metrics.HandleRecovered(clean)
	log.Info("recovered", slog.Uint64("version", agg.Version()), slog.Bool("clean", clean))
	return nil
}

// eventsPresent reports whether every event of cmd loads, advancing lastGood
// for each one that does. Only a store failure is returned as an error.
func (s *Store[A, C, E, I]) eventsPresent(ctx context.Context, cmd StoredCommand, lastGood *uint64) (bool, error) {
	for _, v := range cmd.Effect.Events {
		_, ok, err := s.lookupEvent(ctx, cmd.Handle, v)
		if errors.Is(err, ErrStoreFailure) {
			return false, err
		}
		if err != nil || !ok {
			return false, nil
		}
		*lastGood = v
	}
	return true, nil
}
