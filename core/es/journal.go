package es

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/codewandler/castore/core/ds"
	"github.com/codewandler/castore/ports/kv"
)

// Journal is the part of the store that does not need to know the aggregate
// type: bookkeeping, stored commands, history, archival and the key store
// version. Operator tooling can open a Journal directly; a [Store] embeds one
// and shares its lock.
type Journal struct {
	kv         kv.Store
	log        *slog.Logger
	metrics    Metrics
	now        func() time.Time
	archivable *ds.StringSet

	mu sync.RWMutex
}

// OpenJournal opens the journal on store, writing the current key store version
// if store is empty. Options that only concern aggregates are ignored.
func OpenJournal(ctx context.Context, store kv.Store, opts ...Option) (*Journal, error) {
	return openJournal(ctx, store, newStoreOptions(opts))
}

func openJournal(ctx context.Context, store kv.Store, options storeOptions) (*Journal, error) {
	if store == nil {
		return nil, ErrNotInitialised
	}

	j := &Journal{
		kv:         store,
		log:        options.log,
		metrics:    options.metrics,
		now:        options.now,
		archivable: ds.NewStringSet(options.archivable...),
	}

	version, err := j.ensureVersion(ctx)
	if err != nil {
		return nil, err
	}
	if options.requireCurrent && version.NeedsMigration() {
		return nil, fmt.Errorf("%w: found %s, need %s", ErrMigrationRequired, version, CurrentKeyStoreVersion)
	}

	j.log.Debug("journal opened", slog.String("key_store_version", version.String()))
	return j, nil
}

// ensureVersion returns the stored version, stamping the current one on an empty store.
func (j *Journal) ensureVersion(ctx context.Context) (KeyStoreVersion, error) {
	v, ok, err := j.lookupVersion(ctx)
	if err != nil || ok {
		return v, err
	}

	scopes, err := j.kv.Scopes(ctx)
	if err != nil {
		return v, storeFailure("list scopes", err)
	}
	if len(scopes) > 0 {
		return Pre0_6, nil
	}
	if err := j.setVersion(ctx, CurrentKeyStoreVersion); err != nil {
		return v, err
	}
	return CurrentKeyStoreVersion, nil
}

func (j *Journal) lookupVersion(ctx context.Context) (KeyStoreVersion, bool, error) {
	v, ok, err := kv.Lookup[KeyStoreVersion](ctx, j.kv, versionKey())
	if err != nil {
		return Pre0_6, false, storeFailure("get version", err)
	}
	return v, ok, nil
}

// GetVersion returns the stored key store version, Pre0_6 if none was ever written.
func (j *Journal) GetVersion(ctx context.Context) (KeyStoreVersion, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	v, ok, err := j.lookupVersion(ctx)
	if err != nil || !ok {
		return Pre0_6, err
	}
	return v, nil
}

func (j *Journal) SetVersion(ctx context.Context, v KeyStoreVersion) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.setVersion(ctx, v)
}

func (j *Journal) setVersion(ctx context.Context, v KeyStoreVersion) error {
	if err := kv.Put(ctx, j.kv, versionKey(), v); err != nil {
		return storeFailure("set version", err)
	}
	return nil
}

// List returns all handles in the store. Scopes that are not valid handles are skipped.
func (j *Journal) List(ctx context.Context) ([]Handle, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.list(ctx)
}

func (j *Journal) list(ctx context.Context) ([]Handle, error) {
	scopes, err := j.kv.Scopes(ctx)
	if err != nil {
		return nil, storeFailure("list scopes", err)
	}
	out := make([]Handle, 0, len(scopes))
	for _, scope := range scopes {
		h, err := ParseHandle(scope)
		if err != nil {
			j.log.Debug("skipping scope", slog.String("scope", scope), slog.Any("error", err))
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (j *Journal) Has(ctx context.Context, h Handle) (bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	ok, err := j.kv.HasScope(ctx, string(h))
	if err != nil {
		return false, storeFailure("has scope", err)
	}
	return ok, nil
}

// Info returns the bookkeeping record of h.
func (j *Journal) Info(ctx context.Context, h Handle) (StoredValueInfo, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.getInfo(ctx, h)
}

func (j *Journal) getInfo(ctx context.Context, h Handle) (StoredValueInfo, error) {
	info, err := kv.Get[StoredValueInfo](ctx, j.kv, infoKey(h))
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, kv.ErrNotFound):
		return info, fmt.Errorf("%w for '%s'", ErrInfoMissing, h)
	case kv.IsCorrupt(err):
		return info, fmt.Errorf("%w for '%s': %w", ErrInfoCorrupt, h, err)
	default:
		return info, storeFailure("get info", err)
	}
}

func (j *Journal) saveInfo(ctx context.Context, h Handle, info StoredValueInfo) error {
	if err := kv.Put(ctx, j.kv, infoKey(h), info); err != nil {
		return storeFailure("save info", err)
	}
	return nil
}

// GetCommand loads a stored command. A command that cannot be decoded is moved
// to the corrupt archive and reported as ErrCommandCorrupt.
func (j *Journal) GetCommand(ctx context.Context, h Handle, key CommandKey) (StoredCommand, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.getCommand(ctx, h, key)
}

// GetCommandBySequence finds the stored command of h with the given sequence.
func (j *Journal) GetCommandBySequence(ctx context.Context, h Handle, sequence uint64) (StoredCommand, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	keys, err := j.commandKeys(ctx, h, HistoryCriteria{})
	if err != nil {
		return StoredCommand{}, err
	}
	i, found := slices.BinarySearchFunc(keys, sequence, func(k CommandKey, seq uint64) int {
		return cmp.Compare(k.Sequence, seq)
	})
	if !found {
		return StoredCommand{}, fmt.Errorf("%w: '%s' has no command with sequence %d", ErrUnknownCommand, h, sequence)
	}
	return j.getCommand(ctx, h, keys[i])
}

func (j *Journal) getCommand(ctx context.Context, h Handle, key CommandKey) (StoredCommand, error) {
	k := commandKey(h, key)
	cmd, err := kv.Get[StoredCommand](ctx, j.kv, k)
	switch {
	case err == nil:
		return cmd, nil
	case errors.Is(err, kv.ErrNotFound):
		return cmd, &CommandRefError{Kind: ErrCommandNotFound, Handle: h, Key: key}
	case kv.IsCorrupt(err):
		j.log.Error("corrupt command, archiving", slog.String("key", k.String()), slog.Any("error", err))
		if err := j.archive(ctx, kv.ArchiveKindCorrupt, k); err != nil {
			return cmd, err
		}
		return cmd, &CommandRefError{Kind: ErrCommandCorrupt, Handle: h, Key: key}
	default:
		return cmd, storeFailure("get command", err)
	}
}

func (j *Journal) storeCommand(ctx context.Context, cmd StoredCommand) error {
	if err := kv.PutNew(ctx, j.kv, commandKey(cmd.Handle, cmd.Key()), cmd); err != nil {
		return storeFailure("store command", err)
	}
	return nil
}

// commandKeys lists the command keys of h matching crit in ascending sequence.
// Malformed command keys are logged and skipped.
func (j *Journal) commandKeys(ctx context.Context, h Handle, crit HistoryCriteria) ([]CommandKey, error) {
	keys, err := j.kv.Keys(ctx, string(h), commandKeyPrefix+commandKeySep)
	if err != nil {
		return nil, storeFailure("list commands", err)
	}
	out := make([]CommandKey, 0, len(keys))
	for _, key := range keys {
		ck, err := ParseCommandKey(key.Name)
		if err != nil {
			j.log.Warn("strange command-like key in store", slog.String("key", key.String()))
			continue
		}
		if ck.Matches(crit) {
			out = append(out, ck)
		}
	}
	slices.SortFunc(out, func(a, b CommandKey) int { return cmp.Compare(a.Sequence, b.Sequence) })
	return out, nil
}

// eventVersions lists the versions of all stored events of h, ascending.
func (j *Journal) eventVersions(ctx context.Context, h Handle) ([]uint64, error) {
	keys, err := j.kv.Keys(ctx, string(h), eventPrefix)
	if err != nil {
		return nil, storeFailure("list events", err)
	}
	out := make([]uint64, 0, len(keys))
	for _, key := range keys {
		if v, ok := parseEventVersion(key.Name); ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (j *Journal) archive(ctx context.Context, kind kv.ArchiveKind, key kv.Key) error {
	if err := kv.ArchiveTo(ctx, j.kv, kind, key); err != nil {
		return storeFailure("archive "+string(kind), err)
	}
	j.metrics.KeyArchived(kind)
	j.log.Info("archived", slog.String("key", key.String()), slog.String("kind", string(kind)))
	return nil
}

func (j *Journal) archiveSurplusEvents(ctx context.Context, h Handle, from uint64) error {
	versions, err := j.eventVersions(ctx, h)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v < from {
			continue
		}
		if err := j.archive(ctx, kv.ArchiveKindSurplus, eventKey(h, v)); err != nil {
			return err
		}
	}
	return nil
}

// storeSnapshot writes agg as the current snapshot of h, keeping the previous
// one as backup.
func storeSnapshot[A any](ctx context.Context, j *Journal, h Handle, agg A) error {
	if err := kv.Put(ctx, j.kv, newSnapshotKey(h), agg); err != nil {
		return storeFailure("store snapshot", err)
	}
	if err := j.rotateSnapshot(ctx, h); err != nil {
		return err
	}
	j.metrics.SnapshotSaved()
	return nil
}

func (j *Journal) rotateSnapshot(ctx context.Context, h Handle) error {
	current, backup := snapshotKey(h), backupSnapshotKey(h)

	if ok, err := j.kv.Has(ctx, backup); err != nil {
		return storeFailure("rotate snapshot", err)
	} else if ok {
		if err := j.kv.Drop(ctx, backup); err != nil {
			return storeFailure("rotate snapshot", err)
		}
	}
	if ok, err := j.kv.Has(ctx, current); err != nil {
		return storeFailure("rotate snapshot", err)
	} else if ok {
		if err := j.kv.Move(ctx, current, backup); err != nil {
			return storeFailure("rotate snapshot", err)
		}
	}
	if err := j.kv.Move(ctx, newSnapshotKey(h), current); err != nil {
		return storeFailure("rotate snapshot", err)
	}
	return nil
}
