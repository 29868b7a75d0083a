package es

import (
	"context"
	"log/slog"
	"time"

	"github.com/codewandler/castore/ports/kv"
)

// ArchiveOldCommands moves commands of h older than days, with an archivable
// label and fully covered by the current snapshot, into the archive together
// with their events.
func (j *Journal) ArchiveOldCommands(ctx context.Context, h Handle, days int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.archivable.IsEmpty() {
		return nil
	}

	info, err := j.getInfo(ctx, h)
	if err != nil {
		return &ArchiveError{Handle: h, Err: err}
	}

	crit := HistoryCriteria{Rows: -1, Includes: j.archivable}
	crit.SetBefore(j.now().Add(-time.Duration(days) * 24 * time.Hour).Unix())

	keys, err := j.commandKeys(ctx, h, crit)
	if err != nil {
		return &ArchiveError{Handle: h, Err: err}
	}

	log := j.log.With(h.SlogAttr())
	archived := 0
	for _, key := range keys {
		cmd, err := j.getCommand(ctx, h, key)
		if err != nil {
			return &ArchiveError{Handle: h, Err: err}
		}
		if cmd.ResultingVersion() >= info.SnapshotVersion {
			continue
		}

		log.Debug("archiving command", slog.String("command", key.String()))
		if err := j.archive(ctx, kv.ArchiveKindArchived, commandKey(h, key)); err != nil {
			return &ArchiveError{Handle: h, Err: err}
		}
		for _, v := range cmd.Effect.Events {
			if err := j.archive(ctx, kv.ArchiveKindArchived, eventKey(h, v)); err != nil {
				return &ArchiveError{Handle: h, Err: err}
			}
		}
		archived++
	}

	log.Info("archived old commands", slog.Int("commands", archived), slog.Int("days", days))
	return nil
}
