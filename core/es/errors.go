package es

import (
	"errors"
	"fmt"
)

var (
	ErrStoreFailure           = errors.New("key store failure")
	ErrNotInitialised         = errors.New("aggregate store is not initialised")
	ErrMigrationRequired      = errors.New("key store needs migration")
	ErrInvalidHandle          = errors.New("invalid handle")
	ErrUnknownAggregate       = errors.New("unknown aggregate")
	ErrAggregateExists        = errors.New("aggregate already exists")
	ErrInitFailed             = errors.New("init event cannot be applied")
	ErrReplay                 = errors.New("cannot reconstruct aggregate")
	ErrInfoMissing            = errors.New("missing stored value info")
	ErrInfoCorrupt            = errors.New("corrupt stored value info")
	ErrWrongEventForAggregate = errors.New("event not applicable to aggregate, handle or version is off")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrUnknownCommand         = errors.New("unknown command")
	ErrCommandOffsetTooLarge  = errors.New("offset exceeds total")
	ErrWarmupFailed           = errors.New("could not rebuild state")
	ErrCouldNotRecover        = errors.New("could not recover state")
	ErrCouldNotArchive        = errors.New("could not archive commands and events")
	ErrCommandCorrupt         = errors.New("stored command is corrupt")
	ErrCommandNotFound        = errors.New("stored command not found")
	ErrEventCorrupt           = errors.New("stored event is corrupt")
)

// ReplayError reports where an aggregate diverged from its events while
// replaying towards Limit.
type ReplayError struct {
	Handle   Handle
	Limit    uint64
	FailedAt uint64
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("cannot reconstruct '%s' to version '%d', failed at version %d", e.Handle, e.Limit, e.FailedAt)
}

func (e *ReplayError) Is(target error) bool { return target == ErrReplay }

// CommandRefError is returned for a command that cannot be loaded.
// Kind is ErrCommandNotFound or ErrCommandCorrupt.
type CommandRefError struct {
	Kind   error
	Handle Handle
	Key    CommandKey
}

func (e *CommandRefError) Error() string {
	return fmt.Sprintf("%s: '%s' for '%s'", e.Kind, e.Key, e.Handle)
}

func (e *CommandRefError) Unwrap() error { return e.Kind }

// EventRefError is returned for an event that exists but cannot be decoded.
type EventRefError struct {
	Handle  Handle
	Version uint64
}

func (e *EventRefError) Error() string {
	return fmt.Sprintf("%s: '%d' for '%s'", ErrEventCorrupt, e.Version, e.Handle)
}

func (e *EventRefError) Unwrap() error { return ErrEventCorrupt }

// WarmupError names the first handle that failed to load during Warm.
type WarmupError struct {
	Handle Handle
	Err    error
}

func (e *WarmupError) Error() string {
	return fmt.Sprintf("%s for '%s': %s, run recover", ErrWarmupFailed, e.Handle, e.Err)
}

func (e *WarmupError) Unwrap() []error { return []error{ErrWarmupFailed, e.Err} }

// RecoverError lists the handles Recover could not rebuild.
type RecoverError struct {
	Handle Handle
	Err    error
}

func (e *RecoverError) Error() string {
	return fmt.Sprintf("%s for '%s': %s", ErrCouldNotRecover, e.Handle, e.Err)
}

func (e *RecoverError) Unwrap() []error { return []error{ErrCouldNotRecover, e.Err} }

type ArchiveError struct {
	Handle Handle
	Err    error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s for '%s': %s", ErrCouldNotArchive, e.Handle, e.Err)
}

func (e *ArchiveError) Unwrap() []error { return []error{ErrCouldNotArchive, e.Err} }

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}
