package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/castore/internal/codec"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrExists     = errors.New("key already exists")
	ErrInvalidKey = errors.New("invalid key")
)

// Key addresses a value. Keys with an empty Scope are global.
type Key struct {
	Scope string
	Name  string
}

func Simple(name string) Key           { return Key{Name: name} }
func Scoped(scope, name string) Key    { return Key{Scope: scope, Name: name} }
func (k Key) IsGlobal() bool           { return k.Scope == "" }
func (k Key) WithName(name string) Key { return Key{Scope: k.Scope, Name: name} }

func (k Key) String() string {
	if k.Scope == "" {
		return k.Name
	}
	return k.Scope + "/" + k.Name
}

// Validate rejects keys that no backend can address safely.
func (k Key) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidKey)
	}
	for _, part := range []string{k.Scope, k.Name} {
		if strings.ContainsAny(part, "/\\ \t\n") || strings.HasPrefix(part, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
		}
	}
	return nil
}

// ArchiveKind names the namespace a key is moved to when it leaves the active store.
type ArchiveKind string

const (
	ArchiveKindArchived ArchiveKind = "archived"
	ArchiveKindSurplus  ArchiveKind = "surplus"
	ArchiveKindCorrupt  ArchiveKind = "corrupt"
)

var ArchiveKinds = []ArchiveKind{ArchiveKindArchived, ArchiveKindSurplus, ArchiveKindCorrupt}

// Store is scoped byte storage. Archived keys are preserved by the backend but are
// never visible through Get, Has, Keys or Scopes again.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	// Put overwrites any existing value.
	Put(ctx context.Context, key Key, data []byte) error
	// PutNew fails with ErrExists if the key is present.
	PutNew(ctx context.Context, key Key, data []byte) error
	Has(ctx context.Context, key Key) (bool, error)
	HasScope(ctx context.Context, scope string) (bool, error)
	// Move renames src to dst, replacing dst if it exists.
	Move(ctx context.Context, src, dst Key) error
	// Drop deletes a key; dropping an absent key is not an error.
	Drop(ctx context.Context, key Key) error
	// Keys lists the keys in scope whose name starts with prefix, ordered by name.
	Keys(ctx context.Context, scope string, prefix string) ([]Key, error)
	// Scopes lists all non-empty scopes, ordered by name.
	Scopes(ctx context.Context) ([]string, error)

	Archive(ctx context.Context, key Key) error
	ArchiveSurplus(ctx context.Context, key Key) error
	ArchiveCorrupt(ctx context.Context, key Key) error
}

// DecodeError reports a value that exists but cannot be decoded.
type DecodeError struct {
	Key Key
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("cannot decode %s: %s", e.Key, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a decode failure of a stored value.
func IsCorrupt(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Encoded is implemented by stores that choose their value encoding.
type Encoded interface {
	Codec() codec.Codec
}

func codecOf(store Store) codec.Codec {
	if e, ok := store.(Encoded); ok && e.Codec() != nil {
		return e.Codec()
	}
	return codec.Default()
}

func Put[T any](ctx context.Context, store Store, key Key, v T) error {
	data, err := codecOf(store).Marshal(v)
	if err != nil {
		return err
	}
	return store.Put(ctx, key, data)
}

func PutNew[T any](ctx context.Context, store Store, key Key, v T) error {
	data, err := codecOf(store).Marshal(v)
	if err != nil {
		return err
	}
	return store.PutNew(ctx, key, data)
}

// Get loads and decodes key. Absent keys yield ErrNotFound, undecodable ones a *DecodeError.
func Get[T any](ctx context.Context, store Store, key Key) (out T, err error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return
	}
	if err = codecOf(store).Unmarshal(data, &out); err != nil {
		return out, &DecodeError{Key: key, Err: err}
	}
	return
}

// Lookup is Get with absence reported through ok instead of ErrNotFound.
func Lookup[T any](ctx context.Context, store Store, key Key) (out T, ok bool, err error) {
	out, err = Get[T](ctx, store, key)
	if errors.Is(err, ErrNotFound) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	return out, true, nil
}

// ArchiveTo dispatches to the archive operation for kind.
func ArchiveTo(ctx context.Context, store Store, kind ArchiveKind, key Key) error {
	switch kind {
	case ArchiveKindArchived:
		return store.Archive(ctx, key)
	case ArchiveKindSurplus:
		return store.ArchiveSurplus(ctx, key)
	case ArchiveKindCorrupt:
		return store.ArchiveCorrupt(ctx, key)
	}
	return fmt.Errorf("unknown archive kind %q", kind)
}

// ArchiveName returns name, or name with a unique suffix if taken reports it is already used
// in the archive namespace.
func ArchiveName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for {
		candidate := name + "." + gonanoid.Must(8)
		if !taken(candidate) {
			return candidate
		}
	}
}
