package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DiskStore keeps one directory per scope below root and one file per key. Global keys
// live directly in root. Archived keys go to root/.<kind>/<scope>/<name>.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) Root() string { return d.root }

func (d *DiskStore) path(key Key) string {
	if key.Scope == "" {
		return filepath.Join(d.root, key.Name)
	}
	return filepath.Join(d.root, key.Scope, key.Name)
}

func (d *DiskStore) archivePath(kind ArchiveKind, key Key) string {
	return filepath.Join(d.root, "."+string(kind), key.Scope, key.Name)
}

func (d *DiskStore) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *DiskStore) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	tmp, err := d.writeTemp(key, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, d.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (d *DiskStore) PutNew(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	tmp, err := d.writeTemp(key, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// a hard link fails atomically if the target exists
	if err := os.Link(tmp, d.path(key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (d *DiskStore) writeTemp(key Key, data []byte) (string, error) {
	dir := filepath.Dir(d.path(key))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create scope directory %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, "."+key.Name+".tmp-"+gonanoid.Must(8))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func (d *DiskStore) Has(_ context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	_, err := os.Stat(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (d *DiskStore) HasScope(ctx context.Context, scope string) (bool, error) {
	if scope == "" || strings.HasPrefix(scope, ".") {
		return false, nil
	}
	keys, err := d.Keys(ctx, scope, "")
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

func (d *DiskStore) Move(_ context.Context, src, dst Key) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	return d.rename(d.path(src), d.path(dst))
}

func (d *DiskStore) rename(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return err
	}
	err := os.Rename(from, to)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (d *DiskStore) Drop(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	err := os.Remove(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DiskStore) Keys(_ context.Context, scope string, prefix string) ([]Key, error) {
	dir := d.root
	if scope != "" {
		dir = filepath.Join(d.root, scope)
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Key{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Key, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, Key{Scope: scope, Name: name})
	}
	return out, nil
}

// Scopes skips directories left without keys, e.g. after archiving or a failed first write.
func (d *DiskStore) Scopes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ok, err := d.HasScope(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (d *DiskStore) Archive(_ context.Context, key Key) error {
	return d.archive(ArchiveKindArchived, key)
}

func (d *DiskStore) ArchiveSurplus(_ context.Context, key Key) error {
	return d.archive(ArchiveKindSurplus, key)
}

func (d *DiskStore) ArchiveCorrupt(_ context.Context, key Key) error {
	return d.archive(ArchiveKindCorrupt, key)
}

func (d *DiskStore) archive(kind ArchiveKind, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	name := ArchiveName(key.Name, func(n string) bool {
		_, err := os.Stat(d.archivePath(kind, key.WithName(n)))
		return err == nil
	})
	return d.rename(d.path(key), d.archivePath(kind, key.WithName(name)))
}

// Archived lists the keys in the given archive namespace.
func (d *DiskStore) Archived(kind ArchiveKind) ([]Key, error) {
	base := filepath.Join(d.root, "."+string(kind))
	out := make([]Key, 0)
	err := filepath.WalkDir(base, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		scope, name := filepath.Split(rel)
		out = append(out, Key{Scope: strings.TrimSuffix(scope, string(filepath.Separator)), Name: name})
		return nil
	})
	return out, err
}

var _ Store = (*DiskStore)(nil)
