package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/codewandler/castore/internal/codec"
	"github.com/codewandler/castore/ports/kv"
)

const (
	defaultBucket    = "castore"
	defaultOpTimeout = 5 * time.Second

	// subject layout inside the bucket
	scopedPrefix   = "s."
	globalPrefix   = "g."
	archivedPrefix = "a."
	globalScope    = "_"
)

type KvConfig struct {
	Connect Connector
	Log     *slog.Logger
	Bucket  string
	// Replicas is passed to the bucket config, 0 means 1.
	Replicas int
	// Codec encodes values, nil means compact JSON.
	Codec codec.Codec
	// OpTimeout bounds each JetStream call made on behalf of a single store operation.
	OpTimeout time.Duration
}

// KvStore implements kv.Store on a JetStream key/value bucket. Scoped keys are stored as
// s.<scope>.<name>, global keys as g.<name> and archived keys as a.<kind>.<scope>.<name>.
//
// Move and Archive are a put followed by a delete; JetStream has no multi-key transaction.
type KvStore struct {
	log       *slog.Logger
	kv        jetstream.KeyValue
	close     closeFunc
	opTimeout time.Duration
	codec     codec.Codec
}

func NewKvStore(ctx context.Context, cfg KvConfig) (*KvStore, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	doConnect := cfg.Connect
	if doConnect == nil {
		doConnect = ConnectDefault()
	}

	nc, closeConn, err := doConnect()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		closeConn()
		return nil, err
	}

	bucketKV, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "castore aggregate store",
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		closeConn()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	log.Debug("kv bucket ready", slog.String("bucket", bucket))

	c := cfg.Codec
	if c == nil {
		c = codec.CompactJSONCodec{}
	}
	return &KvStore{
		log:       log.With(slog.String("bucket", bucket)),
		kv:        bucketKV,
		close:     closeConn,
		opTimeout: opTimeout,
		codec:     c,
	}, nil
}

func (k *KvStore) Close() { k.close() }

func (k *KvStore) Codec() codec.Codec { return k.codec }

func subjectFor(key kv.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	if strings.Contains(key.Scope, ".") || key.Scope == globalScope {
		return "", fmt.Errorf("%w: scope %q", kv.ErrInvalidKey, key.Scope)
	}
	if key.Scope == "" {
		return globalPrefix + key.Name, nil
	}
	return scopedPrefix + key.Scope + "." + key.Name, nil
}

func archiveSubjectFor(kind kv.ArchiveKind, key kv.Key) string {
	scope := key.Scope
	if scope == "" {
		scope = globalScope
	}
	return archivedPrefix + string(kind) + "." + scope + "." + key.Name
}

func (k *KvStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, k.opTimeout)
}

func (k *KvStore) Get(ctx context.Context, key kv.Key) ([]byte, error) {
	subject, err := subjectFor(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()
	return k.get(ctx, subject)
}

func (k *KvStore) get(ctx context.Context, subject string) ([]byte, error) {
	v, err := k.kv.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", subject, err)
	}
	return v.Value(), nil
}

func (k *KvStore) Put(ctx context.Context, key kv.Key, data []byte) error {
	subject, err := subjectFor(key)
	if err != nil {
		return err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()
	if _, err := k.kv.Put(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", subject, err)
	}
	return nil
}

func (k *KvStore) PutNew(ctx context.Context, key kv.Key, data []byte) error {
	subject, err := subjectFor(key)
	if err != nil {
		return err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()
	if _, err := k.kv.Create(ctx, subject, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return kv.ErrExists
		}
		return fmt.Errorf("failed to create %s: %w", subject, err)
	}
	return nil
}

func (k *KvStore) Has(ctx context.Context, key kv.Key) (bool, error) {
	_, err := k.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (k *KvStore) HasScope(ctx context.Context, scope string) (bool, error) {
	if scope == "" {
		return false, nil
	}
	keys, err := k.list(ctx, scopedPrefix+scope+".>")
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

func (k *KvStore) Move(ctx context.Context, src, dst kv.Key) error {
	srcSubject, err := subjectFor(src)
	if err != nil {
		return err
	}
	dstSubject, err := subjectFor(dst)
	if err != nil {
		return err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()
	return k.move(ctx, srcSubject, dstSubject)
}

func (k *KvStore) move(ctx context.Context, srcSubject, dstSubject string) error {
	data, err := k.get(ctx, srcSubject)
	if err != nil {
		return err
	}
	if _, err := k.kv.Put(ctx, dstSubject, data); err != nil {
		return fmt.Errorf("failed to put %s: %w", dstSubject, err)
	}
	if err := k.kv.Delete(ctx, srcSubject); err != nil {
		return fmt.Errorf("failed to delete %s: %w", srcSubject, err)
	}
	return nil
}

func (k *KvStore) Drop(ctx context.Context, key kv.Key) error {
	subject, err := subjectFor(key)
	if err != nil {
		return err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()
	if err := k.kv.Delete(ctx, subject); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete %s: %w", subject, err)
	}
	return nil
}

func (k *KvStore) Keys(ctx context.Context, scope string, prefix string) ([]kv.Key, error) {
	filter := scopedPrefix + scope + ".>"
	trim := scopedPrefix + scope + "."
	if scope == "" {
		filter = globalPrefix + ">"
		trim = globalPrefix
	}
	subjects, err := k.list(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]kv.Key, 0, len(subjects))
	for _, s := range subjects {
		name := strings.TrimPrefix(s, trim)
		if strings.HasPrefix(name, prefix) {
			out = append(out, kv.Key{Scope: scope, Name: name})
		}
	}
	slices.SortFunc(out, func(a, b kv.Key) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (k *KvStore) Scopes(ctx context.Context) ([]string, error) {
	subjects, err := k.list(ctx, scopedPrefix+">")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, s := range subjects {
		scope, _, ok := strings.Cut(strings.TrimPrefix(s, scopedPrefix), ".")
		if ok && !slices.Contains(out, scope) {
			out = append(out, scope)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (k *KvStore) list(ctx context.Context, filter string) ([]string, error) {
	ctx, cancel := k.opCtx(ctx)
	defer cancel()

	lister, err := k.kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", filter, err)
	}
	defer func() { _ = lister.Stop() }()

	out := make([]string, 0)
	for key := range lister.Keys() {
		out = append(out, key)
	}
	return out, nil
}

func (k *KvStore) Archive(ctx context.Context, key kv.Key) error {
	return k.archive(ctx, kv.ArchiveKindArchived, key)
}

func (k *KvStore) ArchiveSurplus(ctx context.Context, key kv.Key) error {
	return k.archive(ctx, kv.ArchiveKindSurplus, key)
}

func (k *KvStore) ArchiveCorrupt(ctx context.Context, key kv.Key) error {
	return k.archive(ctx, kv.ArchiveKindCorrupt, key)
}

func (k *KvStore) archive(ctx context.Context, kind kv.ArchiveKind, key kv.Key) error {
	subject, err := subjectFor(key)
	if err != nil {
		return err
	}
	ctx, cancel := k.opCtx(ctx)
	defer cancel()

	name := kv.ArchiveName(key.Name, func(n string) bool {
		_, err := k.get(ctx, archiveSubjectFor(kind, key.WithName(n)))
		return err == nil
	})
	dst := archiveSubjectFor(kind, key.WithName(name))
	if err := k.move(ctx, subject, dst); err != nil {
		return err
	}
	k.log.Debug("archived", slog.String("key", key.String()), slog.String("kind", string(kind)))
	return nil
}

var (
	_ kv.Store   = (*KvStore)(nil)
	_ kv.Encoded = (*KvStore)(nil)
)
