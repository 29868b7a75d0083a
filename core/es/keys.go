package es

import (
	"strconv"
	"strings"

	"github.com/codewandler/castore/ports/kv"
)

const (
	snapshotFreq = 5

	keyVersion     = "version"
	keyInfo        = "info.json"
	keySnapshot    = "snapshot.json"
	keySnapshotBk  = "snapshot-bk.json"
	keySnapshotNew = "snapshot-new.json"
	eventPrefix    = "delta-"
)

func versionKey() kv.Key                { return kv.Simple(keyVersion) }
func infoKey(h Handle) kv.Key           { return kv.Scoped(string(h), keyInfo) }
func snapshotKey(h Handle) kv.Key       { return kv.Scoped(string(h), keySnapshot) }
func backupSnapshotKey(h Handle) kv.Key { return kv.Scoped(string(h), keySnapshotBk) }
func newSnapshotKey(h Handle) kv.Key    { return kv.Scoped(string(h), keySnapshotNew) }
func commandKey(h Handle, k CommandKey) kv.Key {
	return kv.Scoped(string(h), k.FileName())
}

func eventKey(h Handle, version uint64) kv.Key {
	return kv.Scoped(string(h), eventPrefix+strconv.FormatUint(version, 10)+jsonSuffix)
}

// parseEventVersion extracts <v> from delta-<v>.json.
func parseEventVersion(name string) (uint64, bool) {
	s, ok := strings.CutPrefix(name, eventPrefix)
	if !ok {
		return 0, false
	}
	if s, ok = strings.CutSuffix(s, jsonSuffix); !ok || s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}
