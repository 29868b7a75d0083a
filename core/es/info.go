package es

import "time"

// StoredValueInfo is the per handle bookkeeping record. LastEvent is the
// authoritative replay limit.
type StoredValueInfo struct {
	SnapshotVersion uint64    `json:"snapshot_version"`
	LastEvent       uint64    `json:"last_event"`
	LastCommand     uint64    `json:"last_command"`
	LastUpdate      time.Time `json:"last_update"`
}

func NewStoredValueInfo(now time.Time) StoredValueInfo {
	return StoredValueInfo{LastUpdate: now}
}
