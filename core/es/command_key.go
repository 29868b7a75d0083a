package es

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	commandKeyPrefix = "command"
	commandKeySep    = "--"
	jsonSuffix       = ".json"
)

// CommandKey identifies a stored command. Sequence orders commands, timestamp and
// label only serve history filters. Labels must not contain "--".
type CommandKey struct {
	Sequence      uint64 `json:"sequence"`
	TimestampSecs int64  `json:"timestamp_secs"`
	Label         string `json:"label"`
}

func NewCommandKey(sequence uint64, t time.Time, label string) CommandKey {
	return CommandKey{Sequence: sequence, TimestampSecs: t.Unix(), Label: label}
}

// String renders command--<ts>--<seq>--<label>.
func (k CommandKey) String() string {
	return commandKeyPrefix + commandKeySep +
		strconv.FormatInt(k.TimestampSecs, 10) + commandKeySep +
		strconv.FormatUint(k.Sequence, 10) + commandKeySep +
		k.Label
}

// FileName is the key name the command is stored under.
func (k CommandKey) FileName() string { return k.String() + jsonSuffix }

// Matches reports whether the key passes the time window and label filters of crit.
func (k CommandKey) Matches(crit HistoryCriteria) bool {
	return crit.matchesTimestamp(k.TimestampSecs) && crit.matchesLabel(k.Label)
}

// ParseCommandKey is the inverse of FileName. Anything but exactly
// command--<int>--<uint>--<label>.json is rejected.
func ParseCommandKey(s string) (CommandKey, error) {
	parts := strings.Split(s, commandKeySep)
	if len(parts) != 4 || parts[0] != commandKeyPrefix {
		return CommandKey{}, &CommandKeyError{Key: s}
	}
	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return CommandKey{}, &CommandKeyError{Key: s, Err: err}
	}
	seq, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return CommandKey{}, &CommandKeyError{Key: s, Err: err}
	}
	label, ok := strings.CutSuffix(parts[3], jsonSuffix)
	if !ok {
		return CommandKey{}, &CommandKeyError{Key: s}
	}
	return CommandKey{Sequence: seq, TimestampSecs: ts, Label: label}, nil
}

type CommandKeyError struct {
	Key string
	Err error
}

func (e *CommandKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid command key: %s: %s", e.Key, e.Err)
	}
	return fmt.Sprintf("invalid command key: %s", e.Key)
}

func (e *CommandKeyError) Unwrap() error { return e.Err }
