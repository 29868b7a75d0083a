package es

import (
	"encoding/json"
	"log/slog"
	"time"
)

// StoredCommand records what a command did: the events it produced or the
// error it was rejected with. It is written once and never replayed.
type StoredCommand struct {
	Handle Handle `json:"handle"`
	// Version is the aggregate version the command was applied to.
	Version  uint64          `json:"version"`
	Sequence uint64          `json:"sequence"`
	Time     time.Time       `json:"time"`
	Actor    string          `json:"actor"`
	Label    string          `json:"label"`
	Details  json.RawMessage `json:"details,omitempty"`
	Effect   CommandEffect   `json:"effect"`
}

type CommandEffect struct {
	Events []uint64 `json:"events,omitempty"`
	Error  *string  `json:"error,omitempty"`
}

func (e CommandEffect) IsError() bool { return e.Error != nil }

func (c StoredCommand) Key() CommandKey {
	return NewCommandKey(c.Sequence, c.Time, c.Label)
}

// ResultingVersion is the aggregate version after the command's events.
func (c StoredCommand) ResultingVersion() uint64 {
	return c.Version + uint64(len(c.Effect.Events))
}

func newStoredCommand(log *slog.Logger, cmd Command, version, sequence uint64, now time.Time) StoredCommand {
	sc := StoredCommand{
		Handle:   cmd.Handle(),
		Version:  version,
		Sequence: sequence,
		Time:     now,
		Actor:    cmd.Actor(),
		Label:    cmd.Label(),
	}
	details, err := json.Marshal(cmd)
	if err != nil {
		log.Warn("command details not recorded", slog.String("label", sc.Label), slog.Any("error", err))
		return sc
	}
	sc.Details = details
	return sc
}

func (c StoredCommand) withError(err error) StoredCommand {
	msg := err.Error()
	c.Effect = CommandEffect{Error: &msg}
	return c
}

func (c StoredCommand) withEvents(events []uint64) StoredCommand {
	c.Effect = CommandEffect{Events: events}
	return c
}
