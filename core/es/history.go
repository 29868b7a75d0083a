package es

import (
	"context"
	"fmt"
	"math"

	"github.com/codewandler/castore/core/ds"
)

const defaultHistoryRows = 100

// HistoryCriteria selects stored commands. Before and After are exclusive unix
// second bounds. A non-empty Includes admits only those labels; Excludes
// removes labels. Rows 0 means 100, a negative value means no limit.
type HistoryCriteria struct {
	Before   *int64        `json:"before,omitempty"`
	After    *int64        `json:"after,omitempty"`
	Offset   int           `json:"offset"`
	Rows     int           `json:"rows"`
	Includes *ds.StringSet `json:"includes,omitempty"`
	Excludes *ds.StringSet `json:"excludes,omitempty"`
}

func (c *HistoryCriteria) SetBefore(ts int64) { c.Before = &ts }
func (c *HistoryCriteria) SetAfter(ts int64)  { c.After = &ts }
func (c *HistoryCriteria) SetIncludes(labels ...string) {
	c.Includes = ds.NewStringSet(labels...)
}
func (c *HistoryCriteria) SetExcludes(labels ...string) {
	c.Excludes = ds.NewStringSet(labels...)
}

func (c HistoryCriteria) rows() int {
	switch {
	case c.Rows == 0:
		return defaultHistoryRows
	case c.Rows < 0:
		return math.MaxInt
	}
	return c.Rows
}

func (c HistoryCriteria) matchesTimestamp(ts int64) bool {
	if c.Before != nil && ts >= *c.Before {
		return false
	}
	if c.After != nil && ts <= *c.After {
		return false
	}
	return true
}

func (c HistoryCriteria) matchesLabel(label string) bool {
	if !c.Includes.IsEmpty() && !c.Includes.Contains(label) {
		return false
	}
	return !c.Excludes.Contains(label)
}

type CommandHistoryRecord struct {
	Key     CommandKey    `json:"key"`
	Command StoredCommand `json:"command"`
}

type CommandHistory struct {
	Offset   int                    `json:"offset"`
	Total    int                    `json:"total"`
	Commands []CommandHistoryRecord `json:"commands"`
}

// CommandHistory returns one page of the commands of h matching crit, in
// ascending sequence. Only the commands on the page are loaded.
func (j *Journal) CommandHistory(ctx context.Context, h Handle, crit HistoryCriteria) (CommandHistory, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.commandHistory(ctx, h, crit)
}

func (j *Journal) commandHistory(ctx context.Context, h Handle, crit HistoryCriteria) (CommandHistory, error) {
	keys, err := j.commandKeys(ctx, h, crit)
	if err != nil {
		return CommandHistory{}, err
	}

	total := len(keys)
	if crit.Offset < 0 || crit.Offset > total {
		return CommandHistory{}, fmt.Errorf("%w: offset '%d' exceeds total '%d'", ErrCommandOffsetTooLarge, crit.Offset, total)
	}

	page := keys[crit.Offset:]
	if rows := crit.rows(); len(page) > rows {
		page = page[:rows]
	}

	out := CommandHistory{
		Offset:   crit.Offset,
		Total:    total,
		Commands: make([]CommandHistoryRecord, 0, len(page)),
	}
	for _, key := range page {
		cmd, err := j.getCommand(ctx, h, key)
		if err != nil {
			return CommandHistory{}, err
		}
		out.Commands = append(out.Commands, CommandHistoryRecord{Key: key, Command: cmd})
	}
	return out, nil
}
