// Package domain is a small counter aggregate used to exercise the store.
package domain

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/ports/kv"
)

const (
	MaxCount     = 24
	PublishLabel = "cmd-ca-publish"
)

var (
	ErrLimit   = errors.New("counter cannot exceed 24")
	ErrInvalid = errors.New("invalid init event")
)

type (
	Counter struct {
		ID             es.Handle `json:"id"`
		Ver            uint64    `json:"version"`
		Count          uint16    `json:"counter"`
		NumIncrements  int       `json:"num_increments"`
		NumResets      int       `json:"num_resets"`
		NumPublished   int       `json:"num_published"`
		NumTotalEvents int       `json:"num_total_events"`
		History        []uint8   `json:"history,omitempty"`
	}

	// Created is the init event.
	Created struct {
		ID      es.Handle `json:"id"`
		Invalid bool      `json:"invalid,omitempty"`
	}

	Incremented struct {
		AggHandle  es.Handle `json:"handle"`
		AggVersion uint64    `json:"version"`
		Inc        uint8     `json:"inc,omitempty"`
		Reset      bool      `json:"reset,omitempty"`
		Publish    bool      `json:"publish,omitempty"`
	}

	Command struct {
		ID       es.Handle `json:"id"`
		Expected *uint64   `json:"expected,omitempty"`
		Op       string    `json:"op"`
		By       uint8     `json:"by,omitempty"`
		Times    int       `json:"times,omitempty"`
		Who      string    `json:"actor,omitempty"`
	}

	Store = es.Store[*Counter, Command, Incremented, Created]
)

func Open(ctx context.Context, store kv.Store, opts ...es.Option) (*Store, error) {
	return es.Open[*Counter, Command, Incremented, Created](ctx, store, Init, opts...)
}

func Init(e Created) (*Counter, error) {
	if e.Invalid {
		return nil, ErrInvalid
	}
	return &Counter{ID: e.ID, Ver: 1}, nil
}

// === Events ===

func (e Created) Handle() es.Handle { return e.ID }
func (e Created) Version() uint64   { return 0 }

func (e Incremented) Handle() es.Handle { return e.AggHandle }
func (e Incremented) Version() uint64   { return e.AggVersion }

// === Aggregate ===

func (c *Counter) Version() uint64 { return c.Ver }

func (c *Counter) Apply(e Incremented) {
	c.NumTotalEvents++
	if e.Inc > 0 {
		c.Count += uint16(e.Inc)
		c.NumIncrements++
		c.History = append(c.History, e.Inc)
	}
	if e.Reset {
		c.Count = 0
		c.NumResets++
	}
	if e.Publish {
		c.NumPublished++
	}
	c.Ver++
}

func (c *Counter) Clone() *Counter {
	out := *c
	out.History = slices.Clone(c.History)
	return &out
}

func (c *Counter) ProcessCommand(cmd Command) ([]Incremented, error) {
	next := func(i int) Incremented {
		return Incremented{AggHandle: c.ID, AggVersion: c.Ver + uint64(i)}
	}

	switch cmd.Op {
	case "inc":
		times := max(cmd.Times, 1)
		if int(c.Count)+times*int(cmd.By) > MaxCount {
			return nil, ErrLimit
		}
		out := make([]Incremented, times)
		for i := range out {
			out[i] = next(i)
			out[i].Inc = cmd.By
		}
		return out, nil
	case "reset":
		if c.Count == 0 {
			return nil, nil
		}
		e := next(0)
		e.Reset = true
		return []Incremented{e}, nil
	case "publish":
		e := next(0)
		e.Publish = true
		return []Incremented{e}, nil
	case "noop":
		return nil, nil
	case "skip":
		// claims a version that does not follow the aggregate
		e := next(1)
		e.Inc = 1
		return []Incremented{e}, nil
	}
	return nil, fmt.Errorf("unknown op %q", cmd.Op)
}

// === Commands ===

func (c Command) Handle() es.Handle { return c.ID }
func (c Command) Version() (uint64, bool) {
	if c.Expected == nil {
		return 0, false
	}
	return *c.Expected, true
}
func (c Command) Label() string {
	if c.Op == "publish" {
		return PublishLabel
	}
	return "cmd-counter-" + c.Op
}
func (c Command) Actor() string {
	if c.Who == "" {
		return "test"
	}
	return c.Who
}

// Expect returns c with optimistic concurrency on version v.
func (c Command) Expect(v uint64) Command {
	c.Expected = &v
	return c
}

func Inc(h es.Handle, by uint8) Command         { return Command{ID: h, Op: "inc", By: by} }
func IncN(h es.Handle, n int, by uint8) Command { return Command{ID: h, Op: "inc", By: by, Times: n} }
func Reset(h es.Handle) Command                 { return Command{ID: h, Op: "reset"} }
func Publish(h es.Handle) Command               { return Command{ID: h, Op: "publish"} }
func Noop(h es.Handle) Command                  { return Command{ID: h, Op: "noop"} }
func Skip(h es.Handle) Command                  { return Command{ID: h, Op: "skip"} }

var _ es.Aggregate[*Counter, Command, Incremented] = (*Counter)(nil)
