package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codewandler/castore/core/es"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func handleArg(args []string) (es.Handle, error) {
	if len(args) != 1 {
		return "", errors.New("expected exactly one handle")
	}
	return es.ParseHandle(args[0])
}

func (a *app) list(ctx context.Context, _ []string) error {
	handles, err := a.journal.List(ctx)
	if err != nil {
		return err
	}
	for _, h := range handles {
		fmt.Println(h)
	}
	return nil
}

func (a *app) info(ctx context.Context, args []string) error {
	h, err := handleArg(args)
	if err != nil {
		return err
	}
	info, err := a.journal.Info(ctx, h)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var (
		offset   = fs.Int("offset", 0, "number of matching commands to skip")
		rows     = fs.Int("rows", 0, "page size, 0 for 100, negative for all")
		after    = fs.String("after", "", "only commands after this RFC 3339 time")
		before   = fs.String("before", "", "only commands before this RFC 3339 time")
		includes = fs.String("include", "", "comma separated labels to include")
		excludes = fs.String("exclude", "", "comma separated labels to exclude")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	h, err := handleArg(fs.Args())
	if err != nil {
		return err
	}

	crit := es.HistoryCriteria{Offset: *offset, Rows: *rows}
	if *after != "" {
		t, err := time.Parse(time.RFC3339, *after)
		if err != nil {
			return fmt.Errorf("invalid -after: %w", err)
		}
		crit.SetAfter(t.Unix())
	}
	if *before != "" {
		t, err := time.Parse(time.RFC3339, *before)
		if err != nil {
			return fmt.Errorf("invalid -before: %w", err)
		}
		crit.SetBefore(t.Unix())
	}
	if *includes != "" {
		crit.SetIncludes(strings.Split(*includes, ",")...)
	}
	if *excludes != "" {
		crit.SetExcludes(strings.Split(*excludes, ",")...)
	}

	hist, err := a.journal.CommandHistory(ctx, h, crit)
	if err != nil {
		return err
	}
	return printJSON(hist)
}

func (a *app) version(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	set := fs.String("set", "", "key store version to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *set != "" {
		v, err := es.ParseKeyStoreVersion(*set)
		if err != nil {
			return err
		}
		return a.journal.SetVersion(ctx, v)
	}
	v, err := a.journal.GetVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

func (a *app) archive(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	var (
		days  = fs.Int("days", a.cfg.Archive.Days, "archive commands older than this many days")
		every = fs.Duration("every", 0, "repeat at this interval until interrupted")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *days <= 0 {
		return errors.New("archiving is disabled, set -days or archive.days")
	}

	var handles []es.Handle
	for _, s := range fs.Args() {
		h, err := es.ParseHandle(s)
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}

	run := func() error {
		targets := handles
		if len(targets) == 0 {
			var err error
			if targets, err = a.journal.List(ctx); err != nil {
				return err
			}
		}
		var errs []error
		for _, h := range targets {
			if err := a.journal.ArchiveOldCommands(ctx, h, *days); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	if *every <= 0 {
		return run()
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		if err := run(); err != nil {
			a.log.Error("archive run failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
