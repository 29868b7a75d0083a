package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/codewandler/castore/internal/config"
)

const usage = `usage: castore [-config=<path>] <command> [<args>]

Configuration flags:

   -config     Path of a YAML configuration file. Every setting can be overridden with
               CASTORE_<SECTION>__<KEY> environment variables, e.g. CASTORE_STORAGE__BACKEND=nats.

Inspection commands
   list        List all aggregate handles
   info        Show the bookkeeping record of a handle
   history     Show the command history of a handle
   version     Show the key store version, or set it with -set=<version>

Maintenance commands
   archive     Archive old commands of all or the given handles; -every=<duration> repeats

Other commands
   help        Display help message
`

var configFlag = flag.String("config", "", "configuration file path")

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, "missing command\n\n", usage)
		os.Exit(2)
	}
	cmd, args := args[0], args[1:]
	if cmd == "help" {
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "castore: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("cannot open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	switch cmd {
	case "list":
		err = a.list(ctx, args)
	case "info":
		err = a.info(ctx, args)
	case "history":
		err = a.history(ctx, args)
	case "version":
		err = a.version(ctx, args)
	case "archive":
		err = a.archive(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		a.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Error(cmd+" failed", slog.Any("error", err))
		a.Close()
		os.Exit(1)
	}
}
