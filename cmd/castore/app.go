package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codewandler/castore/adapters/nats"
	"github.com/codewandler/castore/adapters/postgres"
	promadapter "github.com/codewandler/castore/adapters/prometheus"
	"github.com/codewandler/castore/core/es"
	"github.com/codewandler/castore/internal/codec"
	"github.com/codewandler/castore/internal/config"
	"github.com/codewandler/castore/ports/kv"
)

type app struct {
	cfg     *config.Config
	log     *slog.Logger
	journal *es.Journal
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := a.openKV(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(reg)
	}

	a.journal, err = es.OpenJournal(ctx, store,
		es.WithLog(log),
		es.WithMetrics(promadapter.NewStoreMetrics(reg)),
		es.WithArchivableLabels(cfg.Archive.Labels...),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openKV(ctx context.Context) (kv.Store, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendDisk:
		return kv.NewDiskStore(a.cfg.Storage.Dir)
	case config.BackendMemory:
		return kv.NewMemStore(), nil
	case config.BackendNATS:
		s, err := nats.NewKvStore(ctx, nats.KvConfig{
			Connect:  nats.ConnectURL(a.cfg.NATS.URL),
			Log:      a.log,
			Bucket:   a.cfg.NATS.Bucket,
			Replicas: a.cfg.NATS.Replicas,
			Codec:    codec.CompactJSONCodec{},
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, a.cfg.Postgres.DSN, a.log, codec.CompactJSONCodec{})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := s.Close(); err != nil {
				a.log.Warn("close failed", slog.Any("error", err))
			}
		})
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("serving metrics", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// Close releases resources in reverse order of acquisition. It is safe to call twice.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
