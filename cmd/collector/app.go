package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/adapters/collector/selfstats"
	"github.com/vshulcz/Lumectra/internal/adapters/http/ginserver"
	"github.com/vshulcz/Lumectra/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/Lumectra/internal/adapters/observability"
	"github.com/vshulcz/Lumectra/internal/adapters/publisher/postgres"
	"github.com/vshulcz/Lumectra/internal/adapters/publisher/promtext"
	"github.com/vshulcz/Lumectra/internal/adapters/queue/memory"
	"github.com/vshulcz/Lumectra/internal/config"
	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/ports"
	"github.com/vshulcz/Lumectra/internal/services/pusher"
	"github.com/vshulcz/Lumectra/internal/services/reader"
	"github.com/vshulcz/Lumectra/internal/services/status"
	"github.com/vshulcz/Lumectra/pkg/observer"
)

const shutdownTimeout = 5 * time.Second

// app owns every long-running part of the collector.
type app struct {
	cfg       config.CollectorConfig
	log       *zap.Logger
	queue     *memory.Queue
	sink      ports.Sink
	readers   []*reader.Reader
	pusher    *pusher.Pusher
	selfStats *selfstats.Collector
	server    *http.Server
}

func newApp(cfg config.CollectorConfig, logger *zap.Logger, src ports.EventSource,
	reg prometheus.Registerer, gatherer prometheus.Gatherer,
) (*app, error) {
	q := memory.New()
	obs := observability.NewPromObs(reg, q.Len)
	tracker := status.New(cfg.Devices...)
	events := observer.NewSubject[domain.DeviceEvent](tracker)

	sink, err := newSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger, queue: q, sink: sink}
	for _, dev := range cfg.Devices {
		r, err := reader.New(dev, src, q,
			reader.WithLogger(logger),
			reader.WithRetryInterval(cfg.RetryInterval),
			reader.WithoutSpectrum(cfg.NoSpectrumScan),
			reader.WithObservability(obs),
			reader.WithEvents(events),
		)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", dev, err)
		}
		a.readers = append(a.readers, r)
	}
	a.pusher = pusher.New(q, sink,
		pusher.WithLogger(logger),
		pusher.WithRetryInterval(cfg.RetryInterval),
		pusher.WithObservability(obs),
	)
	if cfg.SelfStatsInterval > 0 {
		a.selfStats = selfstats.New("", q, logger)
	}
	if cfg.StatusAddress != "" {
		h := ginserver.NewHandler(tracker, q.Len, gatherer)
		a.server = &http.Server{
			Addr: cfg.StatusAddress,
			Handler: ginserver.NewRouter(h,
				middlewares.ZapLogger(logger),
				middlewares.GzipResponse(),
			),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

func newSink(cfg config.CollectorConfig, logger *zap.Logger) (ports.Sink, error) {
	if cfg.DatabaseDSN != "" {
		return postgres.New(cfg.DatabaseDSN, postgres.WithLogger(logger))
	}
	return promtext.New(cfg.TSDBURL, promtext.WithGzip(cfg.Gzip), promtext.WithLogger(logger))
}

// run blocks until ctx is done and every goroutine has returned.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, r := range a.readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = a.pusher.Run(ctx)
	}()

	if a.selfStats != nil {
		if err := a.selfStats.Start(ctx, a.cfg.SelfStatsInterval); err != nil {
			a.log.Warn("self stats disabled", zap.Error(err))
		} else {
			defer a.selfStats.Stop()
		}
	}

	errc := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.log.Info("status server listening", zap.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("status server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		cancel()
	}

	if a.server != nil {
		sctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Shutdown(sctx); err != nil {
			a.log.Warn("status server shutdown", zap.Error(err))
		}
		stop()
	}
	wg.Wait()
	return runErr
}
