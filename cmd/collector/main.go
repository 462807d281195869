package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/adapters/sse"
	"github.com/vshulcz/Lumectra/internal/config"
	"github.com/vshulcz/Lumectra/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	util.PrintBuildInfo(os.Stdout, buildVersion, buildDate, buildCommit)

	cfg, err := config.LoadCollectorConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := newApp(cfg, logger, sse.New(nil), reg, reg)
	if err != nil {
		logger.Fatal("failed to build collector", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("collector started",
		zap.Strings("devices", cfg.Devices),
		zap.String("sink", a.sink.Name()),
		zap.Duration("retry", cfg.RetryInterval),
		zap.Bool("spectrum", !cfg.NoSpectrumScan),
	)
	if err := a.run(ctx); err != nil {
		logger.Error("collector stopped", zap.Error(err))
		return
	}
	logger.Info("collector stopped")
}

func newLogger(cfg config.CollectorConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}
