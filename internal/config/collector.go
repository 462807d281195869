// Package config resolves the collector configuration from flags, environment and an optional YAML file.
package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/vshulcz/Lumectra/internal/adapters/publisher/promtext"
	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/misc"
)

const (
	defaultTSDBURL       = promtext.DefaultURL
	defaultRetryInterval = misc.DefaultRetryInterval
	defaultLogLevel      = "info"
)

// CollectorConfig is the fully resolved collector configuration.
type CollectorConfig struct {
	Devices           []string
	TSDBURL           string
	StatusAddress     string
	DatabaseDSN       string
	RetryInterval     time.Duration
	SelfStatsInterval time.Duration
	LogLevel          zapcore.Level
	NoSpectrumScan    bool
	Gzip              bool
}

// LoadCollectorConfig parses args: device hosts with flags before, between or after them.
// ENV > CLI > file > defaults
func LoadCollectorConfig(args []string, out io.Writer) (CollectorConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("collector", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: collector [flags] DEVICE [DEVICE...]\n")
		fmt.Fprintf(fs.Output(), "Flags may also follow devices; arguments after -- are always devices.\n")
		fs.PrintDefaults()
	}

	var (
		cfgOpt       string
		tsdbOpt      string
		statusOpt    string
		dsnOpt       string
		levelOpt     string
		retryOpt     time.Duration
		selfStatsOpt time.Duration
		noSpecOpt    bool
		gzipOpt      bool
	)
	fs.StringVar(&cfgOpt, "c", "", "path to a YAML config file")
	fs.StringVar(&tsdbOpt, "tsdb-url", "", fmt.Sprintf("TSDB ingestion URL, default: %s", defaultTSDBURL))
	fs.BoolVar(&noSpecOpt, "no-spectrum-scan", false, "do not forward spectrum scans")
	fs.DurationVar(&retryOpt, "retry", defaultRetryInterval, "pause before reconnecting a device or the TSDB")
	fs.StringVar(&statusOpt, "s", "", "status server listen address (host:port), disabled when empty")
	fs.DurationVar(&selfStatsOpt, "self-stats", 0, "self statistics interval, 0 disables")
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for Postgres, replaces the TSDB sink when set")
	fs.BoolVar(&gzipOpt, "gzip", false, "gzip request bodies sent to the TSDB")
	fs.StringVar(&levelOpt, "log-level", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return CollectorConfig{}, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	fc, err := loadFile(FromEnvOrFlag("CONFIG", cfgOpt, ""))
	if err != nil {
		return CollectorConfig{}, err
	}

	devices := misc.GetList("DEVICES")
	if len(devices) == 0 {
		devices = positional
	}
	if len(devices) == 0 {
		devices = fc.Devices
	}
	devices = cleanList(devices)
	if len(devices) == 0 {
		return CollectorConfig{}, domain.ErrNoDevices
	}

	tsdb := normalizeURL(FromEnvOrFlag("TSDB_URL", tsdbOpt, stringOr(fc.TSDBURL, defaultTSDBURL)))
	if u, err := url.ParseRequestURI(tsdb); err != nil || u.Host == "" {
		return CollectorConfig{}, fmt.Errorf("invalid tsdb url: %q", tsdb)
	}

	retry, err := FromEnvOrFlagDuration("RETRY_INTERVAL", retryOpt, set["retry"],
		durationOr(fc.RetryInterval, defaultRetryInterval))
	if err != nil {
		return CollectorConfig{}, err
	}
	if retry <= 0 {
		return CollectorConfig{}, fmt.Errorf("retry interval must be > 0, got %v", retry)
	}

	selfStats, err := FromEnvOrFlagDuration("SELF_STATS_INTERVAL", selfStatsOpt, set["self-stats"],
		durationOr(fc.SelfStatsInterval, 0))
	if err != nil {
		return CollectorConfig{}, err
	}
	if selfStats < 0 {
		return CollectorConfig{}, fmt.Errorf("self stats interval must be >= 0, got %v", selfStats)
	}

	status := FromEnvOrFlag("STATUS_ADDRESS", statusOpt, fc.StatusAddress)
	if status != "" {
		status = normalizeListenAddress(status)
		if _, port, err := net.SplitHostPort(status); err != nil || port == "" {
			return CollectorConfig{}, fmt.Errorf("invalid status address: %q", status)
		}
	}

	level, err := zapcore.ParseLevel(FromEnvOrFlag("LOG_LEVEL", levelOpt, stringOr(fc.LogLevel, defaultLogLevel)))
	if err != nil {
		return CollectorConfig{}, fmt.Errorf("invalid log level: %w", err)
	}

	return CollectorConfig{
		Devices:           devices,
		TSDBURL:           tsdb,
		StatusAddress:     status,
		DatabaseDSN:       FromEnvOrFlag("DATABASE_DSN", dsnOpt, fc.DatabaseDSN),
		RetryInterval:     retry,
		SelfStatsInterval: selfStats,
		LogLevel:          level,
		NoSpectrumScan:    FromEnvOrFlagBool("NO_SPECTRUM_SCAN", noSpecOpt, set["no-spectrum-scan"], boolOr(fc.NoSpectrumScan, false)),
		Gzip:              FromEnvOrFlagBool("GZIP", gzipOpt, set["gzip"], boolOr(fc.Gzip, false)),
	}, nil
}

// parseInterspersed parses flags around positional arguments; flag.FlagSet alone stops at the first one.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		left := fs.Args()
		consumed := len(rest) - len(left)
		if consumed > 0 && rest[consumed-1] == "--" {
			return append(positional, left...), nil
		}
		if len(left) == 0 {
			return positional, nil
		}
		positional = append(positional, left[0])
		rest = left[1:]
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}

func normalizeListenAddress(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
