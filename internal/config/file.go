package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the optional YAML configuration file. Pointers tell
// "absent" apart from zero values.
type fileConfig struct {
	Devices           []string       `yaml:"devices"`
	TSDBURL           string         `yaml:"tsdb_url"`
	NoSpectrumScan    *bool          `yaml:"no_spectrum_scan"`
	RetryInterval     *time.Duration `yaml:"retry_interval"`
	StatusAddress     string         `yaml:"status_address"`
	SelfStatsInterval *time.Duration `yaml:"self_stats_interval"`
	DatabaseDSN       string         `yaml:"database_dsn"`
	Gzip              *bool          `yaml:"gzip"`
	LogLevel          string         `yaml:"log_level"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fc, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
