package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/vshulcz/Lumectra/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v, ok := misc.Lookup(envKey); ok {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagBool merges boolean values from ENV and flags (defaulting to def).
// flagSet tells an explicit -flag=false apart from an absent flag.
func FromEnvOrFlagBool(envKey string, flagVal, flagSet, def bool) bool {
	if _, ok := misc.Lookup(envKey); ok {
		return misc.GetBool(envKey, def)
	}
	if flagSet {
		return flagVal
	}
	return def
}

// FromEnvOrFlagDuration reads a duration (seconds or Go syntax) from ENV, then from a flag when it was set.
func FromEnvOrFlagDuration(envKey string, flagVal time.Duration, flagSet bool, def time.Duration) (time.Duration, error) {
	if ev, ok := misc.Lookup(envKey); ok {
		d, err := misc.ParseSeconds(ev)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return d, nil
	}
	if flagSet {
		return flagVal, nil
	}
	return def, nil
}
