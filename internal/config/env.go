package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PLAYBACK_ANALYTICS_"

// ApplyEnv loads envFile (if it exists) into the process environment and
// then overlays PLAYBACK_ANALYTICS_* variables onto cfg. Variables already
// set in the environment are not overwritten by the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var errs []error

	lookupString("EVENTS", &cfg.EventsPath)
	lookupString("METRICS_ADDR", &cfg.MetricsAddr)
	lookupString("LOG_FORMAT", &cfg.LogFormat)
	lookupString("LOG_LEVEL", &cfg.LogLevel)

	errs = append(errs,
		lookupBool("VERBOSE", &cfg.Verbose),
		lookupBool("TUI", &cfg.TUIEnabled),
		lookupBool("REALTIME", &cfg.Realtime),
		lookupBool("SHOW_SESSIONS", &cfg.ShowSessions),
		lookupBool("SKIP_PREFLIGHT", &cfg.SkipPreflight),
		lookupFloat("SPEED", &cfg.Speed),
		lookupFloat("DIGEST_COMPRESSION", &cfg.DigestCompression),
		lookupInt("BUFFER_SIZE", &cfg.BufferSize),
	)

	return errors.Join(errs...)
}

func lookupString(name string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func lookupBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid bool %q", v)}
	}
	*dst = b
	return nil
}

func lookupInt(name string, dst *int) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", v)}
	}
	*dst = n
	return nil
}

func lookupFloat(name string, dst *float64) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid number %q", v)}
	}
	*dst = f
	return nil
}
