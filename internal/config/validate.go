package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or every problem found joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	// An event log is required
	if cfg.EventsPath == "" {
		errs = append(errs, ValidationError{
			Field:   "events_path",
			Message: "event log path is required (use - for stdin)",
		})
	}

	// The dashboard owns the terminal's stdin
	if cfg.TUIEnabled && cfg.EventsPath == "-" {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "-tui cannot be combined with reading events from stdin",
		})
	}

	if cfg.Speed <= 0 {
		errs = append(errs, ValidationError{
			Field:   "speed",
			Message: fmt.Sprintf("must be positive (got %v)", cfg.Speed),
		})
	}

	if cfg.BufferSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "buffer_size",
			Message: "must be at least 1",
		})
	}

	if cfg.DigestCompression < 1 {
		errs = append(errs, ValidationError{
			Field:   "digest_compression",
			Message: fmt.Sprintf("must be at least 1 (got %v)", cfg.DigestCompression),
		})
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: fmt.Sprintf("must be host:port (got %q)", cfg.MetricsAddr),
			})
		}
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.LogFormat)] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.LogLevel),
		})
	}

	return errors.Join(errs...)
}
