// Package config provides configuration management for go-playback-analytics.
//
// Values are layered, later layers winning:
//
//	defaults → YAML file (-config) → environment (.env + PLAYBACK_ANALYTICS_*) → flags
package config

// Config holds all configuration options for a replay run.
type Config struct {
	// Input
	EventsPath string `json:"events_path" yaml:"events_path"` // "-" = stdin
	ConfigFile string `json:"config_file" yaml:"-"`
	EnvFile    string `json:"env_file" yaml:"-"`

	// Replay
	Realtime   bool    `json:"realtime" yaml:"realtime"`
	Speed      float64 `json:"speed" yaml:"speed"`
	BufferSize int     `json:"buffer_size" yaml:"buffer_size"`

	// Aggregation
	DigestCompression float64 `json:"digest_compression" yaml:"digest_compression"`
	ShowSessions      bool    `json:"show_sessions" yaml:"show_sessions"`

	// Observability
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"` // "" = disabled
	LogFormat   string `json:"log_format" yaml:"log_format"`     // json, text
	LogLevel    string `json:"log_level" yaml:"log_level"`
	Verbose     bool   `json:"verbose" yaml:"verbose"`

	// Dashboard
	TUIEnabled bool `json:"tui" yaml:"tui"`

	// Diagnostics
	SkipPreflight bool `json:"skip_preflight" yaml:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		EnvFile:           ".env",
		Speed:             1.0,
		BufferSize:        1000,
		DigestCompression: 100,
		MetricsAddr:       "0.0.0.0:17091",
		LogFormat:         "json",
		LogLevel:          "info",
	}
}
