package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseArgs parses command-line arguments onto the defaults only.
// Config files and the environment are ignored; see Load.
func ParseArgs(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := newFlagSet(cfg, os.Stderr)
	if err := parseInto(fs, cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the -config YAML
// file, then the environment, then flags given on the command line.
// It returns flag.ErrHelp when -h or -help was requested.
func Load(args []string) (*Config, error) {
	// First pass finds -config and -env-file and reports flag errors once.
	pre := DefaultConfig()
	if err := parseInto(newFlagSet(pre, os.Stderr), pre, args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if pre.ConfigFile != "" {
		if err := LoadFile(cfg, pre.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, pre.EnvFile); err != nil {
		return nil, err
	}

	// Second pass: only flags present in args are written.
	if err := parseInto(newFlagSet(cfg, io.Discard), cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInto(fs *flag.FlagSet, cfg *Config, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		cfg.EventsPath = fs.Arg(0)
	default:
		return fmt.Errorf("expected one event log, got %d arguments: %s", fs.NArg(), strings.Join(fs.Args(), " "))
	}
	return nil
}

func newFlagSet(cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("playback-analytics", flag.ContinueOnError)
	fs.SetOutput(output)

	// Input
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Dotenv file loaded before reading PLAYBACK_ANALYTICS_* variables")

	// Replay
	fs.BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "Pace records by their t_ms instead of replaying as fast as possible")
	fs.Float64Var(&cfg.Speed, "speed", cfg.Speed, "Realtime speed multiplier")
	fs.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "Record buffer between reader and applier")

	// Aggregation
	fs.Float64Var(&cfg.DigestCompression, "digest-compression", cfg.DigestCompression, "T-Digest compression for time-to-ready percentiles")
	fs.BoolVar(&cfg.ShowSessions, "show-sessions", cfg.ShowSessions, "List live sessions in the exit summary")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty disables)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json, text")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose output (debug logging)")

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show live terminal dashboard")

	// Diagnostics
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip startup checks")

	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, `playback-analytics - playback QoS analytics from player event logs

Usage:
  playback-analytics [flags] <EVENTS.jsonl | ->

Input:
`)
		printFlagCategory(fs, []string{"config", "env-file"})

		fmt.Fprintf(w, "\nReplay:\n")
		printFlagCategory(fs, []string{"realtime", "speed", "buffer"})

		fmt.Fprintf(w, "\nAggregation:\n")
		printFlagCategory(fs, []string{"digest-compression", "show-sessions"})

		fmt.Fprintf(w, "\nObservability:\n")
		printFlagCategory(fs, []string{"metrics", "log-format", "log-level", "v"})

		fmt.Fprintf(w, "\nDashboard:\n")
		printFlagCategory(fs, []string{"tui"})

		fmt.Fprintf(w, "\nDiagnostics:\n")
		printFlagCategory(fs, []string{"skip-preflight"})

		fmt.Fprintf(w, `
Environment:
  Every flag except -config and -env-file has a %s<NAME> variable,
  e.g. %sMETRICS_ADDR, %sSPEED. Flags win over the environment.

Examples:
  # Replay a captured log as fast as possible
  playback-analytics events.jsonl

  # Watch a log at twice its recorded pace
  playback-analytics -tui -realtime -speed 2 events.jsonl

  # Read from a pipe, no metrics endpoint
  tail -f player.jsonl | playback-analytics -metrics "" -
`, EnvPrefix, EnvPrefix, EnvPrefix)
	}

	return fs
}

// printFlagCategory prints the named flags in lexical order.
func printFlagCategory(fs *flag.FlagSet, names []string) {
	w := fs.Output()
	fs.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
					fmt.Fprintf(w, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(w)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	g, ok := f.Value.(flag.Getter)
	if !ok {
		return "string"
	}
	switch g.Get().(type) {
	case bool:
		return ""
	case int:
		return "int"
	case float64:
		return "float"
	default:
		return "string"
	}
}
