// Package main provides the playback-analytics CLI entry point.
//
// playback-analytics replays a player's JSON-lines event log through the
// playback QoS core: sessions, stalls, time to ready and load times. It
// serves the results as Prometheus metrics, an optional live dashboard and
// an exit summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/randomizedcoder/go-playback-analytics/internal/config"
	"github.com/randomizedcoder/go-playback-analytics/internal/logging"
	"github.com/randomizedcoder/go-playback-analytics/internal/orchestrator"
	"github.com/randomizedcoder/go-playback-analytics/internal/preflight"
	"github.com/randomizedcoder/go-playback-analytics/internal/replay"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/playback-analytics
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("playback-analytics %s\n", version)
			return 0
		}
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	logger := logging.Discard()
	if !cfg.TUIEnabled {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	if !cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			EventsPath:  cfg.EventsPath,
			MetricsAddr: cfg.MetricsAddr,
			TUIEnabled:  cfg.TUIEnabled,
		})
		if !cfg.TUIEnabled || !result.Passed {
			preflight.PrintResults(os.Stderr, result)
		}
		if !result.Passed {
			fmt.Fprintln(os.Stderr, "Preflight checks failed (use -skip-preflight to override)")
			return 1
		}
	}

	src, err := replay.Open(cfg.EventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer src.Close()

	logger.Info("starting",
		"version", version,
		"events", cfg.EventsPath,
		"tui", cfg.TUIEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(cfg, logger)
	runErr := orch.Run(ctx, src)

	orch.PrintExitSummary(os.Stdout)

	if runErr != nil {
		logger.Error("replay_failed", "error", runErr)
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	}
	return 0
}
