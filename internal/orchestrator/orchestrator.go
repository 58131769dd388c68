// Package orchestrator wires the playback analytics core to its inputs and
// outputs and runs one replay.
//
// Construction order matters: the dispatcher notifies the session manager
// before the stall detector and the metrics collector, so a session exists
// by the time the collector sees the event that created it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/randomizedcoder/go-playback-analytics/internal/config"
	"github.com/randomizedcoder/go-playback-analytics/internal/logging"
	"github.com/randomizedcoder/go-playback-analytics/internal/metrics"
	"github.com/randomizedcoder/go-playback-analytics/internal/player"
	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/replay"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
	"github.com/randomizedcoder/go-playback-analytics/internal/stall"
	"github.com/randomizedcoder/go-playback-analytics/internal/stats"
	"github.com/randomizedcoder/go-playback-analytics/internal/timeseries"
	"github.com/randomizedcoder/go-playback-analytics/internal/tui"
)

// Orchestrator coordinates all components for a replay run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	// Analytics core, driven from the replay goroutine only
	dispatcher *player.Dispatcher
	driver     *replay.Driver
	manager    *session.Manager
	detector   *stall.Detector
	collector  *qos.Collector

	// Sinks, safe to read from any goroutine
	aggregator *stats.Aggregator
	registry   *prometheus.Registry
	exporter   *metrics.Exporter
	errorLog   *logging.ErrorLog
	throughput *timeseries.ThroughputTracker

	replayer      *replay.Replayer
	metricsServer *metrics.Server

	startTime time.Time
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}

	o := &Orchestrator{
		config:     cfg,
		logger:     logger,
		dispatcher: player.NewDispatcher(),
		aggregator: stats.NewAggregator(cfg.DigestCompression),
		registry:   prometheus.NewRegistry(),
		errorLog:   logging.NewErrorLog(logger),
	}

	// The driver's record time is the clock of every timer in the core
	o.driver = replay.NewDriver(o.dispatcher)
	o.manager = session.NewManager(logger)
	o.detector = stall.NewDetector(logger)
	o.collector = qos.NewCollector(o.manager, o.detector, o.driver.Now, logger)
	o.throughput = timeseries.NewThroughputTracker(o.driver.Now)

	o.dispatcher.AddListener(o.manager)
	o.dispatcher.AddListener(o.detector)
	o.dispatcher.AddListener(o.collector)
	o.dispatcher.AddListener(o.errorLog)
	o.dispatcher.AddListener(&bytesListener{tracker: o.throughput})

	// Create metrics
	o.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	o.exporter = metrics.NewExporterWithRegistry(o.registry)

	o.manager.AddListener(o.aggregator)
	o.manager.AddListener(o.exporter)
	o.collector.AddListener(o.aggregator)
	o.collector.AddListener(o.exporter)
	o.collector.AddListener(logging.NewSnapshotLogger(logger))

	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, o.registry, o.aggregator, logger)
	}

	o.replayer = replay.NewReplayer(o.driver, replay.Options{
		BufferSize:  cfg.BufferSize,
		Realtime:    cfg.Realtime,
		Speed:       cfg.Speed,
		AfterRecord: o.afterRecord,
		Logger:      logger,
	})

	return o
}

// Run replays src. It blocks until the replay finishes and, with the
// dashboard enabled, until the dashboard is closed. Cancelling ctx stops
// everything early; that is not an error.
func (o *Orchestrator) Run(ctx context.Context, src io.Reader) error {
	o.startTime = time.Now()

	g, gctx := errgroup.WithContext(ctx)

	// Services outlive the replay when the dashboard is open
	svcCtx, stopServices := context.WithCancel(gctx)
	defer stopServices()

	if o.metricsServer != nil {
		g.Go(func() error {
			return o.metricsServer.Run(svcCtx)
		})
	}

	var program *tea.Program
	if o.config.TUIEnabled {
		program = tea.NewProgram(tui.New(tui.Config{
			EventsPath:  o.config.EventsPath,
			MetricsAddr: o.config.MetricsAddr,
			StatsSource: o.aggregator,
		}), tea.WithAltScreen())

		g.Go(func() error {
			// Closing the dashboard ends the run
			defer stopServices()
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-svcCtx.Done()
			tui.SendQuit(program)
			return nil
		})
	}

	o.logger.Info("replay_starting",
		"events", o.config.EventsPath,
		"realtime", o.config.Realtime,
		"speed", o.config.Speed,
		"metrics_addr", o.config.MetricsAddr,
	)

	g.Go(func() error {
		err := o.replayer.Run(svcCtx, src)
		o.aggregator.SetThroughput(o.throughput.GetStats())
		o.aggregator.SetReplayStats(o.replayStats(err == nil))
		tui.SendStats(program, o.aggregator.Aggregate())

		if program == nil {
			stopServices()
		}
		if errors.Is(err, context.Canceled) {
			o.logger.Info("replay_cancelled")
			return nil
		}
		return err
	})

	return g.Wait()
}

// afterRecord publishes the live view of the core after every record.
func (o *Orchestrator) afterRecord() {
	o.aggregator.SetCurrent(o.collector.CurrentMetrics())
	o.aggregator.SetReplayStats(o.replayStats(false))
	if o.throughput.SampleIfDue() {
		o.aggregator.SetThroughput(o.throughput.GetStats())
	}
}

// bytesListener feeds bandwidth estimates into the throughput tracker.
type bytesListener struct {
	player.NopListener
	tracker *timeseries.ThroughputTracker
}

func (l *bytesListener) OnBandwidthEstimate(_ player.EventTime, _ time.Duration, bytesLoaded, _ int64) {
	l.tracker.AddBytes(bytesLoaded)
}

func (o *Orchestrator) replayStats(done bool) stats.ReplayStats {
	s := o.replayer.Stats()
	return stats.ReplayStats{
		LinesRead:      s.LinesRead,
		RecordsApplied: s.RecordsApplied,
		UnknownEvents:  s.UnknownEvents,
		Malformed:      s.Malformed,
		Done:           done,
	}
}

// ExitSummary formats a summary of the run.
func (o *Orchestrator) ExitSummary() string {
	var elapsed time.Duration
	if !o.startTime.IsZero() {
		elapsed = time.Since(o.startTime)
	}
	return stats.FormatExitSummary(o.aggregator.Aggregate(), stats.SummaryConfig{
		EventsPath:   o.config.EventsPath,
		Duration:     elapsed,
		MetricsAddr:  o.config.MetricsAddr,
		ShowSessions: o.config.ShowSessions,
		ErrorCounts:  o.errorLog.Counts(),
	})
}

// PrintExitSummary writes the exit summary to w.
func (o *Orchestrator) PrintExitSummary(w io.Writer) {
	fmt.Fprint(w, o.ExitSummary())
}

// Aggregator returns the stats aggregator for external access.
func (o *Orchestrator) Aggregator() *stats.Aggregator {
	return o.aggregator
}

// Registry returns the Prometheus registry holding the playback series.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// ErrorLog returns the player error log for external access.
func (o *Orchestrator) ErrorLog() *logging.ErrorLog {
	return o.errorLog
}
