// Package metrics provides Prometheus metrics for go-playback-analytics.
//
// The Exporter turns published session events and metrics snapshots into
// Prometheus series:
//   - Session lifecycle: created, destroyed, active, ready
//   - Time to ready and per-bucket load duration histograms (on ready)
//   - Stall, buffering, bytes and dropped frame totals (on session end)
//
// Server exposes them alongside health checks and live session snapshots.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
)

// Load duration bucket label values.
const (
	BucketSource   = "source"
	BucketManifest = "manifest"
	BucketAsset    = "asset"
	BucketDRM      = "drm"
)

// loadBuckets covers sub-100ms manifest fetches up to multi-second DRM
// license exchanges.
var loadBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Exporter records published playback events into Prometheus metrics.
//
// Thread-safe: Prometheus collectors handle their own synchronization.
type Exporter struct {
	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	sessionsActive    prometheus.Gauge
	sessionsReady     prometheus.Counter

	timeToReady  prometheus.Histogram
	loadDuration *prometheus.HistogramVec
	bitrate      prometheus.Gauge

	stalls        prometheus.Counter
	stallSeconds  prometheus.Counter
	bufferSeconds prometheus.Counter
	bytesLoaded   prometheus.Counter
	droppedFrames prometheus.Counter
}

var (
	_ qos.Listener     = (*Exporter)(nil)
	_ session.Listener = (*Exporter)(nil)
)

// NewExporter creates an exporter registered on the default registry.
func NewExporter() *Exporter {
	return NewExporterWithRegistry(prometheus.DefaultRegisterer)
}

// NewExporterWithRegistry creates an exporter with a custom registry.
// Useful for testing.
func NewExporterWithRegistry(registry prometheus.Registerer) *Exporter {
	e := &Exporter{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_sessions_created_total",
			Help: "Playback sessions created",
		}),
		sessionsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_sessions_destroyed_total",
			Help: "Playback sessions destroyed",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_sessions_active",
			Help: "Playback sessions currently alive",
		}),
		sessionsReady: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_sessions_ready_total",
			Help: "Sessions that reached ready while current",
		}),
		timeToReady: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playback_time_to_ready_seconds",
			Help:    "Time from first buffering to first ready per session",
			Buckets: loadBuckets,
		}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "playback_load_duration_seconds",
			Help:    "First load duration per bucket (source, manifest, asset, drm)",
			Buckets: loadBuckets,
		}, []string{"bucket"}),
		bitrate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playback_indicated_bitrate_bps",
			Help: "Indicated audio plus video bitrate of the last ready session",
		}),
		stalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_stalls_total",
			Help: "Stalls across ended sessions",
		}),
		stallSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_stall_seconds_total",
			Help: "Stall time across ended sessions",
		}),
		bufferSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_buffering_seconds_total",
			Help: "Buffering time across ended sessions",
		}),
		bytesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_bytes_loaded_total",
			Help: "Bytes loaded across ended sessions",
		}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playback_dropped_frames_total",
			Help: "Dropped video frames across ended sessions",
		}),
	}

	registry.MustRegister(
		e.sessionsCreated,
		e.sessionsDestroyed,
		e.sessionsActive,
		e.sessionsReady,
		e.timeToReady,
		e.loadDuration,
		e.bitrate,
		e.stalls,
		e.stallSeconds,
		e.bufferSeconds,
		e.bytesLoaded,
		e.droppedFrames,
	)

	return e
}

// --- session.Listener ---

func (e *Exporter) OnSessionCreated(*session.Session) {
	e.sessionsCreated.Inc()
	e.sessionsActive.Inc()
}

func (e *Exporter) OnCurrentSessionChanged(_, _ *session.SessionInfo) {}

func (e *Exporter) OnSessionDestroyed(*session.Session) {
	e.sessionsDestroyed.Inc()
	e.sessionsActive.Dec()
}

// --- qos.Listener ---

// OnMetricSessionReady observes the load latencies known at ready time.
func (e *Exporter) OnMetricSessionReady(m qos.PlaybackMetrics) {
	e.sessionsReady.Inc()
	e.bitrate.Set(float64(m.IndicatedBitrate))

	ld := m.LoadDuration
	observe(e.timeToReady, ld.TimeToReady)
	observe(e.loadDuration.WithLabelValues(BucketSource), ld.Source)
	observe(e.loadDuration.WithLabelValues(BucketManifest), ld.Manifest)
	observe(e.loadDuration.WithLabelValues(BucketAsset), ld.Asset)
	observe(e.loadDuration.WithLabelValues(BucketDRM), ld.DRM)
}

// OnMetricSessionEnded adds the session's final totals.
func (e *Exporter) OnMetricSessionEnded(m qos.PlaybackMetrics) {
	e.stalls.Add(float64(m.StallCount))
	e.stallSeconds.Add(m.StallDuration.Seconds())
	e.bufferSeconds.Add(m.BufferingDuration.Seconds())
	if m.TotalBytesLoaded > 0 {
		e.bytesLoaded.Add(float64(m.TotalBytesLoaded))
	}
	if m.TotalDroppedFrames > 0 {
		e.droppedFrames.Add(float64(m.TotalDroppedFrames))
	}
}

func observe(o prometheus.Observer, d *time.Duration) {
	if d != nil {
		o.Observe(d.Seconds())
	}
}
