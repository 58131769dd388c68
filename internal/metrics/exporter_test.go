package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestExporter() (*Exporter, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	return NewExporterWithRegistry(registry), registry
}

// family returns the gathered metric family with the given name.
func family(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %q not gathered", name)
	return nil
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	return family(t, registry, name).GetMetric()[0].GetCounter().GetValue()
}

func gaugeValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	return family(t, registry, name).GetMetric()[0].GetGauge().GetValue()
}

// histogramByLabel returns the histogram whose bucket label matches, or the
// single unlabelled histogram when label is empty.
func histogramByLabel(t *testing.T, registry *prometheus.Registry, name, label string) *dto.Histogram {
	t.Helper()
	for _, m := range family(t, registry, name).GetMetric() {
		if label == "" {
			return m.GetHistogram()
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "bucket" && lp.GetValue() == label {
				return m.GetHistogram()
			}
		}
	}
	t.Fatalf("%s{bucket=%q} not found", name, label)
	return nil
}

func ptr(d time.Duration) *time.Duration { return &d }

// =============================================================================
// Tests
// =============================================================================

func TestExporter_SessionLifecycle(t *testing.T) {
	e, registry := newTestExporter()

	s1 := &session.Session{SessionID: "s1"}
	s2 := &session.Session{SessionID: "s2"}
	e.OnSessionCreated(s1)
	e.OnSessionCreated(s2)
	e.OnCurrentSessionChanged(nil, &session.SessionInfo{Session: s1})
	e.OnSessionDestroyed(s1)

	if got := counterValue(t, registry, "playback_sessions_created_total"); got != 2 {
		t.Errorf("sessions_created_total = %v, want 2", got)
	}
	if got := counterValue(t, registry, "playback_sessions_destroyed_total"); got != 1 {
		t.Errorf("sessions_destroyed_total = %v, want 1", got)
	}
	if got := gaugeValue(t, registry, "playback_sessions_active"); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
}

func TestExporter_SessionReady(t *testing.T) {
	e, registry := newTestExporter()

	e.OnMetricSessionReady(qos.PlaybackMetrics{
		SessionID:        "s1",
		IndicatedBitrate: 2_128_000,
		LoadDuration: qos.LoadDuration{
			TimeToReady: ptr(1500 * time.Millisecond),
			Manifest:    ptr(120 * time.Millisecond),
			Source:      ptr(300 * time.Millisecond),
		},
	})

	if got := counterValue(t, registry, "playback_sessions_ready_total"); got != 1 {
		t.Errorf("sessions_ready_total = %v, want 1", got)
	}
	if got := gaugeValue(t, registry, "playback_indicated_bitrate_bps"); got != 2_128_000 {
		t.Errorf("indicated_bitrate_bps = %v, want 2128000", got)
	}

	ttr := histogramByLabel(t, registry, "playback_time_to_ready_seconds", "")
	if ttr.GetSampleCount() != 1 || ttr.GetSampleSum() != 1.5 {
		t.Errorf("time_to_ready count/sum = %d/%v, want 1/1.5", ttr.GetSampleCount(), ttr.GetSampleSum())
	}

	tests := []struct {
		bucket string
		count  uint64
	}{
		{BucketManifest, 1},
		{BucketSource, 1},
		{BucketAsset, 0},
		{BucketDRM, 0},
	}
	for _, tt := range tests {
		h := histogramByLabel(t, registry, "playback_load_duration_seconds", tt.bucket)
		if h.GetSampleCount() != tt.count {
			t.Errorf("load_duration{bucket=%q} count = %d, want %d", tt.bucket, h.GetSampleCount(), tt.count)
		}
	}
}

func TestExporter_SessionEnded(t *testing.T) {
	e, registry := newTestExporter()

	for i := 0; i < 2; i++ {
		e.OnMetricSessionEnded(qos.PlaybackMetrics{
			StallCount:         2,
			StallDuration:      1500 * time.Millisecond,
			BufferingDuration:  3 * time.Second,
			TotalBytesLoaded:   1000,
			TotalDroppedFrames: 5,
		})
	}

	tests := []struct {
		name string
		want float64
	}{
		{"playback_stalls_total", 4},
		{"playback_stall_seconds_total", 3},
		{"playback_buffering_seconds_total", 6},
		{"playback_bytes_loaded_total", 2000},
		{"playback_dropped_frames_total", 10},
	}
	for _, tt := range tests {
		if got := counterValue(t, registry, tt.name); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExporter_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewExporterWithRegistry(registry)

	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry did not panic")
		}
	}()
	NewExporterWithRegistry(registry)
}
