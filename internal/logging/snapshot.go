package logging

import (
	"log/slog"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
)

// SnapshotLogger logs every published metrics snapshot.
type SnapshotLogger struct {
	logger *slog.Logger
}

var _ qos.Listener = (*SnapshotLogger)(nil)

// NewSnapshotLogger creates a snapshot logger. A nil logger discards records.
func NewSnapshotLogger(logger *slog.Logger) *SnapshotLogger {
	if logger == nil {
		logger = Discard()
	}
	return &SnapshotLogger{logger: logger}
}

// OnMetricSessionReady logs the snapshot taken when a session became ready.
func (s *SnapshotLogger) OnMetricSessionReady(m qos.PlaybackMetrics) {
	s.logger.Info("session_ready", snapshotAttrs(m)...)
}

// OnMetricSessionEnded logs the final snapshot of a destroyed session.
func (s *SnapshotLogger) OnMetricSessionEnded(m qos.PlaybackMetrics) {
	s.logger.Info("session_ended", snapshotAttrs(m)...)
}

func snapshotAttrs(m qos.PlaybackMetrics) []any {
	attrs := []any{
		"session_id", m.SessionID,
		"indicated_bitrate_bps", m.IndicatedBitrate,
		"bandwidth_bps", m.Bandwidth,
		"playback_ms", m.PlaybackDuration.Milliseconds(),
		"stall_count", m.StallCount,
		"stall_ms", m.StallDuration.Milliseconds(),
		"buffering_ms", m.BufferingDuration.Milliseconds(),
		"bytes_loaded", m.TotalBytesLoaded,
		"dropped_frames", m.TotalDroppedFrames,
	}

	ld := m.LoadDuration
	if ld.TimeToReady != nil {
		attrs = append(attrs, "time_to_ready_ms", ld.TimeToReady.Milliseconds())
	}
	if ld.Manifest != nil {
		attrs = append(attrs, "manifest_ms", ld.Manifest.Milliseconds())
	}
	if ld.Source != nil {
		attrs = append(attrs, "source_ms", ld.Source.Milliseconds())
	}
	if ld.Asset != nil {
		attrs = append(attrs, "asset_ms", ld.Asset.Milliseconds())
	}
	if ld.DRM != nil {
		attrs = append(attrs, "drm_ms", ld.DRM.Milliseconds())
	}
	if m.URL != "" {
		attrs = append(attrs, "url", m.URL)
	}
	return attrs
}
