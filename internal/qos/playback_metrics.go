package qos

import (
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// LoadDuration holds where startup time was spent. A nil field was not
// observed for the session.
type LoadDuration struct {
	Source      *time.Duration `json:"source_ns,omitempty"`
	Manifest    *time.Duration `json:"manifest_ns,omitempty"`
	Asset       *time.Duration `json:"asset_ns,omitempty"`
	DRM         *time.Duration `json:"drm_ns,omitempty"`
	TimeToReady *time.Duration `json:"time_to_ready_ns,omitempty"`
}

// PlaybackMetrics is a point-in-time snapshot of one session. It shares
// no memory with the live aggregator it was taken from.
type PlaybackMetrics struct {
	SessionID string `json:"session_id"`

	// Bits per second
	Bandwidth        int64 `json:"bandwidth_bps"`
	IndicatedBitrate int   `json:"indicated_bitrate_bps"`

	PlaybackDuration  time.Duration `json:"playback_duration_ns"`
	StallDuration     time.Duration `json:"stall_duration_ns"`
	BufferingDuration time.Duration `json:"buffering_duration_ns"`
	StallCount        int           `json:"stall_count"`

	LoadDuration LoadDuration `json:"load_duration"`

	VideoFormat *player.Format `json:"video_format,omitempty"`
	AudioFormat *player.Format `json:"audio_format,omitempty"`

	TotalBytesLoaded   int64         `json:"total_bytes_loaded"`
	TotalLoadTime      time.Duration `json:"total_load_time_ns"`
	URL                string        `json:"url,omitempty"`
	SurfaceSize        player.Size   `json:"surface_size"`
	TotalDroppedFrames int           `json:"total_dropped_frames"`
}

func cloneDuration(d *time.Duration) *time.Duration {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneFormat(f *player.Format) *player.Format {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
