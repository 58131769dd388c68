// Package replay drives the analytics core from a recorded player event
// log.
//
// The log is JSON lines, one notification per line:
//
//	{"t_ms":0,"event":"timeline","periods":[{"uid":"p0","media_id":"a"}]}
//	{"t_ms":0,"event":"playback_state","state":"buffering","window":0}
//	{"t_ms":850,"event":"playback_state","state":"ready","window":0}
//
// t_ms is the event time in milliseconds and doubles as the replay clock.
// Blank lines and lines starting with '#' are ignored.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRecord is returned for lines that are not a valid record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownEvent is returned for records naming an event this package
	// does not know.
	ErrUnknownEvent = errors.New("unknown event")
)

// Event names.
const (
	EventTimeline               = "timeline"
	EventPlaybackState          = "playback_state"
	EventIsPlaying              = "is_playing"
	EventPositionDiscontinuity  = "position_discontinuity"
	EventMediaItemTransition    = "media_item_transition"
	EventPlayerError            = "player_error"
	EventPlayerReleased         = "player_released"
	EventLoadStarted            = "load_started"
	EventLoadCompleted          = "load_completed"
	EventLoadError              = "load_error"
	EventBandwidthEstimate      = "bandwidth_estimate"
	EventDrmSessionAcquired     = "drm_session_acquired"
	EventDrmKeysLoaded          = "drm_keys_loaded"
	EventDrmKeysRestored        = "drm_keys_restored"
	EventDrmKeysRemoved         = "drm_keys_removed"
	EventVideoFormat            = "video_format"
	EventAudioFormat            = "audio_format"
	EventVideoDisabled          = "video_disabled"
	EventAudioDisabled          = "audio_disabled"
	EventDroppedFrames          = "dropped_frames"
	EventSurfaceSize            = "surface_size"
	EventRenderedFirstFrame     = "rendered_first_frame"
	EventAudioPositionAdvancing = "audio_position_advancing"
)

var knownEvents = map[string]struct{}{
	EventTimeline: {}, EventPlaybackState: {}, EventIsPlaying: {},
	EventPositionDiscontinuity: {}, EventMediaItemTransition: {},
	EventPlayerError: {}, EventPlayerReleased: {},
	EventLoadStarted: {}, EventLoadCompleted: {}, EventLoadError: {},
	EventBandwidthEstimate: {},
	EventDrmSessionAcquired: {}, EventDrmKeysLoaded: {},
	EventDrmKeysRestored: {}, EventDrmKeysRemoved: {},
	EventVideoFormat: {}, EventAudioFormat: {},
	EventVideoDisabled: {}, EventAudioDisabled: {},
	EventDroppedFrames: {}, EventSurfaceSize: {},
	EventRenderedFirstFrame: {}, EventAudioPositionAdvancing: {},
}

// Record is one line of the event log. Only the fields relevant to Event
// are set.
type Record struct {
	TMs   int64  `json:"t_ms"`
	Event string `json:"event"`

	// Event time context
	Window      int    `json:"window,omitempty"`
	MediaPeriod string `json:"media_period,omitempty"`

	// timeline
	Periods []PeriodRecord `json:"periods,omitempty"`

	// playback_state, is_playing
	State   string `json:"state,omitempty"`
	Playing bool   `json:"playing,omitempty"`

	// position_discontinuity, media_item_transition
	Reason string          `json:"reason,omitempty"`
	Old    *PositionRecord `json:"old,omitempty"`
	New    *PositionRecord `json:"new,omitempty"`

	// load_*
	URI      string `json:"uri,omitempty"`
	DataType string `json:"data_type,omitempty"`
	LoadMs   int64  `json:"load_ms,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`

	// bandwidth_estimate
	BitrateEstimate int64 `json:"bitrate_estimate,omitempty"`

	// player_error, load_error
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// video_format, audio_format
	Format *FormatRecord `json:"format,omitempty"`

	// dropped_frames
	Count     int   `json:"count,omitempty"`
	ElapsedMs int64 `json:"elapsed_ms,omitempty"`

	// surface_size
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// PeriodRecord is one period of a timeline record.
type PeriodRecord struct {
	UID     string `json:"uid"`
	MediaID string `json:"media_id"`
	URI     string `json:"uri,omitempty"`
	Title   string `json:"title,omitempty"`
}

// PositionRecord is one side of a position discontinuity.
type PositionRecord struct {
	Period     string `json:"period"`
	Index      int    `json:"index"`
	PositionMs int64  `json:"position_ms"`
}

// FormatRecord is a track format.
type FormatRecord struct {
	ID       string `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Codecs   string `json:"codecs,omitempty"`
	Bitrate  int    `json:"bitrate"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// ParseLine decodes one log line. ok is false for blank and comment lines.
func ParseLine(line string) (rec Record, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Record{}, false, nil
	}

	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return Record{}, false, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if rec.Event == "" {
		return Record{}, false, fmt.Errorf("%w: missing event", ErrMalformedRecord)
	}
	if rec.TMs < 0 {
		return Record{}, false, fmt.Errorf("%w: negative t_ms %d", ErrMalformedRecord, rec.TMs)
	}
	if _, known := knownEvents[rec.Event]; !known {
		return Record{}, false, fmt.Errorf("%w: %q", ErrUnknownEvent, rec.Event)
	}
	return rec, true, nil
}
