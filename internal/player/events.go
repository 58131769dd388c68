package player

import (
	"fmt"
	"time"
)

// Format is the subset of a track format the analytics core reads.
type Format struct {
	ID       string `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Codecs   string `json:"codecs,omitempty"`

	// Bitrate in bits per second. Zero or negative means unknown.
	Bitrate int `json:"bitrate"`
	Width   int `json:"width,omitempty"`
	Height  int `json:"height,omitempty"`
}

// Size is a rendering surface size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// LoadEventInfo describes a single load operation (manifest, segment,
// licence request...).
type LoadEventInfo struct {
	URI          string
	DataType     DataType
	LoadDuration time.Duration
	BytesLoaded  int64
}

// PlaybackError is reported by the engine when playback fails.
type PlaybackError struct {
	Code    string
	Message string
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback error %s: %s", e.Code, e.Message)
}
