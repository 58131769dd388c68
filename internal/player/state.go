// Package player defines the notification surface a media player engine
// reports through: playback states, timelines, event times, formats and
// load descriptions, plus the Listener interface the analytics core
// implements.
//
// The engine itself (decoding, rendering, networking) lives outside this
// module. It is expected to deliver every notification from a single
// goroutine, in chronological order.
package player

import "strings"

// State is the abstract playback state of the player.
type State int

const (
	StateIdle State = iota + 1
	StateBuffering
	StateReady
	StateEnded
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateBuffering: "buffering",
	StateReady:     "ready",
	StateEnded:     "ended",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// ParseState converts a state name ("idle", "buffering", "ready", "ended").
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if strings.EqualFold(n, name) {
			return s, true
		}
	}
	return 0, false
}

// DiscontinuityReason explains why the playback position jumped.
type DiscontinuityReason int

const (
	DiscontinuityAutoTransition DiscontinuityReason = iota
	DiscontinuitySeek
	DiscontinuitySeekAdjustment
	DiscontinuitySkip
	DiscontinuityRemove
	DiscontinuityInternal
)

var discontinuityNames = map[DiscontinuityReason]string{
	DiscontinuityAutoTransition: "auto_transition",
	DiscontinuitySeek:           "seek",
	DiscontinuitySeekAdjustment: "seek_adjustment",
	DiscontinuitySkip:           "skip",
	DiscontinuityRemove:         "remove",
	DiscontinuityInternal:       "internal",
}

func (r DiscontinuityReason) String() string {
	if n, ok := discontinuityNames[r]; ok {
		return n
	}
	return "unknown"
}

// IsSeek reports whether the discontinuity was caused by a user or
// player seek.
func (r DiscontinuityReason) IsSeek() bool {
	return r == DiscontinuitySeek || r == DiscontinuitySeekAdjustment
}

// ParseDiscontinuityReason converts a reason name such as "seek".
func ParseDiscontinuityReason(name string) (DiscontinuityReason, bool) {
	for r, n := range discontinuityNames {
		if strings.EqualFold(n, name) {
			return r, true
		}
	}
	return 0, false
}

// TransitionReason explains why the current media item changed.
type TransitionReason int

const (
	TransitionRepeat TransitionReason = iota
	TransitionAuto
	TransitionSeek
	TransitionPlaylistChanged
)

var transitionNames = map[TransitionReason]string{
	TransitionRepeat:          "repeat",
	TransitionAuto:            "auto",
	TransitionSeek:            "seek",
	TransitionPlaylistChanged: "playlist_changed",
}

func (r TransitionReason) String() string {
	if n, ok := transitionNames[r]; ok {
		return n
	}
	return "unknown"
}

// ParseTransitionReason converts a reason name such as "repeat".
func ParseTransitionReason(name string) (TransitionReason, bool) {
	for r, n := range transitionNames {
		if strings.EqualFold(n, name) {
			return r, true
		}
	}
	return 0, false
}

// DataType classifies what a load operation fetched.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeMedia
	DataTypeManifest
	DataTypeDRM
	DataTypeCustomAsset
)

var dataTypeNames = map[DataType]string{
	DataTypeUnknown:     "unknown",
	DataTypeMedia:       "media",
	DataTypeManifest:    "manifest",
	DataTypeDRM:         "drm",
	DataTypeCustomAsset: "asset",
}

func (d DataType) String() string {
	if n, ok := dataTypeNames[d]; ok {
		return n
	}
	return "unknown"
}

// ParseDataType converts a data type name. Unrecognised names map to
// DataTypeUnknown.
func ParseDataType(name string) DataType {
	for d, n := range dataTypeNames {
		if strings.EqualFold(n, name) {
			return d
		}
	}
	return DataTypeUnknown
}
