package player

import "time"

// PeriodUID is the opaque identity of one period in a timeline. Two
// occurrences of the same content in a playlist have distinct UIDs.
type PeriodUID string

// MediaItem describes the content being played.
type MediaItem struct {
	ID    string `json:"id"`
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// Period is one content unit positioned in the timeline.
type Period struct {
	UID       PeriodUID
	MediaItem MediaItem
}

// Timeline is the player's current playlist as seen by the engine. Each
// window holds exactly one period, so window and period indices coincide.
type Timeline struct {
	Periods []Period
}

// IsEmpty reports whether the timeline holds no periods.
func (t Timeline) IsEmpty() bool {
	return len(t.Periods) == 0
}

// WindowCount returns the number of windows in the timeline.
func (t Timeline) WindowCount() int {
	return len(t.Periods)
}

// IndexOfPeriod returns the index of the period with the given UID, or -1.
func (t Timeline) IndexOfPeriod(uid PeriodUID) int {
	for i, p := range t.Periods {
		if p.UID == uid {
			return i
		}
	}
	return -1
}

// PeriodAt returns the period of the given window.
func (t Timeline) PeriodAt(windowIndex int) (Period, bool) {
	if windowIndex < 0 || windowIndex >= len(t.Periods) {
		return Period{}, false
	}
	return t.Periods[windowIndex], true
}

// EventTime is attached to every notification. It carries the timeline at
// the moment of the event, from which the period the event belongs to is
// derived.
type EventTime struct {
	// Realtime is the monotonic time of the event.
	Realtime time.Duration

	Timeline    Timeline
	WindowIndex int

	// MediaPeriod is set when the event concerns a specific media period,
	// e.g. loads for the next playlist item while the current one plays.
	MediaPeriod PeriodUID
}

// PeriodUID resolves the period the event is attributed to. It returns
// false when the timeline is empty or the window index is out of range.
func (e EventTime) PeriodUID() (PeriodUID, bool) {
	if e.Timeline.IsEmpty() {
		return "", false
	}
	if e.MediaPeriod != "" {
		return e.MediaPeriod, true
	}
	p, ok := e.Timeline.PeriodAt(e.WindowIndex)
	if !ok {
		return "", false
	}
	return p.UID, true
}

// CurrentPeriod returns the period of the event's window, ignoring
// MediaPeriod.
func (e EventTime) CurrentPeriod() (Period, bool) {
	return e.Timeline.PeriodAt(e.WindowIndex)
}

// PositionInfo describes one side of a position discontinuity.
type PositionInfo struct {
	PeriodUID      PeriodUID
	MediaItem      MediaItem
	MediaItemIndex int
	PositionMs     int64
}
