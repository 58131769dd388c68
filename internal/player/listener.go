package player

import "time"

// Listener receives every notification the engine emits. Implementations
// usually embed NopListener and override what they need.
type Listener interface {
	// --- Lifecycle ---
	OnTimelineChanged(et EventTime)
	OnPlaybackStateChanged(et EventTime, state State)
	OnIsPlayingChanged(et EventTime, playing bool)
	OnPositionDiscontinuity(et EventTime, oldPos, newPos PositionInfo, reason DiscontinuityReason)
	OnMediaItemTransition(et EventTime, item *MediaItem, reason TransitionReason)
	OnPlayerError(et EventTime, err error)
	OnPlayerReleased(et EventTime)

	// --- Loading ---
	OnLoadStarted(et EventTime, info LoadEventInfo)
	OnLoadCompleted(et EventTime, info LoadEventInfo)
	OnLoadError(et EventTime, info LoadEventInfo, err error)
	OnBandwidthEstimate(et EventTime, loadTime time.Duration, bytesLoaded, bitrateEstimate int64)

	// --- DRM ---
	OnDrmSessionAcquired(et EventTime)
	OnDrmKeysLoaded(et EventTime)
	OnDrmKeysRestored(et EventTime)
	OnDrmKeysRemoved(et EventTime)

	// --- Tracks and rendering ---
	OnVideoInputFormatChanged(et EventTime, format Format)
	OnAudioInputFormatChanged(et EventTime, format Format)
	OnVideoDisabled(et EventTime)
	OnAudioDisabled(et EventTime)
	OnDroppedVideoFrames(et EventTime, count int, elapsed time.Duration)
	OnSurfaceSizeChanged(et EventTime, size Size)
	OnRenderedFirstFrame(et EventTime)
	OnAudioPositionAdvancing(et EventTime)
}

// NopListener implements Listener with no-op methods.
type NopListener struct{}

var _ Listener = NopListener{}

func (NopListener) OnTimelineChanged(EventTime) {}
func (NopListener) OnPlaybackStateChanged(EventTime, State) {}
func (NopListener) OnIsPlayingChanged(EventTime, bool) {}
func (NopListener) OnPositionDiscontinuity(EventTime, PositionInfo, PositionInfo, DiscontinuityReason) {}
func (NopListener) OnMediaItemTransition(EventTime, *MediaItem, TransitionReason) {}
func (NopListener) OnPlayerError(EventTime, error) {}
func (NopListener) OnPlayerReleased(EventTime) {}
func (NopListener) OnLoadStarted(EventTime, LoadEventInfo) {}
func (NopListener) OnLoadCompleted(EventTime, LoadEventInfo) {}
func (NopListener) OnLoadError(EventTime, LoadEventInfo, error) {}
func (NopListener) OnBandwidthEstimate(EventTime, time.Duration, int64, int64) {}
func (NopListener) OnDrmSessionAcquired(EventTime) {}
func (NopListener) OnDrmKeysLoaded(EventTime) {}
func (NopListener) OnDrmKeysRestored(EventTime) {}
func (NopListener) OnDrmKeysRemoved(EventTime) {}
func (NopListener) OnVideoInputFormatChanged(EventTime, Format) {}
func (NopListener) OnAudioInputFormatChanged(EventTime, Format) {}
func (NopListener) OnVideoDisabled(EventTime) {}
func (NopListener) OnAudioDisabled(EventTime) {}
func (NopListener) OnDroppedVideoFrames(EventTime, int, time.Duration) {}
func (NopListener) OnSurfaceSizeChanged(EventTime, Size) {}
func (NopListener) OnRenderedFirstFrame(EventTime) {}
func (NopListener) OnAudioPositionAdvancing(EventTime) {}

// Dispatcher fans every notification out to an ordered list of listeners.
// Listeners are called in registration order, so a session manager added
// before a metrics collector has already created the session when the
// collector sees the same event.
//
// Not safe for concurrent use; the engine drives it from one goroutine.
type Dispatcher struct {
	listeners []Listener
}

var _ Listener = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with the given listeners in order.
func NewDispatcher(listeners ...Listener) *Dispatcher {
	d := &Dispatcher{}
	for _, l := range listeners {
		d.AddListener(l)
	}
	return d
}

// AddListener appends a listener. Nil listeners are ignored.
func (d *Dispatcher) AddListener(l Listener) {
	if l == nil {
		return
	}
	d.listeners = append(d.listeners, l)
}

// RemoveListener removes the first occurrence of l.
func (d *Dispatcher) RemoveListener(l Listener) {
	for i, existing := range d.listeners {
		if existing == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	return len(d.listeners)
}

func (d *Dispatcher) OnTimelineChanged(et EventTime) {
	for _, l := range d.listeners {
		l.OnTimelineChanged(et)
	}
}

func (d *Dispatcher) OnPlaybackStateChanged(et EventTime, state State) {
	for _, l := range d.listeners {
		l.OnPlaybackStateChanged(et, state)
	}
}

func (d *Dispatcher) OnIsPlayingChanged(et EventTime, playing bool) {
	for _, l := range d.listeners {
		l.OnIsPlayingChanged(et, playing)
	}
}

func (d *Dispatcher) OnPositionDiscontinuity(et EventTime, oldPos, newPos PositionInfo, reason DiscontinuityReason) {
	for _, l := range d.listeners {
		l.OnPositionDiscontinuity(et, oldPos, newPos, reason)
	}
}

func (d *Dispatcher) OnMediaItemTransition(et EventTime, item *MediaItem, reason TransitionReason) {
	for _, l := range d.listeners {
		l.OnMediaItemTransition(et, item, reason)
	}
}

func (d *Dispatcher) OnPlayerError(et EventTime, err error) {
	for _, l := range d.listeners {
		l.OnPlayerError(et, err)
	}
}

func (d *Dispatcher) OnPlayerReleased(et EventTime) {
	for _, l := range d.listeners {
		l.OnPlayerReleased(et)
	}
}

func (d *Dispatcher) OnLoadStarted(et EventTime, info LoadEventInfo) {
	for _, l := range d.listeners {
		l.OnLoadStarted(et, info)
	}
}

func (d *Dispatcher) OnLoadCompleted(et EventTime, info LoadEventInfo) {
	for _, l := range d.listeners {
		l.OnLoadCompleted(et, info)
	}
}

func (d *Dispatcher) OnLoadError(et EventTime, info LoadEventInfo, err error) {
	for _, l := range d.listeners {
		l.OnLoadError(et, info, err)
	}
}

func (d *Dispatcher) OnBandwidthEstimate(et EventTime, loadTime time.Duration, bytesLoaded, bitrateEstimate int64) {
	for _, l := range d.listeners {
		l.OnBandwidthEstimate(et, loadTime, bytesLoaded, bitrateEstimate)
	}
}

func (d *Dispatcher) OnDrmSessionAcquired(et EventTime) {
	for _, l := range d.listeners {
		l.OnDrmSessionAcquired(et)
	}
}

func (d *Dispatcher) OnDrmKeysLoaded(et EventTime) {
	for _, l := range d.listeners {
		l.OnDrmKeysLoaded(et)
	}
}

func (d *Dispatcher) OnDrmKeysRestored(et EventTime) {
	for _, l := range d.listeners {
		l.OnDrmKeysRestored(et)
	}
}

func (d *Dispatcher) OnDrmKeysRemoved(et EventTime) {
	for _, l := range d.listeners {
		l.OnDrmKeysRemoved(et)
	}
}

func (d *Dispatcher) OnVideoInputFormatChanged(et EventTime, format Format) {
	for _, l := range d.listeners {
		l.OnVideoInputFormatChanged(et, format)
	}
}

func (d *Dispatcher) OnAudioInputFormatChanged(et EventTime, format Format) {
	for _, l := range d.listeners {
		l.OnAudioInputFormatChanged(et, format)
	}
}

func (d *Dispatcher) OnVideoDisabled(et EventTime) {
	for _, l := range d.listeners {
		l.OnVideoDisabled(et)
	}
}

func (d *Dispatcher) OnAudioDisabled(et EventTime) {
	for _, l := range d.listeners {
		l.OnAudioDisabled(et)
	}
}

func (d *Dispatcher) OnDroppedVideoFrames(et EventTime, count int, elapsed time.Duration) {
	for _, l := range d.listeners {
		l.OnDroppedVideoFrames(et, count, elapsed)
	}
}

func (d *Dispatcher) OnSurfaceSizeChanged(et EventTime, size Size) {
	for _, l := range d.listeners {
		l.OnSurfaceSizeChanged(et, size)
	}
}

func (d *Dispatcher) OnRenderedFirstFrame(et EventTime) {
	for _, l := range d.listeners {
		l.OnRenderedFirstFrame(et)
	}
}

func (d *Dispatcher) OnAudioPositionAdvancing(et EventTime) {
	for _, l := range d.listeners {
		l.OnAudioPositionAdvancing(et)
	}
}
