// Package qos aggregates quality-of-experience metrics per playback
// session and publishes a snapshot when a session first becomes ready.
package qos

import (
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
	"github.com/randomizedcoder/go-playback-analytics/internal/playtime"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
	"github.com/randomizedcoder/go-playback-analytics/internal/stall"
)

// Listener receives published snapshots.
type Listener interface {
	// OnMetricSessionReady is called once per session, when its time to
	// ready is first known and the session is still current.
	OnMetricSessionReady(m PlaybackMetrics)

	// OnMetricSessionEnded carries the final snapshot of a session that
	// is being destroyed, whether or not it ever became ready.
	OnMetricSessionEnded(m PlaybackMetrics)
}

// NopListener implements Listener with no-op methods.
type NopListener struct{}

var _ Listener = NopListener{}

func (NopListener) OnMetricSessionReady(PlaybackMetrics) {}
func (NopListener) OnMetricSessionEnded(PlaybackMetrics) {}

// Collector routes player notifications to the SessionMetrics of the
// session they belong to.
//
// It must be registered on the player after the session.Manager and the
// stall.Detector it was built with, so sessions exist and stall edges are
// known by the time the collector sees an event.
//
// Not safe for concurrent use.
type Collector struct {
	player.NopListener

	manager *session.Manager
	clock   playtime.Clock
	logger  *slog.Logger

	metrics map[player.PeriodUID]*SessionMetrics

	// Player-wide state
	surfaceSize   player.Size
	playbackState player.State
	isPlaying     bool

	listeners []Listener
}

var (
	_ player.Listener  = (*Collector)(nil)
	_ session.Listener = (*Collector)(nil)
	_ stall.Listener   = (*Collector)(nil)
)

// NewCollector creates a collector and subscribes it to manager and
// detector. A nil clock uses playtime.SystemClock; a nil logger discards.
func NewCollector(manager *session.Manager, detector *stall.Detector, clock playtime.Clock, logger *slog.Logger) *Collector {
	if clock == nil {
		clock = playtime.SystemClock()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Collector{
		manager:       manager,
		clock:         clock,
		logger:        logger,
		metrics:       make(map[player.PeriodUID]*SessionMetrics),
		playbackState: player.StateIdle,
	}
	manager.AddListener(c)
	if detector != nil {
		detector.AddListener(c)
	}
	return c
}

// AddListener registers l. Listeners are notified in registration order.
func (c *Collector) AddListener(l Listener) {
	if l != nil {
		c.listeners = append(c.listeners, l)
	}
}

// RemoveListener unregisters the first occurrence of l.
func (c *Collector) RemoveListener(l Listener) {
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// CurrentMetrics returns a snapshot of the current session, or nil when
// there is none.
func (c *Collector) CurrentMetrics() *PlaybackMetrics {
	return c.snapshotOf(c.manager.CurrentSession())
}

// MetricsForSession returns a snapshot of the live session with the given
// id, or nil.
func (c *Collector) MetricsForSession(sessionID string) *PlaybackMetrics {
	return c.snapshotOf(c.manager.SessionByID(sessionID))
}

func (c *Collector) snapshotOf(s *session.Session) *PlaybackMetrics {
	if s == nil {
		return nil
	}
	m, ok := c.metrics[s.PeriodUID]
	if !ok {
		return nil
	}
	snap := m.Snapshot(s.SessionID, c.surfaceSize)
	return &snap
}

// ============================================================================
// session.Listener
// ============================================================================

func (c *Collector) OnSessionCreated(s *session.Session) {
	uid := s.PeriodUID
	c.metrics[uid] = NewSessionMetrics(c.clock, func(m *SessionMetrics) {
		c.onSessionReady(uid, m)
	})
}

// OnCurrentSessionChanged suspends the timers of the session that lost
// the current slot. Playback carries over to the new current session, since
// the player reports no is-playing edge on an item transition.
func (c *Collector) OnCurrentSessionChanged(prev, next *session.SessionInfo) {
	if prev != nil {
		if m, ok := c.metrics[prev.Session.PeriodUID]; ok {
			m.Suspend()
		}
	}
	if next != nil && c.isPlaying {
		if m, ok := c.metrics[next.Session.PeriodUID]; ok {
			m.SetIsPlaying(true)
		}
	}
}

func (c *Collector) OnSessionDestroyed(s *session.Session) {
	m, ok := c.metrics[s.PeriodUID]
	if !ok {
		return
	}
	delete(c.metrics, s.PeriodUID)

	snap := m.Snapshot(s.SessionID, c.surfaceSize)
	for _, l := range c.listeners {
		l.OnMetricSessionEnded(snap)
	}
}

func (c *Collector) onSessionReady(uid player.PeriodUID, m *SessionMetrics) {
	current := c.manager.CurrentSession()
	if current == nil || current.PeriodUID != uid {
		c.logger.Debug("session_ready_not_current", "period_uid", string(uid))
		return
	}

	snap := m.Snapshot(current.SessionID, c.surfaceSize)
	c.logger.Debug("session_ready",
		"session_id", snap.SessionID,
		"time_to_ready", durationOrZero(snap.LoadDuration.TimeToReady),
	)
	for _, l := range c.listeners {
		l.OnMetricSessionReady(snap)
	}
}

func durationOrZero(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}

// ============================================================================
// stall.Listener
// ============================================================================

// OnStallChanged applies a stall edge to the current session.
func (c *Collector) OnStallChanged(isStall bool) {
	s := c.manager.CurrentSession()
	if s == nil {
		return
	}
	if m, ok := c.metrics[s.PeriodUID]; ok {
		m.SetIsStall(isStall)
	}
}

// ============================================================================
// player.Listener
// ============================================================================

// metricsFor resolves the SessionMetrics an event belongs to. Events with
// no timeline or no live session yield nil and are dropped.
func (c *Collector) metricsFor(et player.EventTime) *SessionMetrics {
	uid, ok := et.PeriodUID()
	if !ok {
		return nil
	}
	return c.metrics[uid]
}

func (c *Collector) OnPlaybackStateChanged(et player.EventTime, state player.State) {
	c.playbackState = state
	if m := c.metricsFor(et); m != nil {
		m.SetPlaybackState(state)
	}
}

func (c *Collector) OnIsPlayingChanged(et player.EventTime, playing bool) {
	c.isPlaying = playing
	if m := c.metricsFor(et); m != nil {
		m.SetIsPlaying(playing)
	}
}

func (c *Collector) OnPlayerReleased(player.EventTime) {
	c.playbackState = player.StateIdle
	c.isPlaying = false
}

func (c *Collector) OnLoadStarted(et player.EventTime, info player.LoadEventInfo) {
	if m := c.metricsFor(et); m != nil {
		m.SetLoadStarted(info)
	}
}

func (c *Collector) OnLoadCompleted(et player.EventTime, info player.LoadEventInfo) {
	if m := c.metricsFor(et); m != nil {
		m.SetLoadCompleted(info)
	}
}

func (c *Collector) OnLoadError(et player.EventTime, info player.LoadEventInfo, _ error) {
	if m := c.metricsFor(et); m != nil {
		m.SetLoadError(info)
	}
}

func (c *Collector) OnBandwidthEstimate(et player.EventTime, loadTime time.Duration, bytesLoaded, bitrateEstimate int64) {
	if m := c.metricsFor(et); m != nil {
		m.SetBandwidthEstimate(loadTime, bytesLoaded, bitrateEstimate)
	}
}

func (c *Collector) OnDrmSessionAcquired(et player.EventTime) {
	if m := c.metricsFor(et); m != nil {
		m.SetDrmSessionAcquired()
	}
}

func (c *Collector) OnDrmKeysLoaded(et player.EventTime) {
	if m := c.metricsFor(et); m != nil {
		m.SetDrmKeyLoaded()
	}
}

func (c *Collector) OnDrmKeysRestored(et player.EventTime) {
	if m := c.metricsFor(et); m != nil {
		m.SetDrmKeyLoaded()
	}
}

func (c *Collector) OnVideoInputFormatChanged(et player.EventTime, format player.Format) {
	if m := c.metricsFor(et); m != nil {
		m.SetVideoFormat(&format)
	}
}

func (c *Collector) OnAudioInputFormatChanged(et player.EventTime, format player.Format) {
	if m := c.metricsFor(et); m != nil {
		m.SetAudioFormat(&format)
	}
}

// OnVideoDisabled clears the video format, except while the player is
// idle or has no timeline: the session is being torn down and keeps its
// last format.
func (c *Collector) OnVideoDisabled(et player.EventTime) {
	if c.playbackState == player.StateIdle || et.Timeline.IsEmpty() {
		return
	}
	if m := c.metricsFor(et); m != nil {
		m.SetVideoFormat(nil)
	}
}

func (c *Collector) OnAudioDisabled(et player.EventTime) {
	if c.playbackState == player.StateIdle || et.Timeline.IsEmpty() {
		return
	}
	if m := c.metricsFor(et); m != nil {
		m.SetAudioFormat(nil)
	}
}

func (c *Collector) OnDroppedVideoFrames(et player.EventTime, count int, _ time.Duration) {
	if m := c.metricsFor(et); m != nil {
		m.AddDroppedFrames(count)
	}
}

// OnSurfaceSizeChanged records the rendering surface size, which belongs
// to the player rather than to a session.
func (c *Collector) OnSurfaceSizeChanged(_ player.EventTime, size player.Size) {
	c.surfaceSize = size
}

func (c *Collector) OnRenderedFirstFrame(et player.EventTime) {
	if m := c.metricsFor(et); m != nil {
		m.SetRenderFirstFrameOrAudioPositionAdvancing()
	}
}

func (c *Collector) OnAudioPositionAdvancing(et player.EventTime) {
	if m := c.metricsFor(et); m != nil {
		m.SetRenderFirstFrameOrAudioPositionAdvancing()
	}
}
