package qos

import (
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
	"github.com/randomizedcoder/go-playback-analytics/internal/playtime"
)

// SessionMetrics aggregates the QoE figures of one session.
//
// DRM acquisitions nest: the DRM timer runs from the first outstanding
// acquisition until the last one completes, and while any is pending the
// ready signal is held back from LoadingTimes. It is released, with the
// latest playback state, once all keys are loaded.
//
// Not safe for concurrent use.
type SessionMetrics struct {
	loadingTimes *LoadingTimes

	playing    *playtime.Counter
	stall      *playtime.Counter
	buffering  *playtime.Counter
	drmLoading *playtime.Counter

	drmPending  int
	drmAcquired bool

	// State to forward to LoadingTimes once DRM is no longer pending
	loadingState player.State

	stalled    bool
	stallCount int

	bandwidth        int64
	totalLoadTime    time.Duration
	totalBytesLoaded int64
	url              string

	videoFormat   *player.Format
	audioFormat   *player.Format
	droppedFrames int
}

// NewSessionMetrics creates an empty aggregator. onReady, if non-nil, is
// called once when the session first becomes ready.
func NewSessionMetrics(clock playtime.Clock, onReady func(*SessionMetrics)) *SessionMetrics {
	if clock == nil {
		clock = playtime.SystemClock()
	}
	m := &SessionMetrics{
		playing:      playtime.NewCounter(clock),
		stall:        playtime.NewCounter(clock),
		buffering:    playtime.NewCounter(clock),
		drmLoading:   playtime.NewCounter(clock),
		loadingState: player.StateIdle,
	}
	m.loadingTimes = NewLoadingTimes(clock, func() {
		if onReady != nil {
			onReady(m)
		}
	})
	return m
}

// LoadingTimes exposes the session's loading tracker.
func (m *SessionMetrics) LoadingTimes() *LoadingTimes {
	return m.loadingTimes
}

// --- DRM ---

// SetDrmSessionAcquired marks one more key acquisition in flight.
func (m *SessionMetrics) SetDrmSessionAcquired() {
	m.drmAcquired = true
	m.drmPending++
	if m.drmPending == 1 {
		m.drmLoading.Play()
	}
}

// SetDrmKeyLoaded completes one acquisition. Ignored when none is pending.
func (m *SessionMetrics) SetDrmKeyLoaded() {
	if m.drmPending == 0 {
		return
	}
	m.drmPending--
	if m.drmPending == 0 {
		m.drmLoading.Pause()
		m.loadingTimes.SetState(m.loadingState)
	}
}

// DrmPending returns the number of outstanding acquisitions.
func (m *SessionMetrics) DrmPending() int {
	return m.drmPending
}

// --- Playback ---

// SetIsStall applies a stall edge.
func (m *SessionMetrics) SetIsStall(isStall bool) {
	switch {
	case isStall && !m.stalled:
		m.stallCount++
		m.stall.Play()
	case !isStall && m.stalled:
		m.stall.Pause()
	}
	m.stalled = isStall
}

// SetIsPlaying starts or stops the playing timer.
func (m *SessionMetrics) SetIsPlaying(playing bool) {
	if playing {
		m.playing.Play()
	} else {
		m.playing.Pause()
	}
}

// Suspend closes the open playing, stall and buffering intervals. It is
// applied when the session stops being current; the stall count is kept.
func (m *SessionMetrics) Suspend() {
	m.SetIsStall(false)
	m.SetIsPlaying(false)
	m.buffering.Pause()
}

// SetPlaybackState runs the buffering timer while buffering and forwards
// state to LoadingTimes unless DRM is pending.
func (m *SessionMetrics) SetPlaybackState(state player.State) {
	if state == player.StateBuffering {
		m.buffering.Play()
	} else {
		m.buffering.Pause()
	}
	m.forwardLoadingState(state)
}

// SetRenderFirstFrameOrAudioPositionAdvancing signals that output is
// flowing, which counts as ready even without a READY state change.
func (m *SessionMetrics) SetRenderFirstFrameOrAudioPositionAdvancing() {
	m.forwardLoadingState(player.StateReady)
}

func (m *SessionMetrics) forwardLoadingState(state player.State) {
	m.loadingState = state
	if m.drmPending > 0 {
		return
	}
	m.loadingTimes.SetState(state)
}

// --- Loading ---

// SetBandwidthEstimate replaces the bandwidth estimate and accumulates the
// load totals.
func (m *SessionMetrics) SetBandwidthEstimate(loadTime time.Duration, bytesLoaded, bitrateEstimate int64) {
	m.bandwidth = bitrateEstimate
	m.totalLoadTime += loadTime
	m.totalBytesLoaded += bytesLoaded
}

func (m *SessionMetrics) SetLoadStarted(info player.LoadEventInfo) {
	m.url = info.URI
}

// SetLoadCompleted records the URL and files the load duration under its
// bucket.
func (m *SessionMetrics) SetLoadCompleted(info player.LoadEventInfo) {
	m.url = info.URI

	switch info.DataType {
	case player.DataTypeManifest:
		m.loadingTimes.SetManifest(info.LoadDuration)
	case player.DataTypeMedia:
		m.loadingTimes.SetSource(info.LoadDuration)
	case player.DataTypeCustomAsset:
		m.loadingTimes.SetAsset(info.LoadDuration)
	case player.DataTypeDRM:
		m.loadingTimes.SetDRM(info.LoadDuration)
	}
}

func (m *SessionMetrics) SetLoadError(info player.LoadEventInfo) {
	m.url = info.URI
}

// --- Tracks and rendering ---

func (m *SessionMetrics) SetVideoFormat(f *player.Format) { m.videoFormat = cloneFormat(f) }
func (m *SessionMetrics) SetAudioFormat(f *player.Format) { m.audioFormat = cloneFormat(f) }

// AddDroppedFrames accumulates dropped video frames.
func (m *SessionMetrics) AddDroppedFrames(count int) {
	if count > 0 {
		m.droppedFrames += count
	}
}

// TotalBitrate is the sum of the current video and audio bitrates. Missing
// or unknown bitrates count as zero.
func (m *SessionMetrics) TotalBitrate() int {
	return bitrateOf(m.videoFormat) + bitrateOf(m.audioFormat)
}

func bitrateOf(f *player.Format) int {
	if f == nil || f.Bitrate <= 0 {
		return 0
	}
	return f.Bitrate
}

func (m *SessionMetrics) StallCount() int { return m.stallCount }

// Snapshot returns an independent copy of the current figures.
func (m *SessionMetrics) Snapshot(sessionID string, surface player.Size) PlaybackMetrics {
	lt := m.loadingTimes

	drm := cloneDuration(lt.DRM())
	if drm == nil && m.drmAcquired {
		d := m.drmLoading.TotalPlayTime()
		drm = &d
	}

	return PlaybackMetrics{
		SessionID:         sessionID,
		Bandwidth:         m.bandwidth,
		IndicatedBitrate:  m.TotalBitrate(),
		PlaybackDuration:  m.playing.TotalPlayTime(),
		StallDuration:     m.stall.TotalPlayTime(),
		BufferingDuration: m.buffering.TotalPlayTime(),
		StallCount:        m.stallCount,
		LoadDuration: LoadDuration{
			Source:      cloneDuration(lt.Source()),
			Manifest:    cloneDuration(lt.Manifest()),
			Asset:       cloneDuration(lt.Asset()),
			DRM:         drm,
			TimeToReady: cloneDuration(lt.TimeToReady()),
		},
		VideoFormat:        cloneFormat(m.videoFormat),
		AudioFormat:        cloneFormat(m.audioFormat),
		TotalBytesLoaded:   m.totalBytesLoaded,
		TotalLoadTime:      m.totalLoadTime,
		URL:                m.url,
		SurfaceSize:        surface,
		TotalDroppedFrames: m.droppedFrames,
	}
}
