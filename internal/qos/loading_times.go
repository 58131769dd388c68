package qos

import (
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
	"github.com/randomizedcoder/go-playback-analytics/internal/playtime"
)

type loadingEffect int

const (
	loadingNone loadingEffect = iota
	loadingBufferingStarted
	loadingReady
)

// nextLoadingState computes the LoadingTimes transition from cur to next.
// ready reports whether time to ready was already measured.
func nextLoadingState(cur, next player.State, ready bool) (player.State, loadingEffect) {
	switch {
	case cur == next:
		return cur, loadingNone

	// A rebuffer after the first ready is not a fresh load
	case cur == player.StateReady && next == player.StateBuffering:
		return cur, loadingNone

	case (cur == player.StateIdle || cur == player.StateEnded) && next == player.StateBuffering:
		return next, loadingBufferingStarted

	case cur == player.StateBuffering && next == player.StateReady && !ready:
		return next, loadingReady

	default:
		return next, loadingNone
	}
}

// LoadingTimes measures the time to ready of one session and keeps the
// first observed duration of each load bucket.
//
// Not safe for concurrent use.
type LoadingTimes struct {
	clock   playtime.Clock
	onReady func()

	state          player.State
	bufferingStart time.Duration

	timeToReady *time.Duration
	source      *time.Duration
	manifest    *time.Duration
	asset       *time.Duration
	drm         *time.Duration
}

// NewLoadingTimes creates a tracker in StateIdle. onReady, if non-nil, is
// called once, when time to ready is first measured.
func NewLoadingTimes(clock playtime.Clock, onReady func()) *LoadingTimes {
	if clock == nil {
		clock = playtime.SystemClock()
	}
	return &LoadingTimes{
		clock:   clock,
		onReady: onReady,
		state:   player.StateIdle,
	}
}

// State returns the tracked playback state.
func (lt *LoadingTimes) State() player.State {
	return lt.state
}

// SetState applies a playback state change.
func (lt *LoadingTimes) SetState(state player.State) {
	next, effect := nextLoadingState(lt.state, state, lt.timeToReady != nil)
	lt.state = next

	switch effect {
	case loadingBufferingStarted:
		lt.bufferingStart = lt.clock()
	case loadingReady:
		ttr := lt.clock() - lt.bufferingStart
		if ttr < 0 {
			ttr = 0
		}
		lt.timeToReady = &ttr
		if lt.onReady != nil {
			lt.onReady()
		}
	}
}

// TimeToReady returns the measured time to ready, or nil.
func (lt *LoadingTimes) TimeToReady() *time.Duration { return lt.timeToReady }

func (lt *LoadingTimes) Source() *time.Duration   { return lt.source }
func (lt *LoadingTimes) Manifest() *time.Duration { return lt.manifest }
func (lt *LoadingTimes) Asset() *time.Duration    { return lt.asset }
func (lt *LoadingTimes) DRM() *time.Duration      { return lt.drm }

// SetSource records the media source load duration. Only the first call
// has an effect; the same holds for the other buckets.
func (lt *LoadingTimes) SetSource(d time.Duration)   { setOnce(&lt.source, d) }
func (lt *LoadingTimes) SetManifest(d time.Duration) { setOnce(&lt.manifest, d) }
func (lt *LoadingTimes) SetAsset(d time.Duration)    { setOnce(&lt.asset, d) }
func (lt *LoadingTimes) SetDRM(d time.Duration)      { setOnce(&lt.drm, d) }

func setOnce(dst **time.Duration, d time.Duration) {
	if *dst == nil {
		*dst = &d
	}
}
