package stall

import (
	"errors"
	"testing"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// recorder captures stall notifications in order.
type recorder struct {
	changes []bool
}

func (r *recorder) OnStallChanged(isStall bool) {
	r.changes = append(r.changes, isStall)
}

func newTestDetector() (*Detector, *recorder) {
	d := NewDetector(nil)
	r := &recorder{}
	d.AddListener(r)
	return d, r
}

func stateEvent(s player.State) Event {
	return Event{Kind: EventPlaybackState, PlaybackState: s}
}

func seekEvent(sameItem bool) Event {
	return Event{
		Kind:                EventPositionDiscontinuity,
		DiscontinuityReason: player.DiscontinuitySeek,
		SameMediaItem:       sameItem,
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		cur        State
		ev         Event
		wantState  State
		wantEffect Effect
	}{
		{"ready from idle", StateIdle, stateEvent(player.StateReady), StateReady, EffectNone},
		{"initial buffering is not a stall", StateIdle, stateEvent(player.StateBuffering), StateIdle, EffectNone},
		{"buffering while ready stalls", StateReady, stateEvent(player.StateBuffering), StateStalled, EffectStallStarted},
		{"buffering while seeking keeps seeking", StateSeeking, stateEvent(player.StateBuffering), StateSeeking, EffectNone},
		{"buffering while stalled keeps stalled", StateStalled, stateEvent(player.StateBuffering), StateStalled, EffectNone},
		{"ready ends stall", StateStalled, stateEvent(player.StateReady), StateReady, EffectStallEnded},
		{"ended resets", StateReady, stateEvent(player.StateEnded), StateIdle, EffectNone},
		{"ended while stalled ends stall", StateStalled, stateEvent(player.StateEnded), StateIdle, EffectStallEnded},
		{"idle resets", StateSeeking, stateEvent(player.StateIdle), StateIdle, EffectNone},

		{"seek from ready", StateReady, seekEvent(true), StateSeeking, EffectNone},
		{"seek to other item ignored", StateReady, seekEvent(false), StateReady, EffectNone},
		{"seek while stalled ignored", StateStalled, seekEvent(true), StateStalled, EffectNone},
		{
			"auto transition discontinuity ignored",
			StateReady,
			Event{Kind: EventPositionDiscontinuity, DiscontinuityReason: player.DiscontinuityAutoTransition, SameMediaItem: true},
			StateReady,
			EffectNone,
		},
		{
			"seek adjustment counts as seek",
			StateReady,
			Event{Kind: EventPositionDiscontinuity, DiscontinuityReason: player.DiscontinuitySeekAdjustment, SameMediaItem: true},
			StateSeeking,
			EffectNone,
		},

		{"load error while ready", StateReady, Event{Kind: EventLoadError}, StateStalled, EffectStallStarted},
		{"load error while seeking", StateSeeking, Event{Kind: EventLoadError}, StateStalled, EffectStallStarted},
		{"load error while idle", StateIdle, Event{Kind: EventLoadError}, StateIdle, EffectNone},

		{"item transition resets", StateStalled, Event{Kind: EventMediaItemTransition, TransitionReason: player.TransitionAuto}, StateIdle, EffectStallEnded},
		{"repeat transition keeps state", StateReady, Event{Kind: EventMediaItemTransition, TransitionReason: player.TransitionRepeat}, StateReady, EffectNone},
		{"player error resets", StateStalled, Event{Kind: EventPlayerError}, StateIdle, EffectStallEnded},
		{"player released resets", StateReady, Event{Kind: EventPlayerReleased}, StateIdle, EffectNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotState, gotEffect := transition(tt.cur, tt.ev)
			if gotState != tt.wantState {
				t.Errorf("state = %v, want %v", gotState, tt.wantState)
			}
			if gotEffect != tt.wantEffect {
				t.Errorf("effect = %v, want %v", gotEffect, tt.wantEffect)
			}
		})
	}
}

func TestDetector_StallAndRecover(t *testing.T) {
	d, r := newTestDetector()
	et := player.EventTime{}

	d.OnPlaybackStateChanged(et, player.StateBuffering)
	d.OnPlaybackStateChanged(et, player.StateReady)
	d.OnPlaybackStateChanged(et, player.StateBuffering)

	if !d.IsStalled() {
		t.Fatal("expected stalled after ready -> buffering")
	}

	d.OnPlaybackStateChanged(et, player.StateReady)

	want := []bool{true, false}
	if len(r.changes) != len(want) {
		t.Fatalf("notifications = %v, want %v", r.changes, want)
	}
	for i := range want {
		if r.changes[i] != want[i] {
			t.Errorf("notification[%d] = %v, want %v", i, r.changes[i], want[i])
		}
	}
}

func TestDetector_SeekIsNotStall(t *testing.T) {
	d, r := newTestDetector()
	et := player.EventTime{}
	pos := player.PositionInfo{MediaItemIndex: 0}

	d.OnPlaybackStateChanged(et, player.StateReady)
	d.OnPositionDiscontinuity(et, pos, pos, player.DiscontinuitySeek)
	d.OnPlaybackStateChanged(et, player.StateBuffering)
	d.OnPlaybackStateChanged(et, player.StateReady)

	if len(r.changes) != 0 {
		t.Errorf("seek buffering produced notifications %v, want none", r.changes)
	}
	if d.State() != StateReady {
		t.Errorf("State() = %v, want ready", d.State())
	}
}

func TestDetector_NotifiesOnlyOnEdges(t *testing.T) {
	d, r := newTestDetector()
	et := player.EventTime{}

	d.OnPlaybackStateChanged(et, player.StateReady)
	d.OnPlaybackStateChanged(et, player.StateBuffering)
	d.OnPlaybackStateChanged(et, player.StateBuffering)
	d.OnLoadError(et, player.LoadEventInfo{}, errors.New("boom"))

	if len(r.changes) != 1 || !r.changes[0] {
		t.Errorf("notifications = %v, want [true]", r.changes)
	}
}

func TestDetector_PlayerErrorClearsStall(t *testing.T) {
	d, r := newTestDetector()
	et := player.EventTime{}

	d.OnPlaybackStateChanged(et, player.StateReady)
	d.OnPlaybackStateChanged(et, player.StateBuffering)
	d.OnPlayerError(et, &player.PlaybackError{Code: "io", Message: "timeout"})

	if d.State() != StateIdle {
		t.Errorf("State() = %v, want idle", d.State())
	}
	if len(r.changes) != 2 || r.changes[1] {
		t.Errorf("notifications = %v, want [true false]", r.changes)
	}
}

func TestDetector_RemoveListener(t *testing.T) {
	d, r := newTestDetector()
	d.RemoveListener(r)

	et := player.EventTime{}
	d.OnPlaybackStateChanged(et, player.StateReady)
	d.OnPlaybackStateChanged(et, player.StateBuffering)

	if len(r.changes) != 0 {
		t.Errorf("removed listener received %v", r.changes)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateReady, "ready"},
		{StateStalled, "stalled"},
		{StateSeeking, "seeking"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
