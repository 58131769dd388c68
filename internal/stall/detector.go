// Package stall turns raw player notifications into a single "is stalled"
// signal.
//
// A stall is buffering that interrupts playback which was already ready.
// Buffering that follows a seek is expected and is not reported, nor is the
// initial buffering of a new item.
package stall

import (
	"log/slog"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// State of the stall state machine.
type State int

const (
	StateIdle State = iota
	StateReady
	StateStalled
	StateSeeking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateStalled:
		return "stalled"
	case StateSeeking:
		return "seeking"
	default:
		return "unknown"
	}
}

// EventKind identifies an input of the state machine.
type EventKind int

const (
	EventMediaItemTransition EventKind = iota
	EventPositionDiscontinuity
	EventLoadError
	EventPlaybackState
	EventPlayerError
	EventPlayerReleased
)

// Event is one input of the state machine. Only the fields relevant to
// Kind are read.
type Event struct {
	Kind EventKind

	// EventMediaItemTransition
	TransitionReason player.TransitionReason

	// EventPositionDiscontinuity
	DiscontinuityReason player.DiscontinuityReason
	SameMediaItem       bool

	// EventPlaybackState
	PlaybackState player.State
}

// Effect is the side effect a transition asks the caller to apply.
type Effect int

const (
	EffectNone Effect = iota
	EffectStallStarted
	EffectStallEnded
)

// transition computes the next state for ev. It has no side effects.
func transition(cur State, ev Event) (State, Effect) {
	next := cur

	switch ev.Kind {
	case EventMediaItemTransition:
		if ev.TransitionReason != player.TransitionRepeat {
			next = StateIdle
		}

	case EventPlayerError, EventPlayerReleased:
		next = StateIdle

	case EventPositionDiscontinuity:
		if ev.DiscontinuityReason.IsSeek() && ev.SameMediaItem && cur != StateStalled {
			next = StateSeeking
		}

	case EventLoadError:
		if cur == StateReady || cur == StateSeeking {
			next = StateStalled
		}

	case EventPlaybackState:
		switch ev.PlaybackState {
		case player.StateReady:
			next = StateReady
		case player.StateBuffering:
			if cur == StateReady {
				next = StateStalled
			}
		default:
			next = StateIdle
		}
	}

	return next, edgeEffect(cur, next)
}

func edgeEffect(cur, next State) Effect {
	switch {
	case cur == next:
		return EffectNone
	case next == StateStalled:
		return EffectStallStarted
	case cur == StateStalled:
		return EffectStallEnded
	default:
		return EffectNone
	}
}

// Listener is notified on stall edges.
type Listener interface {
	OnStallChanged(isStall bool)
}

// Detector drives the state machine from player notifications.
//
// Not safe for concurrent use.
type Detector struct {
	player.NopListener

	state     State
	listeners []Listener
	logger    *slog.Logger
}

var _ player.Listener = (*Detector)(nil)

// NewDetector creates a detector in StateIdle. A nil logger discards.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{
		state:  StateIdle,
		logger: logger,
	}
}

// AddListener registers l. Listeners are notified in registration order.
func (d *Detector) AddListener(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

// RemoveListener unregisters the first occurrence of l.
func (d *Detector) RemoveListener(l Listener) {
	for i, existing := range d.listeners {
		if existing == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// IsStalled reports whether the detector is in StateStalled.
func (d *Detector) IsStalled() bool {
	return d.state == StateStalled
}

// Handle feeds one event to the state machine and applies its effect.
func (d *Detector) Handle(ev Event) {
	next, effect := transition(d.state, ev)
	if next != d.state {
		d.logger.Debug("stall_state_changed", "from", d.state.String(), "to", next.String())
	}
	d.state = next

	switch effect {
	case EffectStallStarted:
		d.notify(true)
	case EffectStallEnded:
		d.notify(false)
	}
}

func (d *Detector) notify(isStall bool) {
	for _, l := range d.listeners {
		l.OnStallChanged(isStall)
	}
}

// --- player.Listener ---

func (d *Detector) OnMediaItemTransition(_ player.EventTime, _ *player.MediaItem, reason player.TransitionReason) {
	d.Handle(Event{Kind: EventMediaItemTransition, TransitionReason: reason})
}

func (d *Detector) OnPositionDiscontinuity(_ player.EventTime, oldPos, newPos player.PositionInfo, reason player.DiscontinuityReason) {
	d.Handle(Event{
		Kind:                EventPositionDiscontinuity,
		DiscontinuityReason: reason,
		SameMediaItem:       oldPos.MediaItemIndex == newPos.MediaItemIndex,
	})
}

func (d *Detector) OnLoadError(player.EventTime, player.LoadEventInfo, error) {
	d.Handle(Event{Kind: EventLoadError})
}

func (d *Detector) OnPlaybackStateChanged(_ player.EventTime, state player.State) {
	d.Handle(Event{Kind: EventPlaybackState, PlaybackState: state})
}

func (d *Detector) OnPlayerError(player.EventTime, error) {
	d.Handle(Event{Kind: EventPlayerError})
}

func (d *Detector) OnPlayerReleased(player.EventTime) {
	d.Handle(Event{Kind: EventPlayerReleased})
}
