package player

import (
	"testing"
	"time"
)

func testTimeline(uids ...PeriodUID) Timeline {
	var tl Timeline
	for _, uid := range uids {
		tl.Periods = append(tl.Periods, Period{UID: uid, MediaItem: MediaItem{ID: string(uid)}})
	}
	return tl
}

func TestTimeline(t *testing.T) {
	tl := testTimeline("p0", "p1", "p2")

	if tl.IsEmpty() {
		t.Error("IsEmpty() = true, want false")
	}
	if got := tl.WindowCount(); got != 3 {
		t.Errorf("WindowCount() = %d, want 3", got)
	}
	if got := tl.IndexOfPeriod("p2"); got != 2 {
		t.Errorf("IndexOfPeriod(p2) = %d, want 2", got)
	}
	if got := tl.IndexOfPeriod("missing"); got != -1 {
		t.Errorf("IndexOfPeriod(missing) = %d, want -1", got)
	}
	if _, ok := tl.PeriodAt(3); ok {
		t.Error("PeriodAt(3) ok = true, want false")
	}
	if _, ok := tl.PeriodAt(-1); ok {
		t.Error("PeriodAt(-1) ok = true, want false")
	}
	if !(Timeline{}).IsEmpty() {
		t.Error("zero Timeline should be empty")
	}
}

func TestEventTime_PeriodUID(t *testing.T) {
	tl := testTimeline("p0", "p1")

	tests := []struct {
		name   string
		et     EventTime
		want   PeriodUID
		wantOK bool
	}{
		{"empty timeline", EventTime{WindowIndex: 0}, "", false},
		{"window", EventTime{Timeline: tl, WindowIndex: 1}, "p1", true},
		{"window out of range", EventTime{Timeline: tl, WindowIndex: 5}, "", false},
		{"media period wins", EventTime{Timeline: tl, WindowIndex: 0, MediaPeriod: "p1"}, "p1", true},
		{"media period needs timeline", EventTime{MediaPeriod: "p1"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.et.PeriodUID()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PeriodUID() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	// CurrentPeriod ignores MediaPeriod
	p, ok := EventTime{Timeline: tl, WindowIndex: 0, MediaPeriod: "p1"}.CurrentPeriod()
	if !ok || p.UID != "p0" {
		t.Errorf("CurrentPeriod() = %q, %v, want p0, true", p.UID, ok)
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StateIdle, StateBuffering, StateReady, StateEnded} {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Errorf("ParseState(%q) = %v, %v, want %v", s.String(), got, ok, s)
		}
	}
	if got, ok := ParseState("READY"); !ok || got != StateReady {
		t.Errorf("ParseState(READY) = %v, %v", got, ok)
	}
	if _, ok := ParseState("paused"); ok {
		t.Error("ParseState(paused) ok = true, want false")
	}
	if got := State(0).String(); got != "unknown" {
		t.Errorf("State(0).String() = %q, want unknown", got)
	}
}

func TestDiscontinuityReason(t *testing.T) {
	tests := []struct {
		name     string
		want     DiscontinuityReason
		wantSeek bool
	}{
		{"auto_transition", DiscontinuityAutoTransition, false},
		{"seek", DiscontinuitySeek, true},
		{"seek_adjustment", DiscontinuitySeekAdjustment, true},
		{"skip", DiscontinuitySkip, false},
		{"remove", DiscontinuityRemove, false},
		{"internal", DiscontinuityInternal, false},
	}

	for _, tt := range tests {
		got, ok := ParseDiscontinuityReason(tt.name)
		if !ok || got != tt.want {
			t.Errorf("ParseDiscontinuityReason(%q) = %v, %v, want %v", tt.name, got, ok, tt.want)
		}
		if got.IsSeek() != tt.wantSeek {
			t.Errorf("%v.IsSeek() = %v, want %v", got, got.IsSeek(), tt.wantSeek)
		}
	}
	if _, ok := ParseDiscontinuityReason("teleport"); ok {
		t.Error("ParseDiscontinuityReason(teleport) ok = true, want false")
	}
}

func TestParseTransitionReason(t *testing.T) {
	got, ok := ParseTransitionReason("playlist_changed")
	if !ok || got != TransitionPlaylistChanged {
		t.Errorf("ParseTransitionReason(playlist_changed) = %v, %v", got, ok)
	}
	if _, ok := ParseTransitionReason("bogus"); ok {
		t.Error("ParseTransitionReason(bogus) ok = true, want false")
	}
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		name string
		want DataType
	}{
		{"media", DataTypeMedia},
		{"manifest", DataTypeManifest},
		{"DRM", DataTypeDRM},
		{"asset", DataTypeCustomAsset},
		{"thumbnail", DataTypeUnknown},
	}

	for _, tt := range tests {
		if got := ParseDataType(tt.name); got != tt.want {
			t.Errorf("ParseDataType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// =============================================================================
// Dispatcher
// =============================================================================

type orderRecorder struct {
	NopListener
	name string
	log  *[]string
}

func (r *orderRecorder) OnPlaybackStateChanged(_ EventTime, s State) {
	*r.log = append(*r.log, r.name+":"+s.String())
}

func (r *orderRecorder) OnDroppedVideoFrames(_ EventTime, count int, _ time.Duration) {
	*r.log = append(*r.log, r.name+":dropped")
}

func TestDispatcher_Order(t *testing.T) {
	var log []string
	first := &orderRecorder{name: "first", log: &log}
	second := &orderRecorder{name: "second", log: &log}
	third := &orderRecorder{name: "third", log: &log}

	d := NewDispatcher(first, nil, second)
	d.AddListener(third)
	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}

	d.OnPlaybackStateChanged(EventTime{}, StateReady)
	d.OnDroppedVideoFrames(EventTime{}, 3, time.Second)

	want := []string{
		"first:ready", "second:ready", "third:ready",
		"first:dropped", "second:dropped", "third:dropped",
	}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestDispatcher_RemoveListener(t *testing.T) {
	var log []string
	a := &orderRecorder{name: "a", log: &log}
	b := &orderRecorder{name: "b", log: &log}

	d := NewDispatcher(a, b)
	d.RemoveListener(a)
	d.RemoveListener(&orderRecorder{name: "stranger", log: &log})

	d.OnPlaybackStateChanged(EventTime{}, StateIdle)

	if len(log) != 1 || log[0] != "b:idle" {
		t.Errorf("log = %v, want [b:idle]", log)
	}
}
