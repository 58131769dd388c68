package playtime

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Duration
}

func (f *fakeClock) Now() time.Duration      { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now += d }

func newTestCounter() (*Counter, *fakeClock) {
	clk := &fakeClock{}
	return NewCounter(clk.Now), clk
}

func TestCounter_InitiallyZero(t *testing.T) {
	c, clk := newTestCounter()
	clk.Advance(time.Second)

	if got := c.TotalPlayTime(); got != 0 {
		t.Errorf("TotalPlayTime() = %v, want 0", got)
	}
	if c.IsActive() {
		t.Error("new counter should not be active")
	}
}

func TestCounter_PlayPause(t *testing.T) {
	c, clk := newTestCounter()

	c.Play()
	clk.Advance(3 * time.Second)
	c.Pause()
	clk.Advance(10 * time.Second) // paused, not counted
	c.Play()
	clk.Advance(2 * time.Second)
	c.Pause()

	if got, want := c.TotalPlayTime(), 5*time.Second; got != want {
		t.Errorf("TotalPlayTime() = %v, want %v", got, want)
	}
}

func TestCounter_ReadWhileActive(t *testing.T) {
	c, clk := newTestCounter()

	c.Play()
	clk.Advance(4 * time.Second)

	if got, want := c.TotalPlayTime(), 4*time.Second; got != want {
		t.Errorf("TotalPlayTime() while active = %v, want %v", got, want)
	}

	clk.Advance(time.Second)
	if got, want := c.TotalPlayTime(), 5*time.Second; got != want {
		t.Errorf("TotalPlayTime() after more time = %v, want %v", got, want)
	}
}

func TestCounter_DoublePlayDoesNotDoubleCount(t *testing.T) {
	c, clk := newTestCounter()

	c.Play()
	clk.Advance(2 * time.Second)
	c.Play()
	clk.Advance(3 * time.Second)
	c.Pause()

	if got, want := c.TotalPlayTime(), 5*time.Second; got != want {
		t.Errorf("TotalPlayTime() = %v, want %v", got, want)
	}
}

func TestCounter_PauseWhenInactiveIsNoop(t *testing.T) {
	c, clk := newTestCounter()

	c.Pause()
	clk.Advance(time.Second)
	c.Pause()

	if got := c.TotalPlayTime(); got != 0 {
		t.Errorf("TotalPlayTime() = %v, want 0", got)
	}
}

func TestCounter_Reset(t *testing.T) {
	c, clk := newTestCounter()

	c.Play()
	clk.Advance(7 * time.Second)
	c.Reset()

	if got := c.TotalPlayTime(); got != 0 {
		t.Errorf("TotalPlayTime() after Reset = %v, want 0", got)
	}
	if c.IsActive() {
		t.Error("counter should be inactive after Reset")
	}

	clk.Advance(time.Second)
	if got := c.TotalPlayTime(); got != 0 {
		t.Errorf("TotalPlayTime() after Reset and time passing = %v, want 0", got)
	}
}

func TestCounter_ClockBackwards(t *testing.T) {
	clk := &fakeClock{now: 10 * time.Second}
	c := NewCounter(clk.Now)

	c.Play()
	clk.now = 5 * time.Second
	c.Pause()

	if got := c.TotalPlayTime(); got != 0 {
		t.Errorf("TotalPlayTime() = %v, want 0 when clock goes backwards", got)
	}
}

func TestSystemClock_Monotonic(t *testing.T) {
	clk := SystemClock()
	a := clk()
	b := clk()
	if b < a {
		t.Errorf("SystemClock went backwards: %v then %v", a, b)
	}
}
