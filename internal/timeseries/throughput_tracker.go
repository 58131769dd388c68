// Package timeseries provides time-windowed tracking of bytes loaded by the
// player.
//
// Time comes from a caller-supplied clock, normally the replay clock, so
// rolling averages are in event-log time, not wall time.
//
// Thread-safe: AddBytes() uses atomic int64, GetStats() acquires read lock.
// Memory: ~10KB for 300 samples (5 minute window at 1 sample/sec).
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringBufferSize is the number of samples to retain (5 minutes at 1 sample/sec)
	ringBufferSize = 300

	// sampleInterval is the minimum spacing of samples taken by SampleIfDue
	sampleInterval = time.Second

	// Window durations for rolling averages
	window1s   = 1 * time.Second
	window30s  = 30 * time.Second
	window60s  = 60 * time.Second
	window300s = 300 * time.Second
)

// Clock returns a monotonic time offset. playtime.Clock and the replay
// driver's Now satisfy it.
type Clock func() time.Duration

// sample represents a point-in-time snapshot of cumulative bytes.
type sample struct {
	at    time.Duration
	bytes int64
}

// ThroughputTracker tracks cumulative bytes loaded and computes rolling
// averages over fixed time windows.
//
// Usage:
//
//	tracker := NewThroughputTracker(driver.Now)
//	tracker.AddBytes(1024)  // per completed load
//	tracker.SampleIfDue()   // after every event
//	stats := tracker.GetStats()
//
// The first sample starts the tracker, so a clock that begins far from
// zero does not dilute the overall average.
type ThroughputTracker struct {
	// totalBytes is the cumulative byte count (atomic for lock-free AddBytes)
	totalBytes atomic.Int64

	// Ring buffer of samples for rolling average calculation
	samples  []sample
	writeIdx int // Next write position in ring buffer
	mu       sync.RWMutex

	started   bool
	startTime time.Duration
	last      time.Duration

	clock Clock
}

// ThroughputStats contains computed rolling averages at a point in time.
type ThroughputStats struct {
	// TotalBytes is the cumulative bytes loaded since start
	TotalBytes int64

	// Rolling averages (bytes per second)
	Avg1s   float64
	Avg30s  float64
	Avg60s  float64
	Avg300s float64

	// AvgOverall is the average throughput since the first sample
	AvgOverall float64
}

// NewThroughputTracker creates a tracker reading time from clock.
func NewThroughputTracker(clock Clock) *ThroughputTracker {
	return &ThroughputTracker{
		samples: make([]sample, 0, ringBufferSize),
		clock:   clock,
	}
}

// AddBytes adds bytes to the cumulative total.
// Thread-safe and lock-free (uses atomic int64).
func (t *ThroughputTracker) AddBytes(n int64) {
	if n > 0 {
		t.totalBytes.Add(n)
	}
}

// RecordSample records the current cumulative bytes at the clock's time.
// Thread-safe (acquires write lock on ring buffer only).
func (t *ThroughputTracker) RecordSample() {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordLocked(now)
}

// SampleIfDue records a sample when at least one second of clock time has
// passed since the last one, or when no sample exists yet. It reports
// whether a sample was taken.
func (t *ThroughputTracker) SampleIfDue() bool {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started && now-t.last < sampleInterval {
		return false
	}
	t.recordLocked(now)
	return true
}

func (t *ThroughputTracker) recordLocked(now time.Duration) {
	currentBytes := t.totalBytes.Load()

	if !t.started {
		// Zero baseline, so bytes added before the first sample count
		t.started = true
		t.startTime = now
		t.samples = append(t.samples, sample{at: now, bytes: 0})
	}
	t.last = now

	newSample := sample{at: now, bytes: currentBytes}

	if len(t.samples) < ringBufferSize {
		// Buffer not yet full - append
		t.samples = append(t.samples, newSample)
	} else {
		// Buffer full - overwrite oldest
		t.samples[t.writeIdx] = newSample
		t.writeIdx = (t.writeIdx + 1) % ringBufferSize
	}
}

// GetStats computes and returns current throughput statistics.
// Thread-safe (acquires read lock).
func (t *ThroughputTracker) GetStats() ThroughputStats {
	now := t.clock()
	currentBytes := t.totalBytes.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := ThroughputStats{
		TotalBytes: currentBytes,
	}
	if !t.started {
		return stats
	}

	// Calculate overall average
	elapsed := (now - t.startTime).Seconds()
	if elapsed > 0 {
		stats.AvgOverall = float64(currentBytes) / elapsed
	}

	stats.Avg1s = t.avgOverWindow(now, currentBytes, window1s)
	stats.Avg30s = t.avgOverWindow(now, currentBytes, window30s)
	stats.Avg60s = t.avgOverWindow(now, currentBytes, window60s)
	stats.Avg300s = t.avgOverWindow(now, currentBytes, window300s)

	return stats
}

// avgOverWindow calculates average bytes/sec over the specified window.
// Must be called with mu held (at least RLock).
func (t *ThroughputTracker) avgOverWindow(now time.Duration, currentBytes int64, window time.Duration) float64 {
	if len(t.samples) == 0 {
		return 0
	}

	target := now - window

	// Find the sample closest to (but not after) target
	var best *sample
	var bestDiff time.Duration = -1

	for i := range t.samples {
		s := &t.samples[i]
		if s.at > target {
			continue // Sample is within the window, skip
		}
		diff := target - s.at
		if bestDiff < 0 || diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}

	// If no sample before target, use the oldest sample we have
	if best == nil {
		best = t.oldestSample()
	}

	bytesTransferred := currentBytes - best.bytes
	actualElapsed := (now - best.at).Seconds()

	if actualElapsed <= 0 {
		return 0 // Avoid division by zero
	}

	return float64(bytesTransferred) / actualElapsed
}

// oldestSample returns the oldest sample in the ring buffer.
// Must be called with mu held and at least one sample present.
func (t *ThroughputTracker) oldestSample() *sample {
	if len(t.samples) < ringBufferSize {
		// Buffer not full yet - oldest is at index 0
		return &t.samples[0]
	}

	// Buffer full - oldest is at writeIdx (next to be overwritten)
	return &t.samples[t.writeIdx]
}

// Reset clears all data. The next sample restarts tracking.
func (t *ThroughputTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalBytes.Store(0)
	t.samples = t.samples[:0]
	t.writeIdx = 0
	t.started = false
	t.startTime = 0
	t.last = 0
}

// SampleCount returns the number of samples in the ring buffer.
func (t *ThroughputTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
