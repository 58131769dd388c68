// Package stats aggregates published playback metrics across sessions.
//
// This file implements Aggregator, the thread-safe sink the replay loop
// publishes into and the dashboard, HTTP server and exit summary read
// from:
// - Session lifecycle counts
// - Time to ready percentiles (T-Digest)
// - Stall, buffering and playing totals of ended sessions
// - The latest snapshot of every live session
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
	"github.com/randomizedcoder/go-playback-analytics/internal/timeseries"
)

// DefaultCompression is the T-Digest compression used when none is given.
const DefaultCompression = 100

// AggregatedStats is a point-in-time view across all sessions.
//
// Values are computed at the time of the Aggregate() call and are safe to
// use after it returns.
type AggregatedStats struct {
	Timestamp time.Time

	// Session lifecycle
	SessionsCreated   int64
	SessionsReady     int64
	SessionsEnded     int64
	SessionsDestroyed int64
	ActiveSessions    int

	// Time to ready across ready sessions
	TimeToReadyP50 time.Duration
	TimeToReadyP95 time.Duration
	TimeToReadyP99 time.Duration
	TimeToReadyMax time.Duration
	TimeToReadyAvg time.Duration

	// Totals of ended sessions
	TotalStalls        int64
	TotalStallTime     time.Duration
	TotalBufferingTime time.Duration
	TotalPlayTime      time.Duration
	TotalBytes         int64
	TotalDroppedFrames int64

	// StallRatio is stall time over stall plus playing time
	StallRatio float64

	// Bytes loaded across all sessions, in event-log time
	Throughput timeseries.ThroughputStats

	// Replay pipeline
	Replay ReplayStats

	// Current is the current session's snapshot, nil when idle
	Current *qos.PlaybackMetrics

	// Live holds the latest snapshot of each live session, oldest first
	Live []qos.PlaybackMetrics
}

// ReplayStats mirrors the replay reader's counters.
type ReplayStats struct {
	LinesRead      int64
	RecordsApplied int64
	UnknownEvents  int64
	Malformed      int64
	Done           bool
}

// Aggregator collects published snapshots.
//
// Thread-safe: all methods can be called concurrently.
type Aggregator struct {
	mu sync.RWMutex

	startTime time.Time

	created   int64
	ready     int64
	ended     int64
	destroyed int64

	ttrDigest *tdigest.TDigest
	ttrCount  int64
	ttrSum    time.Duration
	ttrMax    time.Duration

	stalls        int64
	stallTime     time.Duration
	bufferingTime time.Duration
	playTime      time.Duration
	bytes         int64
	droppedFrames int64

	// Latest snapshot per live session id
	live      map[string]qos.PlaybackMetrics
	liveOrder []string
	current   *qos.PlaybackMetrics

	throughput timeseries.ThroughputStats
	replay     ReplayStats
}

var (
	_ qos.Listener     = (*Aggregator)(nil)
	_ session.Listener = (*Aggregator)(nil)
)

// NewAggregator creates an empty aggregator. compression <= 0 uses
// DefaultCompression.
func NewAggregator(compression float64) *Aggregator {
	if compression <= 0 {
		compression = DefaultCompression
	}
	return &Aggregator{
		startTime: time.Now(),
		ttrDigest: tdigest.NewWithCompression(compression),
		live:      make(map[string]qos.PlaybackMetrics),
	}
}

// --- session.Listener ---

func (a *Aggregator) OnSessionCreated(*session.Session) {
	a.mu.Lock()
	a.created++
	a.mu.Unlock()
}

func (a *Aggregator) OnCurrentSessionChanged(_, _ *session.SessionInfo) {}

func (a *Aggregator) OnSessionDestroyed(*session.Session) {
	a.mu.Lock()
	a.destroyed++
	a.mu.Unlock()
}

// --- qos.Listener ---

// OnMetricSessionReady records time to ready and starts tracking the
// session's snapshot.
func (a *Aggregator) OnMetricSessionReady(m qos.PlaybackMetrics) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ready++
	if ttr := m.LoadDuration.TimeToReady; ttr != nil {
		a.ttrDigest.Add(float64(*ttr), 1)
		a.ttrCount++
		a.ttrSum += *ttr
		if *ttr > a.ttrMax {
			a.ttrMax = *ttr
		}
	}
	a.putLive(m)
}

// OnMetricSessionEnded folds the final figures into the totals and forgets
// the session.
func (a *Aggregator) OnMetricSessionEnded(m qos.PlaybackMetrics) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ended++
	a.stalls += int64(m.StallCount)
	a.stallTime += m.StallDuration
	a.bufferingTime += m.BufferingDuration
	a.playTime += m.PlaybackDuration
	a.bytes += m.TotalBytesLoaded
	a.droppedFrames += int64(m.TotalDroppedFrames)

	delete(a.live, m.SessionID)
	for i, id := range a.liveOrder {
		if id == m.SessionID {
			a.liveOrder = append(a.liveOrder[:i], a.liveOrder[i+1:]...)
			break
		}
	}
	if a.current != nil && a.current.SessionID == m.SessionID {
		a.current = nil
	}
}

// SetCurrent replaces the current session snapshot. nil means no current
// session.
func (a *Aggregator) SetCurrent(m *qos.PlaybackMetrics) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m == nil {
		a.current = nil
		return
	}
	cp := *m
	a.current = &cp
	if _, ok := a.live[m.SessionID]; ok {
		a.live[m.SessionID] = cp
	}
}

// SetReplayStats records the replay reader's progress.
func (a *Aggregator) SetReplayStats(rs ReplayStats) {
	a.mu.Lock()
	a.replay = rs
	a.mu.Unlock()
}

// SetThroughput records the latest load throughput figures.
func (a *Aggregator) SetThroughput(ts timeseries.ThroughputStats) {
	a.mu.Lock()
	a.throughput = ts
	a.mu.Unlock()
}

func (a *Aggregator) putLive(m qos.PlaybackMetrics) {
	if _, ok := a.live[m.SessionID]; !ok {
		a.liveOrder = append(a.liveOrder, m.SessionID)
	}
	a.live[m.SessionID] = m
}

// Snapshot returns the latest snapshot of a live session.
func (a *Aggregator) Snapshot(sessionID string) (qos.PlaybackMetrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.live[sessionID]
	return m, ok
}

// Snapshots returns the latest snapshot of every live session, oldest
// first.
func (a *Aggregator) Snapshots() []qos.PlaybackMetrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.liveSnapshots()
}

func (a *Aggregator) liveSnapshots() []qos.PlaybackMetrics {
	out := make([]qos.PlaybackMetrics, 0, len(a.liveOrder))
	for _, id := range a.liveOrder {
		out = append(out, a.live[id])
	}
	return out
}

// Aggregate computes aggregated statistics across all sessions.
//
// Takes the write lock: querying the digest compresses it in place.
func (a *Aggregator) Aggregate() *AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := &AggregatedStats{
		Timestamp:          time.Now(),
		SessionsCreated:    a.created,
		SessionsReady:      a.ready,
		SessionsEnded:      a.ended,
		SessionsDestroyed:  a.destroyed,
		ActiveSessions:     int(a.created - a.destroyed),
		TimeToReadyMax:     a.ttrMax,
		TotalStalls:        a.stalls,
		TotalStallTime:     a.stallTime,
		TotalBufferingTime: a.bufferingTime,
		TotalPlayTime:      a.playTime,
		TotalBytes:         a.bytes,
		TotalDroppedFrames: a.droppedFrames,
		Throughput:         a.throughput,
		Replay:             a.replay,
		Live:               a.liveSnapshots(),
	}

	// An empty digest reports NaN
	if a.ttrCount > 0 {
		result.TimeToReadyP50 = time.Duration(a.ttrDigest.Quantile(0.50))
		result.TimeToReadyP95 = time.Duration(a.ttrDigest.Quantile(0.95))
		result.TimeToReadyP99 = time.Duration(a.ttrDigest.Quantile(0.99))
		result.TimeToReadyAvg = a.ttrSum / time.Duration(a.ttrCount)
	}

	if denom := a.stallTime + a.playTime; denom > 0 {
		result.StallRatio = float64(a.stallTime) / float64(denom)
	}

	if a.current != nil {
		cp := *a.current
		result.Current = &cp
	}

	return result
}

// StartTime returns when the aggregator was created.
func (a *Aggregator) StartTime() time.Time {
	return a.startTime
}

// Elapsed returns the duration since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration {
	return time.Since(a.startTime)
}
