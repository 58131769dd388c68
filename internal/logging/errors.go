package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

const (
	// MaxMessageLength is the maximum length of a recorded error message
	// before truncation.
	MaxMessageLength = 512

	// MaxRecentErrors is the number of errors kept for the exit summary.
	MaxRecentErrors = 100
)

// ErrorLog records player and load errors as they are dispatched.
// It logs each one and keeps the most recent for the exit summary.
// Register it on a player.Dispatcher; reads are safe from any goroutine.
type ErrorLog struct {
	player.NopListener

	logger *slog.Logger

	// Circular buffer of recent errors
	mu     sync.Mutex
	buffer []string
	bufIdx int
	counts map[string]int
}

var _ player.Listener = (*ErrorLog)(nil)

// NewErrorLog creates an error log. A nil logger discards records.
func NewErrorLog(logger *slog.Logger) *ErrorLog {
	if logger == nil {
		logger = Discard()
	}
	return &ErrorLog{
		logger: logger,
		buffer: make([]string, MaxRecentErrors),
		counts: make(map[string]int),
	}
}

// OnPlayerError records a fatal playback error.
func (e *ErrorLog) OnPlayerError(et player.EventTime, err error) {
	code := errorCode(err)
	e.record(slog.LevelError, "player_error", code, err,
		slog.Int64("t_ms", et.Realtime.Milliseconds()),
	)
}

// OnLoadError records a failed load. The engine may retry it.
func (e *ErrorLog) OnLoadError(et player.EventTime, info player.LoadEventInfo, err error) {
	code := errorCode(err)
	e.record(slog.LevelWarn, "load_error", code, err,
		slog.Int64("t_ms", et.Realtime.Milliseconds()),
		slog.String("data_type", info.DataType.String()),
		slog.String("uri", info.URI),
	)
}

func (e *ErrorLog) record(level slog.Level, event, code string, err error, attrs ...slog.Attr) {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	msg = truncate(msg, MaxMessageLength)

	e.mu.Lock()
	e.buffer[e.bufIdx] = fmt.Sprintf("%s %s: %s", event, code, msg)
	e.bufIdx = (e.bufIdx + 1) % MaxRecentErrors
	e.counts[code]++
	e.mu.Unlock()

	attrs = append(attrs, slog.String("code", code), slog.String("error", msg))
	e.logger.LogAttrs(context.Background(), level, event, attrs...)
}

// truncate cuts msg to at most limit bytes on a rune boundary.
func truncate(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "...(truncated)"
}

// errorCode returns the engine's code for err, or "unknown".
func errorCode(err error) string {
	var pe *player.PlaybackError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code
	}
	return "unknown"
}

// RecentErrors returns up to n of the most recent errors, oldest first.
func (e *ErrorLog) RecentErrors(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n > MaxRecentErrors {
		n = MaxRecentErrors
	}

	lines := make([]string, 0, n)

	// Read from circular buffer in order
	for i := 0; i < n; i++ {
		idx := (e.bufIdx - n + i + MaxRecentErrors) % MaxRecentErrors
		if e.buffer[idx] != "" {
			lines = append(lines, e.buffer[idx])
		}
	}

	return lines
}

// Counts returns the number of errors seen per code since creation.
func (e *ErrorLog) Counts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := make(map[string]int, len(e.counts))
	for code, n := range e.counts {
		counts[code] = n
	}
	return counts
}
