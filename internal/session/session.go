// Package session tracks playback sessions: one per period occurrence in
// the player's timeline.
//
// The Manager decides when a session is created, when it becomes the
// current one, and when it is destroyed, and reports those transitions to
// its listeners in that order.
package session

import (
	"github.com/google/uuid"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// Session identifies one playback attempt of one content item.
type Session struct {
	SessionID string           `json:"session_id"`
	PeriodUID player.PeriodUID `json:"period_uid"`
	MediaItem player.MediaItem `json:"media_item"`
}

func newSession(period player.Period) *Session {
	return &Session{
		SessionID: uuid.NewString(),
		PeriodUID: period.UID,
		MediaItem: period.MediaItem,
	}
}

// SessionInfo pairs a session with the position it was at when the
// current session changed.
type SessionInfo struct {
	Session    *Session
	PositionMs int64
}

// Listener receives session lifecycle transitions.
type Listener interface {
	OnSessionCreated(s *Session)

	// OnCurrentSessionChanged reports the current session moving from
	// prev to next. Either side may be nil.
	OnCurrentSessionChanged(prev, next *SessionInfo)

	OnSessionDestroyed(s *Session)
}

// NopListener implements Listener with no-op methods.
type NopListener struct{}

var _ Listener = NopListener{}

func (NopListener) OnSessionCreated(*Session) {}
func (NopListener) OnCurrentSessionChanged(*SessionInfo, *SessionInfo) {}
func (NopListener) OnSessionDestroyed(*Session) {}
