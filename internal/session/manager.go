package session

import (
	"log/slog"

	"github.com/randomizedcoder/go-playback-analytics/internal/player"
)

// Manager maps timeline periods to sessions and tracks which one is
// current.
//
// Sessions are created the first time the player touches a period, become
// current while their period is the one playing, and are destroyed when
// the period leaves the timeline or the player stops. A session that is
// current when destroyed is first swapped out, so listeners always see
// OnCurrentSessionChanged(s, nil) before OnSessionDestroyed(s).
//
// Not safe for concurrent use.
type Manager struct {
	player.NopListener

	sessions map[player.PeriodUID]*Session
	byID     map[string]*Session
	order    []*Session // creation order

	current         *Session
	currentPosition int64

	// Last playback state seen. Sessions only become current while
	// buffering or ready.
	playbackState player.State

	listeners []Listener
	logger    *slog.Logger
}

var _ player.Listener = (*Manager)(nil)

// NewManager creates an empty manager. A nil logger discards.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		sessions:      make(map[player.PeriodUID]*Session),
		byID:          make(map[string]*Session),
		playbackState: player.StateIdle,
		logger:        logger,
	}
}

// AddListener registers l. Listeners are notified in registration order.
func (m *Manager) AddListener(l Listener) {
	if l != nil {
		m.listeners = append(m.listeners, l)
	}
}

// RemoveListener unregisters the first occurrence of l.
func (m *Manager) RemoveListener(l Listener) {
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// SessionByID returns the live session with the given id, or nil.
func (m *Manager) SessionByID(id string) *Session {
	return m.byID[id]
}

// SessionForPeriod returns the live session bound to uid, or nil.
func (m *Manager) SessionForPeriod(uid player.PeriodUID) *Session {
	return m.sessions[uid]
}

// CurrentSession returns the current session, or nil.
func (m *Manager) CurrentSession() *Session {
	return m.current
}

// Sessions returns the live sessions in creation order.
func (m *Manager) Sessions() []*Session {
	out := make([]*Session, len(m.order))
	copy(out, m.order)
	return out
}

// ============================================================================
// player.Listener
// ============================================================================

func (m *Manager) OnTimelineChanged(et player.EventTime) {
	if et.Timeline.IsEmpty() {
		m.destroyAll()
		return
	}

	// Destroy sessions whose period left the timeline, oldest first
	for _, s := range m.Sessions() {
		if et.Timeline.IndexOfPeriod(s.PeriodUID) < 0 {
			m.destroy(s)
		}
	}

	period, ok := et.CurrentPeriod()
	if !ok {
		return
	}
	s := m.ensure(period)
	if m.isActive() {
		m.setCurrent(s, m.positionFor(s))
	}
}

func (m *Manager) OnMediaItemTransition(et player.EventTime, _ *player.MediaItem, _ player.TransitionReason) {
	period, ok := et.CurrentPeriod()
	if !ok {
		return
	}
	s := m.ensure(period)
	if m.isActive() {
		m.setCurrent(s, 0)
	}
}

func (m *Manager) OnPositionDiscontinuity(et player.EventTime, _, newPos player.PositionInfo, _ player.DiscontinuityReason) {
	idx := et.Timeline.IndexOfPeriod(newPos.PeriodUID)
	if idx < 0 {
		return
	}
	s := m.ensure(et.Timeline.Periods[idx])
	if m.isActive() {
		m.setCurrent(s, newPos.PositionMs)
	}
}

func (m *Manager) OnPlaybackStateChanged(et player.EventTime, state player.State) {
	prev := m.playbackState
	m.playbackState = state

	switch state {
	case player.StateBuffering, player.StateReady:
		period, ok := et.CurrentPeriod()
		if !ok {
			return
		}
		s := m.ensure(period)
		m.setCurrent(s, m.positionFor(s))

	case player.StateEnded:
		m.setCurrent(nil, 0)

	case player.StateIdle:
		if prev != player.StateIdle {
			m.destroyAll()
		}
	}
}

// OnLoadStarted creates the session of a period the player preloads
// ahead of playing it.
func (m *Manager) OnLoadStarted(et player.EventTime, _ player.LoadEventInfo) {
	if et.MediaPeriod == "" {
		return
	}
	idx := et.Timeline.IndexOfPeriod(et.MediaPeriod)
	if idx < 0 {
		return
	}
	m.ensure(et.Timeline.Periods[idx])
}

func (m *Manager) OnPlayerReleased(player.EventTime) {
	m.playbackState = player.StateIdle
	m.destroyAll()
}

// ============================================================================
// Transitions
// ============================================================================

func (m *Manager) isActive() bool {
	return m.playbackState == player.StateBuffering || m.playbackState == player.StateReady
}

func (m *Manager) positionFor(s *Session) int64 {
	if s == m.current {
		return m.currentPosition
	}
	return 0
}

// ensure returns the session of period, creating it on first sight.
func (m *Manager) ensure(period player.Period) *Session {
	if s, ok := m.sessions[period.UID]; ok {
		return s
	}

	s := newSession(period)
	m.sessions[period.UID] = s
	m.byID[s.SessionID] = s
	m.order = append(m.order, s)

	m.logger.Debug("session_created",
		"session_id", s.SessionID,
		"period_uid", string(s.PeriodUID),
		"media_id", s.MediaItem.ID,
	)
	for _, l := range m.listeners {
		l.OnSessionCreated(s)
	}
	return s
}

func (m *Manager) setCurrent(s *Session, positionMs int64) {
	if s == m.current {
		m.currentPosition = positionMs
		return
	}

	var prev, next *SessionInfo
	if m.current != nil {
		prev = &SessionInfo{Session: m.current, PositionMs: m.currentPosition}
	}
	if s != nil {
		next = &SessionInfo{Session: s, PositionMs: positionMs}
	}
	m.current = s
	m.currentPosition = positionMs

	m.logger.Debug("current_session_changed",
		"from", sessionIDOf(prev),
		"to", sessionIDOf(next),
	)
	for _, l := range m.listeners {
		l.OnCurrentSessionChanged(prev, next)
	}
}

func (m *Manager) destroy(s *Session) {
	if s == m.current {
		m.setCurrent(nil, 0)
	}

	delete(m.sessions, s.PeriodUID)
	delete(m.byID, s.SessionID)
	for i, existing := range m.order {
		if existing == s {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	m.logger.Debug("session_destroyed", "session_id", s.SessionID)
	for _, l := range m.listeners {
		l.OnSessionDestroyed(s)
	}
}

func (m *Manager) destroyAll() {
	m.setCurrent(nil, 0)
	for _, s := range m.Sessions() {
		m.destroy(s)
	}
}

func sessionIDOf(info *SessionInfo) string {
	if info == nil || info.Session == nil {
		return ""
	}
	return info.Session.SessionID
}
