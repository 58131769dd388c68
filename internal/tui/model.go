package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-playback-analytics/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// StatsMsg carries updated statistics.
type StatsMsg struct {
	Stats *stats.AggregatedStats
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	eventsPath  string
	metricsAddr string

	// Current state
	stats        *stats.AggregatedStats
	startTime    time.Time
	lastUpdate   time.Time
	detailedView bool

	// Display options
	width  int
	height int

	statsSource StatsSource

	quitting bool
}

// StatsSource provides aggregated statistics. *stats.Aggregator
// implements it.
type StatsSource interface {
	Aggregate() *stats.AggregatedStats
}

// Config holds TUI configuration.
type Config struct {
	EventsPath  string
	MetricsAddr string
	StatsSource StatsSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		eventsPath:  cfg.EventsPath,
		metricsAddr: cfg.MetricsAddr,
		statsSource: cfg.StatsSource,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "d":
			m.detailedView = !m.detailedView
			return m, nil
		case "r":
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.statsSource != nil {
			m.stats = m.statsSource.Aggregate()
		}
		m.lastUpdate = time.Now()
		return m, tickCmd()

	case StatsMsg:
		m.stats = msg.Stats
		m.lastUpdate = time.Now()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.detailedView {
		return m.renderDetailedView()
	}
	return m.renderSummaryView()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// ActiveSessions returns the number of live sessions.
func (m Model) ActiveSessions() int {
	if m.stats == nil {
		return 0
	}
	return m.stats.ActiveSessions
}

// ReadyRatio returns the share of created sessions that became ready.
func (m Model) ReadyRatio() float64 {
	if m.stats == nil || m.stats.SessionsCreated == 0 {
		return 0
	}
	return float64(m.stats.SessionsReady) / float64(m.stats.SessionsCreated)
}

// SkipRate returns the share of replayed lines that were skipped.
func (m Model) SkipRate() float64 {
	if m.stats == nil || m.stats.Replay.LinesRead == 0 {
		return 0
	}
	r := m.stats.Replay
	return float64(r.Malformed+r.UnknownEvents) / float64(r.LinesRead)
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendStats sends a stats update to the TUI.
func SendStats(p *tea.Program, s *stats.AggregatedStats) {
	if p != nil {
		p.Send(StatsMsg{Stats: s})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
