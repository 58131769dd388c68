package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the main dashboard.
func (m Model) renderSummaryView() string {
	sections := []string{
		m.renderHeader(),
		m.renderReplay(),
	}

	if m.stats != nil {
		sections = append(sections, m.renderCurrentSession())
		if m.stats.SessionsReady > 0 {
			sections = append(sections, m.renderTimeToReady())
		}
		sections = append(sections, m.renderHealthStats())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDetailedView renders the live session table.
func (m Model) renderDetailedView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderSessionTable(),
		m.renderFooter(),
	)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" go-playback-analytics │ %s │ Sessions: %d │ Elapsed: %s ",
		GetReplayLabel(m.SkipRate()),
		m.ActiveSessions(),
		stats.FormatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Replay Progress
// =============================================================================

func (m Model) renderReplay() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}

	var r stats.ReplayStats
	if m.stats != nil {
		r = m.stats.Replay
	}

	var status string
	if r.Done {
		status = statusOK.Render("✓ Replay complete")
	} else {
		status = statusInfo.Render(fmt.Sprintf("Replaying... %s records", stats.FormatNumber(r.RecordsApplied)))
	}

	rows := []string{
		sectionHeaderStyle.Render("Replay"),
		RenderProgressBar(m.ReadyRatio(), barWidth),
		dimStyle.Render("sessions ready / created"),
		status,
	}
	if skipped := r.Malformed + r.UnknownEvents; skipped > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Skipped Lines:"),
			valueWarnStyle.Render(fmt.Sprintf("%d malformed, %d unknown", r.Malformed, r.UnknownEvents)),
		))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Current Session
// =============================================================================

func (m Model) renderCurrentSession() string {
	cur := m.stats.Current
	if cur == nil {
		return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
			sectionHeaderStyle.Render("Current Session"),
			dimStyle.Render("No current session"),
		))
	}

	stallStyle := valueStyle
	if cur.StallCount > 0 {
		stallStyle = valueBadStyle
	}

	rows := []string{
		sectionHeaderStyle.Render("Current Session"),
		RenderKeyValue("Session", cur.SessionID),
		RenderKeyValue("Time to Ready", formatOptionalMs(cur.LoadDuration.TimeToReady)),
		RenderKeyValue("Bitrate", stats.FormatBitrate(int64(cur.IndicatedBitrate))),
		RenderKeyValue("Bandwidth", stats.FormatBitrate(cur.Bandwidth)),
		RenderKeyValue("Playing", stats.FormatDuration(cur.PlaybackDuration)),
		lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Stalls:"),
			stallStyle.Render(fmt.Sprintf("%d (%s)", cur.StallCount, formatMs(cur.StallDuration))),
		),
		RenderKeyValue("Loaded", stats.FormatBytes(cur.TotalBytesLoaded)),
	}
	if v := cur.VideoFormat; v != nil && v.Width > 0 {
		rows = append(rows, RenderKeyValue("Video", fmt.Sprintf("%dx%d %s", v.Width, v.Height, v.Codecs)))
	}
	if cur.TotalDroppedFrames > 0 {
		rows = append(rows, RenderKeyValue("Dropped Frames", fmt.Sprintf("%d", cur.TotalDroppedFrames)))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Time to Ready
// =============================================================================

func (m Model) renderTimeToReady() string {
	s := m.stats
	rows := []string{
		sectionHeaderStyle.Render("Time to Ready"),
		RenderKeyValue("P50 (median)", formatMs(s.TimeToReadyP50)),
		RenderKeyValue("P95", formatMs(s.TimeToReadyP95)),
		RenderKeyValue("P99", formatMs(s.TimeToReadyP99)),
		RenderKeyValue("Max", formatMs(s.TimeToReadyMax)),
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Health Statistics
// =============================================================================

func (m Model) renderHealthStats() string {
	s := m.stats

	ratio := GetStallRatioStyle(s.StallRatio).Render(fmt.Sprintf("%.2f%%", s.StallRatio*100))

	rows := []string{
		sectionHeaderStyle.Render("Playback Health (ended sessions)"),
		RenderKeyValue("Sessions Ended", fmt.Sprintf("%d", s.SessionsEnded)),
		RenderKeyValue("Play Time", stats.FormatDuration(s.TotalPlayTime)),
		RenderKeyValue("Stalls", fmt.Sprintf("%d", s.TotalStalls)),
		lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Stall Ratio:"),
			ratio,
		),
		RenderKeyValue("Total Bytes", stats.FormatBytes(s.TotalBytes)),
	}
	if tp := s.Throughput; tp.TotalBytes > 0 {
		rows = append(rows, RenderKeyValue("Load Throughput", fmt.Sprintf("%s (30s) │ %s (avg)",
			stats.FormatBitrate(int64(tp.Avg30s*8)),
			stats.FormatBitrate(int64(tp.AvgOverall*8)),
		)))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// Session Table (Detailed View)
// =============================================================================

func (m Model) renderSessionTable() string {
	if m.stats == nil || len(m.stats.Live) == 0 {
		return boxStyle.Width(m.width - 2).Render(
			dimStyle.Render("No live sessions. Press 'd' to toggle."),
		)
	}

	header := tableHeaderStyle.Render(
		fmt.Sprintf("%-36s %-10s %-8s %-12s", "Session", "TTR", "Stalls", "Bitrate"),
	)

	maxRows := m.height - 10
	if maxRows < 5 {
		maxRows = 5
	}

	var rows []string
	for i, s := range m.stats.Live {
		if i >= maxRows {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("... and %d more sessions", len(m.stats.Live)-maxRows)))
			break
		}

		rowStyle := tableRowEvenStyle
		if i%2 == 1 {
			rowStyle = tableRowOddStyle
		}
		rows = append(rows, rowStyle.Render(sessionRow(s)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{
			sectionHeaderStyle.Render("Live Sessions"),
			header,
		}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

func sessionRow(s qos.PlaybackMetrics) string {
	return fmt.Sprintf("%-36s %-10s %-8d %-12s",
		s.SessionID,
		formatOptionalMs(s.LoadDuration.TimeToReady),
		s.StallCount,
		stats.FormatBitrate(int64(s.IndicatedBitrate)),
	)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"q: quit",
		"d: toggle sessions",
		"r: refresh",
	}

	source := m.eventsPath
	if m.metricsAddr != "" {
		source += "  metrics: " + m.metricsAddr
	}
	maxLen := m.width - 50
	if len(source) > maxLen && maxLen > 10 {
		source = source[:maxLen-3] + "..."
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := dimStyle.Render(source)

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}

// =============================================================================
// Formatting Helpers
// =============================================================================

func formatMs(d time.Duration) string {
	return stats.FormatMs(d)
}

func formatOptionalMs(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return formatMs(*d)
}
