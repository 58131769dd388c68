package stats

// Exit summary formatter, printed once the replay has finished.

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
)

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// EventsPath is the replayed event log
	EventsPath string

	// Duration is the total run duration
	Duration time.Duration

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// ShowSessions lists the sessions still live at exit
	ShowSessions bool

	// ErrorCounts are player and load errors by code
	ErrorCounts map[string]int
}

// FormatExitSummary formats aggregated stats for display at program exit.
//
// The summary includes:
// - Run information and replay progress
// - Session lifecycle counts
// - Time to ready percentiles
// - Playback health totals of ended sessions
// - Optionally, the sessions still live at exit
func FormatExitSummary(stats *AggregatedStats, cfg SummaryConfig) string {
	if stats == nil {
		return formatBasicSummary(cfg)
	}

	var b strings.Builder

	writeTitle(&b)

	if !stats.Replay.Done {
		b.WriteString("⚠️  REPLAY INCOMPLETE: stopped before the end of the event log\n\n")
	}
	if stats.Replay.Malformed > 0 || stats.Replay.UnknownEvents > 0 {
		b.WriteString("⚠️  SKIPPED RECORDS: some lines could not be applied\n")
		fmt.Fprintf(&b, "    Malformed: %s  Unknown events: %s\n\n",
			FormatNumber(stats.Replay.Malformed),
			FormatNumber(stats.Replay.UnknownEvents),
		)
	}

	// Run info
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	if cfg.EventsPath != "" {
		fmt.Fprintf(&b, "Event Log:              %s\n", cfg.EventsPath)
	}
	fmt.Fprintf(&b, "Records Applied:        %s of %s lines\n\n",
		FormatNumber(stats.Replay.RecordsApplied),
		FormatNumber(stats.Replay.LinesRead),
	)

	// Sessions
	writeSection(&b, "Sessions")
	fmt.Fprintf(&b, "  Created:              %d\n", stats.SessionsCreated)
	fmt.Fprintf(&b, "  Ready:                %d\n", stats.SessionsReady)
	fmt.Fprintf(&b, "  Ended:                %d\n", stats.SessionsEnded)
	fmt.Fprintf(&b, "  Still Live:           %d\n\n", stats.ActiveSessions)

	// Time to ready
	if stats.SessionsReady > 0 {
		writeSection(&b, "Time to Ready")
		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatMs(stats.TimeToReadyP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatMs(stats.TimeToReadyP95))
		fmt.Fprintf(&b, "  P99:                  %s\n", FormatMs(stats.TimeToReadyP99))
		fmt.Fprintf(&b, "  Max:                  %s\n", FormatMs(stats.TimeToReadyMax))
		fmt.Fprintf(&b, "  Average:              %s\n\n", FormatMs(stats.TimeToReadyAvg))
	}

	// Playback health
	writeSection(&b, "Playback Health")
	fmt.Fprintf(&b, "  Play Time:            %s\n", FormatDuration(stats.TotalPlayTime))
	fmt.Fprintf(&b, "  Buffering Time:       %s\n", FormatDuration(stats.TotalBufferingTime))
	fmt.Fprintf(&b, "  Stalls:               %d\n", stats.TotalStalls)
	fmt.Fprintf(&b, "  Stall Time:           %s\n", FormatDuration(stats.TotalStallTime))
	fmt.Fprintf(&b, "  Stall Ratio:          %.2f%%\n", stats.StallRatio*100)
	fmt.Fprintf(&b, "  Dropped Frames:       %s\n", FormatNumber(stats.TotalDroppedFrames))
	fmt.Fprintf(&b, "  Total Bytes:          %s\n", FormatBytes(stats.TotalBytes))
	if tp := stats.Throughput; tp.AvgOverall > 0 {
		fmt.Fprintf(&b, "  Load Throughput:      %s avg, %s last 60s\n",
			FormatBitrate(int64(tp.AvgOverall*8)),
			FormatBitrate(int64(tp.Avg60s*8)),
		)
	}
	b.WriteString("\n")

	if cfg.ShowSessions && len(stats.Live) > 0 {
		writeSection(&b, "Live Sessions")
		fmt.Fprintf(&b, "  %-36s %10s %8s %12s\n", "Session", "TTR", "Stalls", "Bitrate")
		b.WriteString("  " + strings.Repeat("─", 69) + "\n")
		for _, m := range stats.Live {
			fmt.Fprintf(&b, "  %-36s %10s %8d %12s\n",
				m.SessionID,
				formatOptionalMs(m.LoadDuration.TimeToReady),
				m.StallCount,
				FormatBitrate(int64(m.IndicatedBitrate)),
			)
		}
		b.WriteString("\n")
	}

	if len(cfg.ErrorCounts) > 0 {
		writeSection(&b, "Errors")
		codes := make([]string, 0, len(cfg.ErrorCounts))
		for code := range cfg.ErrorCounts {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(&b, "  %-22s%d\n", code+":", cfg.ErrorCounts[code])
		}
		b.WriteString("\n")
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(heavyRule)

	return b.String()
}

// formatBasicSummary formats a basic summary when stats are not available.
func formatBasicSummary(cfg SummaryConfig) string {
	var b strings.Builder

	writeTitle(&b)
	fmt.Fprintf(&b, "Run Duration:           %s\n\n", FormatDuration(cfg.Duration))
	b.WriteString("(No events were replayed)\n\n")

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(heavyRule)

	return b.String()
}

func writeTitle(b *strings.Builder) {
	b.WriteString("\n")
	b.WriteString(heavyRule)
	b.WriteString("                      go-playback-analytics Exit Summary\n")
	b.WriteString(heavyRule)
	b.WriteString("\n")
}

func writeSection(b *strings.Builder, title string) {
	pad := (len([]rune(lightRule)) - 1 - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(lightRule)
	b.WriteString(strings.Repeat(" ", pad) + title + "\n")
	b.WriteString(lightRule)
	b.WriteString("\n")
}

func formatOptionalMs(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return FormatMs(*d)
}

// SessionLine renders a one-line description of a snapshot, used by the
// snapshot logger and the dashboard.
func SessionLine(m qos.PlaybackMetrics) string {
	return fmt.Sprintf("%s ttr=%s stalls=%d bitrate=%s bytes=%s",
		m.SessionID,
		formatOptionalMs(m.LoadDuration.TimeToReady),
		m.StallCount,
		FormatBitrate(int64(m.IndicatedBitrate)),
		FormatBytes(m.TotalBytesLoaded),
	)
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatBitrate formats bits per second with kbps/Mbps suffixes.
func FormatBitrate(bps int64) string {
	if bps >= 1_000_000 {
		return fmt.Sprintf("%.2f Mbps", float64(bps)/1_000_000)
	}
	if bps >= 1_000 {
		return fmt.Sprintf("%.0f kbps", float64(bps)/1_000)
	}
	return fmt.Sprintf("%d bps", bps)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
