// Package preflight provides startup validation checks.
package preflight

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/randomizedcoder/go-playback-analytics/internal/replay"
	"github.com/randomizedcoder/go-playback-analytics/internal/stats"
)

// minFileDescriptors covers the event log, the metrics listener and a
// handful of scrape connections.
const minFileDescriptors = 64

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects what RunAll checks.
type Options struct {
	EventsPath  string
	MetricsAddr string
	TUIEnabled  bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkEventLog(opts.EventsPath))
	add(checkMetricsAddr(opts.MetricsAddr))
	if opts.TUIEnabled {
		add(checkTerminal(os.Stdout))
	}
	add(checkFileDescriptors())

	return result
}

// checkEventLog verifies the event log can be opened and that its first
// record parses. A bad first record is a warning: the replay skips it.
func checkEventLog(path string) Check {
	if path == "-" {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return Check{
				Name:    "event_log",
				Passed:  true,
				Warning: true,
				Message: "reading standard input from a terminal",
			}
		}
		return Check{Name: "event_log", Passed: true, Message: "standard input"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "event_log", Passed: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: "event_log", Passed: false, Message: fmt.Sprintf("%s is a directory", path)}
	}

	f, err := os.Open(path)
	if err != nil {
		return Check{Name: "event_log", Passed: false, Message: err.Error()}
	}
	defer f.Close()

	msg := fmt.Sprintf("%s (%s)", path, stats.FormatBytes(info.Size()))
	if err := checkFirstRecord(f); err != nil {
		return Check{
			Name:    "event_log",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s: first record: %v", msg, err),
		}
	}
	return Check{Name: "event_log", Passed: true, Message: msg}
}

// checkFirstRecord parses the first non-blank, non-comment line of r.
func checkFirstRecord(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		_, ok, err := replay.ParseLine(scanner.Text())
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("no records")
}

// checkMetricsAddr verifies the metrics address can be bound.
func checkMetricsAddr(addr string) Check {
	if addr == "" {
		return Check{Name: "metrics_addr", Passed: true, Message: "disabled"}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{
			Name:    "metrics_addr",
			Passed:  false,
			Message: fmt.Sprintf("cannot listen on %s: %v", addr, err),
		}
	}
	ln.Close()

	return Check{Name: "metrics_addr", Passed: true, Message: fmt.Sprintf("%s available", addr)}
}

// checkTerminal verifies the dashboard has a terminal to draw on.
func checkTerminal(out *os.File) Check {
	fd := out.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return Check{Name: "terminal", Passed: true, Message: "stdout is a terminal"}
	}
	return Check{Name: "terminal", Passed: false, Message: "stdout is not a terminal"}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check: " + err.Error(),
		}
	}

	actual := int(limit.Cur)
	if limit.Cur > uint64(1<<30) {
		actual = 1 << 30
	}

	return Check{
		Name:     "file_descriptors",
		Required: minFileDescriptors,
		Actual:   actual,
		Passed:   actual >= minFileDescriptors,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, minFileDescriptors),
	}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "event_log":
		return "pass a readable JSON-lines file, or - to read standard input"
	case "metrics_addr":
		return "choose a free port with -metrics, or -metrics \"\" to disable"
	case "terminal":
		return "run without -tui when output is redirected"
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	default:
		return strings.ReplaceAll(name, "_", " ") + ": see -help"
	}
}
