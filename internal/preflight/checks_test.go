package preflight

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		c := Check{
			Name:     "test_check",
			Required: 100,
			Actual:   200,
			Passed:   true,
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("Passed check should have ✓")
		}
		if !strings.Contains(s, "200") || !strings.Contains(s, "100") {
			t.Errorf("Should contain actual and required values: %s", s)
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		c := Check{Name: "test_check", Required: 100, Actual: 50}
		if s := c.String(); !strings.Contains(s, "✗") {
			t.Error("Failed check should have ✗")
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		c := Check{Name: "test_check", Passed: true, Warning: true, Message: "warning message"}
		s := c.String()
		if !strings.Contains(s, "⚠") {
			t.Error("Warning check should have ⚠")
		}
		if !strings.Contains(s, "warning message") {
			t.Error("Should contain message")
		}
	})
}

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestCheckEventLog(t *testing.T) {
	tests := []struct {
		name        string
		path        func(t *testing.T) string
		wantPassed  bool
		wantWarning bool
	}{
		{
			name: "valid",
			path: func(t *testing.T) string {
				return writeLog(t, "# header\n\n"+`{"t_ms":0,"event":"playback_state","state":"idle"}`+"\n")
			},
			wantPassed: true,
		},
		{
			name:        "bad first record",
			path:        func(t *testing.T) string { return writeLog(t, "not json\n") },
			wantPassed:  true,
			wantWarning: true,
		},
		{
			name:        "empty",
			path:        func(t *testing.T) string { return writeLog(t, "") },
			wantPassed:  true,
			wantWarning: true,
		},
		{
			name: "missing",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.jsonl") },
		},
		{
			name: "directory",
			path: func(t *testing.T) string { return t.TempDir() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkEventLog(tt.path(t))
			if c.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (%s)", c.Passed, tt.wantPassed, c.Message)
			}
			if c.Warning != tt.wantWarning {
				t.Errorf("Warning = %v, want %v (%s)", c.Warning, tt.wantWarning, c.Message)
			}
		})
	}
}

func TestCheckMetricsAddr(t *testing.T) {
	if c := checkMetricsAddr(""); !c.Passed || c.Message != "disabled" {
		t.Errorf("checkMetricsAddr(\"\") = %+v", c)
	}

	if c := checkMetricsAddr("127.0.0.1:0"); !c.Passed {
		t.Errorf("free port check failed: %s", c.Message)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	if c := checkMetricsAddr(ln.Addr().String()); c.Passed {
		t.Error("port in use should fail")
	}
}

func TestCheckTerminal_File(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer f.Close()

	if c := checkTerminal(f); c.Passed {
		t.Error("a regular file is not a terminal")
	}
}

func TestCheckFileDescriptors(t *testing.T) {
	c := checkFileDescriptors()
	if c.Name != "file_descriptors" {
		t.Errorf("Name = %q, want file_descriptors", c.Name)
	}
	if !c.Warning && c.Required != minFileDescriptors {
		t.Errorf("Required = %d, want %d", c.Required, minFileDescriptors)
	}
}

func TestRunAll(t *testing.T) {
	path := writeLog(t, `{"t_ms":0,"event":"playback_state","state":"idle"}`+"\n")

	result := RunAll(Options{EventsPath: path})
	if len(result.Checks) != 3 {
		t.Errorf("len(Checks) = %d, want 3 without the dashboard", len(result.Checks))
	}

	failing := RunAll(Options{EventsPath: filepath.Join(t.TempDir(), "missing")})
	if failing.Passed {
		t.Error("missing event log should fail preflight")
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, &Result{
		Checks: []Check{
			{Name: "event_log", Message: "missing"},
			{Name: "metrics_addr", Passed: true, Message: "disabled"},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "Preflight checks:") {
		t.Error("missing header")
	}
	if !strings.Contains(out, "Fix: pass a readable JSON-lines file") {
		t.Errorf("missing fix for failed check:\n%s", out)
	}
	if strings.Count(out, "Fix:") != 1 {
		t.Error("fixes should only follow failed checks")
	}
}

func TestSuggestFix(t *testing.T) {
	for _, name := range []string{"event_log", "metrics_addr", "terminal", "file_descriptors", "other_check"} {
		if suggestFix(name) == "" {
			t.Errorf("suggestFix(%q) is empty", name)
		}
	}
}
