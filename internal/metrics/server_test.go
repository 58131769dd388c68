package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/go-playback-analytics/internal/qos"
	"github.com/randomizedcoder/go-playback-analytics/internal/session"
)

type fakeStore struct {
	live []qos.PlaybackMetrics
}

func (f *fakeStore) Snapshots() []qos.PlaybackMetrics { return f.live }

func (f *fakeStore) Snapshot(id string) (qos.PlaybackMetrics, bool) {
	for _, m := range f.live {
		if m.SessionID == id {
			return m, true
		}
	}
	return qos.PlaybackMetrics{}, false
}

func newTestServer(store SnapshotStore) (*Server, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	return NewServer("127.0.0.1:0", registry, store, nil), registry
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(nil)

	for _, path := range []string{"/health", "/healthz"} {
		code, body := get(t, s.Handler(), path)
		if code != http.StatusOK || strings.TrimSpace(body) != "ok" {
			t.Errorf("GET %s = %d %q, want 200 ok", path, code, body)
		}
	}
}

func TestServer_Ready(t *testing.T) {
	s, _ := newTestServer(nil)

	if code, _ := get(t, s.Handler(), "/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz before SetReady = %d, want 503", code)
	}
	s.SetReady(true)
	if code, _ := get(t, s.Handler(), "/readyz"); code != http.StatusOK {
		t.Errorf("GET /readyz after SetReady = %d, want 200", code)
	}
}

func TestServer_Metrics(t *testing.T) {
	s, registry := newTestServer(nil)
	e := NewExporterWithRegistry(registry)
	e.OnSessionCreated(&session.Session{SessionID: "s1"})

	code, body := get(t, s.Handler(), "/metrics")
	if code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", code)
	}
	if !strings.Contains(body, "playback_sessions_created_total 1") {
		t.Errorf("/metrics missing created counter:\n%s", body)
	}
}

// decodeFamilies parses a Prometheus text exposition into families by name.
func decodeFamilies(t *testing.T, body string) map[string]*dto.MetricFamily {
	t.Helper()
	decoder := expfmt.NewDecoder(strings.NewReader(body), expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)
	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decode /metrics: %v", err)
		}
		families[mf.GetName()] = &mf
	}
	return families
}

func TestServer_MetricsExposition(t *testing.T) {
	s, registry := newTestServer(nil)
	e := NewExporterWithRegistry(registry)
	ttr := 1500 * time.Millisecond
	e.OnSessionCreated(&session.Session{SessionID: "s1"})
	e.OnMetricSessionReady(qos.PlaybackMetrics{
		SessionID:    "s1",
		LoadDuration: qos.LoadDuration{TimeToReady: &ttr},
	})

	_, body := get(t, s.Handler(), "/metrics")
	families := decodeFamilies(t, body)

	active := families["playback_sessions_active"]
	if active == nil {
		t.Fatal("playback_sessions_active missing")
	}
	if got := active.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("playback_sessions_active = %v, want 1", got)
	}

	hist := families["playback_time_to_ready_seconds"]
	if hist == nil {
		t.Fatal("playback_time_to_ready_seconds missing")
	}
	h := hist.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("time_to_ready count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() != 1.5 {
		t.Errorf("time_to_ready sum = %v, want 1.5", h.GetSampleSum())
	}
}

func TestServer_Sessions(t *testing.T) {
	ttr := 800 * time.Millisecond
	store := &fakeStore{live: []qos.PlaybackMetrics{
		{SessionID: "abc", StallCount: 1, LoadDuration: qos.LoadDuration{TimeToReady: &ttr}},
		{SessionID: "def"},
	}}
	s, _ := newTestServer(store)

	code, body := get(t, s.Handler(), "/sessions")
	if code != http.StatusOK {
		t.Fatalf("GET /sessions = %d, want 200", code)
	}
	var list []qos.PlaybackMetrics
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("decode /sessions: %v", err)
	}
	if len(list) != 2 || list[0].SessionID != "abc" {
		t.Errorf("/sessions = %+v", list)
	}

	code, body = get(t, s.Handler(), "/sessions/abc")
	if code != http.StatusOK {
		t.Fatalf("GET /sessions/abc = %d, want 200", code)
	}
	var one qos.PlaybackMetrics
	if err := json.Unmarshal([]byte(body), &one); err != nil {
		t.Fatalf("decode /sessions/abc: %v", err)
	}
	if one.StallCount != 1 || one.LoadDuration.TimeToReady == nil || *one.LoadDuration.TimeToReady != ttr {
		t.Errorf("/sessions/abc = %+v", one)
	}

	if code, _ := get(t, s.Handler(), "/sessions/nope"); code != http.StatusNotFound {
		t.Errorf("GET /sessions/nope = %d, want 404", code)
	}
}

func TestServer_SessionsEmpty(t *testing.T) {
	s, _ := newTestServer(&fakeStore{})

	_, body := get(t, s.Handler(), "/sessions")
	if strings.TrimSpace(body) != "[]" {
		t.Errorf("GET /sessions = %q, want []", body)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestServer_RunListenError(t *testing.T) {
	s := NewServer("256.0.0.1:bad", prometheus.NewRegistry(), nil, nil)
	if err := s.Run(context.Background()); err == nil {
		t.Error("Run() with bad address returned nil")
	}
	if s.Ready() {
		t.Error("Ready() = true after listen failure")
	}
}

func TestServer_RunReadiness(t *testing.T) {
	s, _ := newTestServer(nil)
	if s.Ready() {
		t.Fatal("Ready() = true before Run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !s.Ready() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("Ready() never became true while serving")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if code, _ := get(t, s.Handler(), "/readyz"); code != http.StatusOK {
		t.Errorf("GET /readyz while serving = %d, want 200", code)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if s.Ready() {
		t.Error("Ready() = true after shutdown")
	}
}
