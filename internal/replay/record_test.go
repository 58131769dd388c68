package replay

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantOK  bool
		wantErr error
		event   string
	}{
		{"blank", "   ", false, nil, ""},
		{"comment", "# header", false, nil, ""},
		{"state", `{"t_ms":10,"event":"playback_state","state":"ready"}`, true, nil, EventPlaybackState},
		{"timeline", `{"t_ms":0,"event":"timeline","periods":[{"uid":"p0","media_id":"a"}]}`, true, nil, EventTimeline},
		{"not json", `t_ms=10 event=ready`, false, ErrMalformedRecord, ""},
		{"missing event", `{"t_ms":10}`, false, ErrMalformedRecord, ""},
		{"negative time", `{"t_ms":-1,"event":"is_playing"}`, false, ErrMalformedRecord, ""},
		{"wrong type", `{"t_ms":"soon","event":"is_playing"}`, false, ErrMalformedRecord, ""},
		{"unknown event", `{"t_ms":10,"event":"ad_started"}`, false, ErrUnknownEvent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok, err := ParseLine(tt.line)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine() unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if rec.Event != tt.event {
				t.Errorf("Event = %q, want %q", rec.Event, tt.event)
			}
		})
	}
}

func TestParseLine_Fields(t *testing.T) {
	rec, ok, err := ParseLine(`{"t_ms":1200,"event":"load_completed","media_period":"p1","uri":"https://cdn/seg.ts","data_type":"media","load_ms":300,"bytes":4096}`)
	if err != nil || !ok {
		t.Fatalf("ParseLine() = %v, %v", ok, err)
	}
	if rec.TMs != 1200 || rec.MediaPeriod != "p1" || rec.LoadMs != 300 || rec.Bytes != 4096 || rec.DataType != "media" {
		t.Errorf("record = %+v", rec)
	}
}
