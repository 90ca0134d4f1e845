package events

import (
	"testing"
	"time"
)

func TestNewClickRecorded(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 30, 0, 500, time.FixedZone("BRT", -3*3600))
	ev := NewClickRecorded("abc123", at)

	if ev.EventID == "" {
		t.Error("expected event id")
	}
	if ev.Code != "abc123" {
		t.Errorf("got code %q", ev.Code)
	}

	got, ok := ev.OccurredTime(time.Time{})
	if !ok {
		t.Fatal("expected occurredAt to parse")
	}
	if !got.Equal(at) {
		t.Errorf("got %v, want %v", got, at)
	}
	if got.Location() != time.UTC {
		t.Errorf("got location %v, want UTC", got.Location())
	}
}

func TestOccurredTimeFallback(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		occurredAt string
	}{
		{"empty", ""},
		{"malformed", "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClickRecorded{OccurredAt: tt.occurredAt}.OccurredTime(fallback)
			if ok {
				t.Error("expected fallback")
			}
			if !got.Equal(fallback) {
				t.Errorf("got %v, want %v", got, fallback)
			}
		})
	}
}
