package events

import (
	"time"

	"github.com/google/uuid"
)

// ClickRecorded is emitted when a redirect click is accepted by the API.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	Code       string `json:"code"`
	OccurredAt string `json:"occurredAt"`
}

func NewClickRecorded(code string, at time.Time) ClickRecorded {
	return ClickRecorded{
		EventID:    uuid.NewString(),
		Code:       code,
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
	}
}

// OccurredTime parses OccurredAt, returning fallback when it is empty or malformed.
func (e ClickRecorded) OccurredTime(fallback time.Time) (time.Time, bool) {
	if e.OccurredAt == "" {
		return fallback, false
	}
	t, err := time.Parse(time.RFC3339Nano, e.OccurredAt)
	if err != nil {
		return fallback, false
	}
	return t.UTC(), true
}
