package metrics

import (
	"time"

	"github.com/resqlink/resqlink/core/model"
)

// SendRecord is the terminal outcome of one contact notification.
type SendRecord struct {
	AlertID   string
	AlertType model.AlertType
	Phone     string
	Delivered bool
	Segments  int
	Latency   time.Duration
	Time      time.Time
}

// AlertRecord marks an alert lifecycle event for observability purposes.
// Event is one of "created", "cancelled", "resolved" or "teardown".
type AlertRecord struct {
	Alert model.Alert
	Event string
	Time  time.Time
}

// Sink records dispatch outcomes for observability purposes.
type Sink interface {
	RecordSendOutcomes(records []SendRecord) error
	RecordAlertEvent(rec AlertRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordSendOutcomes([]SendRecord) error { return nil }
func (NopSink) RecordAlertEvent(AlertRecord) error    { return nil }
