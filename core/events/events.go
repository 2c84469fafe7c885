package events

import (
	"time"

	"github.com/resqlink/resqlink/core/model"
)

// AlertEvent marks a lifecycle milestone of the coordinator's alert.
// Action is one of "created", "cancelled", "resolved" or "teardown".
type AlertEvent struct {
	Alert  model.Alert
	Action string
}

// SendOutcomeEvent is published once per contact when its notification
// reaches a terminal outcome.
type SendOutcomeEvent struct {
	AlertID string
	Contact model.EmergencyContact
	Err     error
	Latency time.Duration
}

// PingEvent reports the acknowledgment result of a push ping sent to a
// candidate helper.
type PingEvent struct {
	AlertID      string
	HelperID     string
	Acknowledged bool
	Err          error
	Latency      time.Duration
}

// SnapshotEvent carries an authoritative alert snapshot that passed
// lifecycle validation.
type SnapshotEvent struct {
	Alert model.Alert
}

// ResponseEvent carries the authoritative helper responses for an alert.
type ResponseEvent struct {
	AlertID   string
	Responses []model.HelperResponse
}
