package model

import "time"

// ResponseStatus is the lifecycle state of a helper's commitment to an alert.
type ResponseStatus int

const (
	ResponseResponding ResponseStatus = iota
	ResponseArrived
	ResponseCancelled
	ResponseCompleted
)

// String returns the wire name of the response status.
func (s ResponseStatus) String() string {
	switch s {
	case ResponseResponding:
		return "RESPONDING"
	case ResponseArrived:
		return "ARRIVED"
	case ResponseCancelled:
		return "CANCELLED"
	case ResponseCompleted:
		return "COMPLETED"
	}
	return "UNKNOWN"
}

// Terminal reports whether the response reached a final state.
func (s ResponseStatus) Terminal() bool {
	return s == ResponseCancelled || s == ResponseCompleted
}

// HelperResponse is created when a helper commits to an alert. At most one
// non-terminal response may exist per helper across all alerts; the lifecycle
// package enforces this, not storage.
type HelperResponse struct {
	ID          string         `json:"id"`
	AlertID     string         `json:"alert_id"`
	HelperID    string         `json:"helper_id"`
	Status      ResponseStatus `json:"status"`
	RespondedAt time.Time      `json:"responded_at"`
	ArrivedAt   time.Time      `json:"arrived_at,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}
