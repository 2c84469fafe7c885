package model

import "time"

// AlertType classifies the kind of emergency reported by the requester.
type AlertType int

const (
	AlertMedical AlertType = iota
	AlertEmergency
	AlertAccident
	AlertOther
)

// String returns the wire name of the alert type.
func (t AlertType) String() string {
	switch t {
	case AlertMedical:
		return "MEDICAL"
	case AlertEmergency:
		return "EMERGENCY"
	case AlertAccident:
		return "ACCIDENT"
	case AlertOther:
		return "OTHER"
	}
	return "UNKNOWN"
}

// ParseAlertType maps a wire name back to an AlertType. Unknown names map to
// AlertOther.
func ParseAlertType(s string) AlertType {
	switch s {
	case "MEDICAL":
		return AlertMedical
	case "EMERGENCY":
		return AlertEmergency
	case "ACCIDENT":
		return AlertAccident
	}
	return AlertOther
}

// AlertStatus is the lifecycle state of an alert. Transition rules live in
// the lifecycle package; the status itself only knows whether it is terminal.
type AlertStatus int

const (
	StatusPending AlertStatus = iota
	StatusActive
	StatusHelpOnWay
	StatusResponded
	StatusResolved
	StatusCancelled
	StatusFalseAlarm
)

// String returns the wire name of the status.
func (s AlertStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusActive:
		return "ACTIVE"
	case StatusHelpOnWay:
		return "HELP_ON_WAY"
	case StatusResponded:
		return "RESPONDED"
	case StatusResolved:
		return "RESOLVED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusFalseAlarm:
		return "FALSE_ALARM"
	}
	return "UNKNOWN"
}

// ParseAlertStatus maps a wire name back to an AlertStatus.
func ParseAlertStatus(s string) AlertStatus {
	switch s {
	case "PENDING":
		return StatusPending
	case "ACTIVE":
		return StatusActive
	case "HELP_ON_WAY":
		return StatusHelpOnWay
	case "RESPONDED":
		return StatusResponded
	case "RESOLVED":
		return StatusResolved
	case "CANCELLED":
		return StatusCancelled
	}
	return StatusFalseAlarm
}

// Terminal reports whether no further lifecycle transition is permitted.
func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled || s == StatusFalseAlarm
}

// Alert is one emergency request. It is created once by the requester and then
// mutated by the coordinator (location refresh) and the remote authority
// (status, responder count) until it reaches a terminal status.
type Alert struct {
	ID              string      `json:"id"`
	RequesterID     string      `json:"requester_id"`
	RequesterName   string      `json:"requester_name"`
	RequesterPhone  string      `json:"requester_phone"`
	Location        Location    `json:"location"`
	Type            AlertType   `json:"type"`
	Message         string      `json:"message,omitempty"`
	Status          AlertStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at,omitempty"`
	RespondersCount int         `json:"responders_count"`
}

// Active reports whether the alert is still in a non-terminal status.
func (a Alert) Active() bool { return !a.Status.Terminal() }
