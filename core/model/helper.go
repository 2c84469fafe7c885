package model

// HelperStatus is the availability state of a volunteer responder.
type HelperStatus int

const (
	HelperOffline HelperStatus = iota
	HelperAvailable
	HelperBusy
	HelperResponding
)

// String returns the wire name of the helper status.
func (s HelperStatus) String() string {
	switch s {
	case HelperOffline:
		return "OFFLINE"
	case HelperAvailable:
		return "AVAILABLE"
	case HelperBusy:
		return "BUSY"
	case HelperResponding:
		return "RESPONDING"
	}
	return "UNKNOWN"
}

// HelperProfile describes a volunteer responder. Its lifecycle is independent
// of any single alert: the helper toggles Status and the location is refreshed
// on a timer while the helper is not offline.
type HelperProfile struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"`
	Location            *Location    `json:"location,omitempty"`
	Status              HelperStatus `json:"status"`
	Verified            bool         `json:"verified"`
	RadiusKm            float64      `json:"radius_km"`
	Rating              float64      `json:"rating"`
	TotalResponses      int          `json:"total_responses"`
	SuccessfulResponses int          `json:"successful_responses"`
}

// SuccessRate returns the fraction of responses this helper completed, or zero
// when the helper has no history.
func (h HelperProfile) SuccessRate() float64 {
	if h.TotalResponses == 0 {
		return 0
	}
	return float64(h.SuccessfulResponses) / float64(h.TotalResponses)
}

// Reachable reports whether the helper can currently be considered for
// matching: available and carrying a location fix.
func (h HelperProfile) Reachable() bool {
	return h.Status == HelperAvailable && h.Location != nil
}
