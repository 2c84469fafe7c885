package model

import "time"

// EmergencyContact is a person notified when its owner triggers an alert.
// A user holds at most MaxContactsPerOwner active contacts and at most one of
// them may be primary; both invariants are enforced by the contact registry
// on write.
type EmergencyContact struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Relationship string    `json:"relationship,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
	NotifyBySMS  bool      `json:"notify_by_sms"`
	NotifyByCall bool      `json:"notify_by_call"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MaxContactsPerOwner caps the number of active contacts a user may hold.
const MaxContactsPerOwner = 5
