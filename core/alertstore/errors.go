package alertstore

import "errors"

// ErrActiveAlertExists is returned when a requester who already has a
// non-terminal alert attempts to create another one.
var ErrActiveAlertExists = errors.New("alertstore: requester already has an active alert")

// ErrNotFound is returned when the alert or response does not exist.
var ErrNotFound = errors.New("alertstore: not found")
