package lifecycle

import "errors"

// ErrInvalidTransition is returned for a transition the state machine forbids.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrResponseConflict is returned when a helper already holds a non-terminal
// response and attempts to commit to another alert.
var ErrResponseConflict = errors.New("helper already has an active response")
