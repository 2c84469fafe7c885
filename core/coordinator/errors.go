package coordinator

import "errors"

// ErrAlreadyActive is returned when a requester triggers while an alert of
// theirs is still non-terminal.
var ErrAlreadyActive = errors.New("coordinator: an alert is already active for this requester")

// ErrNotActive is returned when cancel or resolve is called without an
// active alert.
var ErrNotActive = errors.New("coordinator: no active alert")

// ErrInvalidLocation is returned when the trigger location is outside the
// valid coordinate domain.
var ErrInvalidLocation = errors.New("coordinator: invalid location")
