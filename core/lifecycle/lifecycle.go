package lifecycle

import (
	"fmt"

	"github.com/resqlink/resqlink/core/model"
)

// Actor identifies who requests an alert transition.
type Actor int

const (
	// ActorRequester is the user who created the alert.
	ActorRequester Actor = iota
	// ActorHelper is a volunteer with an accepted response on the alert.
	ActorHelper
	// ActorAuthority is the remote store pushing authoritative snapshots.
	ActorAuthority
)

// String returns a short name for logging.
func (a Actor) String() string {
	switch a {
	case ActorRequester:
		return "requester"
	case ActorHelper:
		return "helper"
	case ActorAuthority:
		return "authority"
	}
	return "unknown"
}

// CanTransition reports whether the requested alert transition is legal.
// A transition to the current status is treated as a no-op and allowed; any
// transition out of a terminal status is rejected.
func CanTransition(current model.AlertStatus, by Actor, target model.AlertStatus) bool {
	if current == target {
		return true
	}
	if current.Terminal() {
		return false
	}
	switch target {
	case model.StatusCancelled, model.StatusResolved:
		// Only the requester may abandon or close the alert. Authority pushes
		// echoing a requester action are accepted as well.
		return by == ActorRequester || by == ActorAuthority
	case model.StatusFalseAlarm:
		return by == ActorRequester || by == ActorAuthority
	case model.StatusActive:
		return current == model.StatusPending
	case model.StatusHelpOnWay:
		// Driven by a helper response entering RESPONDING.
		return current == model.StatusActive && by != ActorRequester
	case model.StatusResponded:
		// Driven by a helper response entering ARRIVED.
		return current == model.StatusHelpOnWay && by != ActorRequester
	}
	return false
}

// Validate wraps CanTransition with a descriptive InvalidTransition error.
// The error is non-fatal by contract: callers log it and keep their last
// valid state.
func Validate(current model.AlertStatus, by Actor, target model.AlertStatus) error {
	if !CanTransition(current, by, target) {
		return fmt.Errorf("%w: %s -> %s by %s", ErrInvalidTransition, current, target, by)
	}
	return nil
}
