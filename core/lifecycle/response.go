package lifecycle

import (
	"fmt"
	"sync"

	"github.com/resqlink/resqlink/core/model"
)

// CanRespond reports whether a helper response may move between the two
// states. The sub-machine is RESPONDING -> ARRIVED -> COMPLETED, with
// CANCELLED reachable from RESPONDING and ARRIVED.
func CanRespond(current, target model.ResponseStatus) bool {
	if current == target {
		return true
	}
	switch current {
	case model.ResponseResponding:
		return target == model.ResponseArrived || target == model.ResponseCancelled
	case model.ResponseArrived:
		return target == model.ResponseCompleted || target == model.ResponseCancelled
	}
	return false
}

// ValidateResponse wraps CanRespond with a descriptive error.
func ValidateResponse(current, target model.ResponseStatus) error {
	if !CanRespond(current, target) {
		return fmt.Errorf("%w: response %s -> %s", ErrInvalidTransition, current, target)
	}
	return nil
}

// ResponseGuard enforces that a helper holds at most one non-terminal
// response across all alerts. It is a lifecycle invariant, deliberately kept
// out of storage.
type ResponseGuard struct {
	mu     sync.Mutex
	active map[string]string // helper ID -> alert ID
}

// NewResponseGuard creates an empty guard.
func NewResponseGuard() *ResponseGuard {
	return &ResponseGuard{active: make(map[string]string)}
}

// Begin registers a new active response for the helper. It fails with
// ErrResponseConflict if the helper already holds one, regardless of which
// alert it belongs to.
func (g *ResponseGuard) Begin(helperID, alertID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if held, ok := g.active[helperID]; ok {
		return fmt.Errorf("%w: helper %s is already responding to alert %s", ErrResponseConflict, helperID, held)
	}
	g.active[helperID] = alertID
	return nil
}

// End releases the helper's active response. Ending a helper with no active
// response is a no-op.
func (g *ResponseGuard) End(helperID string) {
	g.mu.Lock()
	delete(g.active, helperID)
	g.mu.Unlock()
}

// Active returns the alert the helper is currently committed to, if any.
func (g *ResponseGuard) Active(helperID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.active[helperID]
	return id, ok
}
