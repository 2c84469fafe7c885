package push

import (
	"time"

	"github.com/resqlink/resqlink/core/model"
)

// Channel represents a push transport capable of pinging a helper device
// about a nearby alert and waiting for the device acknowledgment.
type Channel interface {
	// Ping sends an alert summary to the given helper and returns the
	// message identifier used to track the acknowledgment.
	Ping(helperID string, alert model.Alert) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
