package geoloc

import (
	"context"
	"errors"
	"time"

	"github.com/resqlink/resqlink/core/model"
)

// ErrNoFix is returned when the provider has no current location.
var ErrNoFix = errors.New("geoloc: no location fix available")

// Provider abstracts the device or platform location source.
type Provider interface {
	// CurrentLocation returns the latest known fix.
	CurrentLocation(ctx context.Context) (model.Location, error)

	// LocationUpdates streams fixes on the given interval until cancel is
	// called or the context ends. The returned cancel func is idempotent.
	LocationUpdates(ctx context.Context, interval time.Duration) (<-chan model.Location, func(), error)
}
