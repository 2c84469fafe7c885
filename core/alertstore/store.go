package alertstore

import (
	"context"

	"github.com/resqlink/resqlink/core/model"
)

// Patch is an optimistic partial update of an alert. Nil fields are left
// untouched. The remote authority may reject or override a patch; callers
// never assume their last write is the current state.
type Patch struct {
	Location *model.Location
	Status   *model.AlertStatus
	Message  *string
}

// Store is the narrow interface over the authoritative, externally-hosted
// alert store. Implementations must deliver the full current snapshot on
// subscribe, then a snapshot on every change.
type Store interface {
	// CreateAlert persists a new alert and returns it as acknowledged by
	// the authority. It fails with ErrActiveAlertExists if the requester
	// already has a non-terminal alert.
	CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error)

	// UpdateAlert applies a partial update to an existing alert.
	UpdateAlert(ctx context.Context, id string, p Patch) error

	// GetAlert returns the current snapshot of an alert.
	GetAlert(ctx context.Context, id string) (model.Alert, error)

	// SubscribeAlert opens a push subscription for alert snapshots. The
	// cancel func releases the underlying listener immediately.
	SubscribeAlert(ctx context.Context, id string) (<-chan model.Alert, func(), error)

	// SubscribeResponses opens a push subscription for the full helper
	// response list of an alert.
	SubscribeResponses(ctx context.Context, id string) (<-chan []model.HelperResponse, func(), error)

	// CreateResponse records a helper's commitment to an alert and drives
	// the authoritative alert status accordingly.
	CreateResponse(ctx context.Context, r model.HelperResponse) (model.HelperResponse, error)

	// UpdateResponse moves an existing response through its sub-machine.
	UpdateResponse(ctx context.Context, id string, status model.ResponseStatus) error
}
