package contacts

import (
	"context"
	"errors"

	"github.com/resqlink/resqlink/core/model"
)

// ErrContactLimit is returned when an owner already holds the maximum number
// of active contacts.
var ErrContactLimit = errors.New("contacts: owner reached the contact limit")

// ErrNotFound is returned when a contact does not exist.
var ErrNotFound = errors.New("contacts: not found")

// Source provides read-only access to a user's emergency contacts. Full
// contact CRUD belongs to the profile service; the coordinator only reads.
type Source interface {
	ListByOwner(ctx context.Context, ownerID string) ([]model.EmergencyContact, error)
}

// Registry extends Source with the write operations needed to maintain the
// domain invariants: at most model.MaxContactsPerOwner active contacts per
// owner and at most one primary contact at a time.
type Registry interface {
	Source
	Put(ctx context.Context, c model.EmergencyContact) (model.EmergencyContact, error)
	Remove(ctx context.Context, id string) error
}
