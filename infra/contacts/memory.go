package contacts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	corecontacts "github.com/resqlink/resqlink/core/contacts"
	"github.com/resqlink/resqlink/core/model"
)

// MemoryRegistry is an in-process contacts.Registry. It enforces the contact
// cap per owner and keeps at most one primary contact by demoting the
// previous primary when a new one is written.
type MemoryRegistry struct {
	mu      sync.RWMutex
	byID    map[string]model.EmergencyContact
	byOwner map[string][]string
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byID:    make(map[string]model.EmergencyContact),
		byOwner: make(map[string][]string),
	}
}

// ListByOwner returns the owner's contacts, primary first, then by creation
// time.
func (r *MemoryRegistry) ListByOwner(_ context.Context, ownerID string) ([]model.EmergencyContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byOwner[ownerID]
	res := make([]model.EmergencyContact, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.byID[id])
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].IsPrimary != res[j].IsPrimary {
			return res[i].IsPrimary
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

// Put inserts or updates a contact. Inserting beyond the per-owner cap fails
// with ErrContactLimit. Writing a primary contact demotes any existing
// primary of the same owner.
func (r *MemoryRegistry) Put(_ context.Context, c model.EmergencyContact) (model.EmergencyContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if c.ID == "" {
		if len(r.byOwner[c.OwnerID]) >= model.MaxContactsPerOwner {
			return model.EmergencyContact{}, corecontacts.ErrContactLimit
		}
		c.ID = uuid.NewString()
		c.CreatedAt = now
		r.byOwner[c.OwnerID] = append(r.byOwner[c.OwnerID], c.ID)
	} else if _, ok := r.byID[c.ID]; !ok {
		return model.EmergencyContact{}, corecontacts.ErrNotFound
	}
	c.UpdatedAt = now
	if c.IsPrimary {
		for _, id := range r.byOwner[c.OwnerID] {
			if id == c.ID {
				continue
			}
			prev := r.byID[id]
			if prev.IsPrimary {
				prev.IsPrimary = false
				prev.UpdatedAt = now
				r.byID[id] = prev
			}
		}
	}
	r.byID[c.ID] = c
	return c, nil
}

// Remove deletes a contact.
func (r *MemoryRegistry) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return corecontacts.ErrNotFound
	}
	delete(r.byID, id)
	owned := r.byOwner[c.OwnerID]
	for i, oid := range owned {
		if oid == id {
			r.byOwner[c.OwnerID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	return nil
}
