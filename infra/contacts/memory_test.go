package contacts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	corecontacts "github.com/resqlink/resqlink/core/contacts"
	"github.com/resqlink/resqlink/core/model"
)

func TestPut_EnforcesContactLimit(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	for i := 0; i < model.MaxContactsPerOwner; i++ {
		_, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: fmt.Sprintf("c%d", i), Phone: fmt.Sprintf("+9%d", i)})
		if err != nil {
			t.Fatalf("contact %d: %v", i, err)
		}
	}
	_, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: "extra", Phone: "+90"})
	if !errors.Is(err, corecontacts.ErrContactLimit) {
		t.Fatalf("want ErrContactLimit, got %v", err)
	}
	// The limit is per owner.
	if _, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u2", Name: "other"}); err != nil {
		t.Fatalf("other owner: %v", err)
	}
}

func TestPut_SinglePrimary(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	first, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: "a", IsPrimary: true})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: "b", IsPrimary: true})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	list, err := r.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	primaries := 0
	for _, c := range list {
		if c.IsPrimary {
			primaries++
			if c.ID != second.ID {
				t.Fatalf("wrong primary: %+v", c)
			}
		}
	}
	if primaries != 1 {
		t.Fatalf("got %d primaries, want 1", primaries)
	}
	if list[0].ID != second.ID {
		t.Fatal("primary contact must list first")
	}
	_ = first
}

func TestPut_UpdateExisting(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	c, _ := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: "a", Phone: "+91"})
	c.Phone = "+92"
	updated, err := r.Put(ctx, c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "+92" {
		t.Fatalf("phone = %q", updated.Phone)
	}
	list, _ := r.ListByOwner(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("update must not duplicate: %d contacts", len(list))
	}
}

func TestPut_UnknownIDFails(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.Put(context.Background(), model.EmergencyContact{ID: "ghost", OwnerID: "u1"})
	if !errors.Is(err, corecontacts.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()
	c, _ := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: "a"})
	if err := r.Remove(ctx, c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, _ := r.ListByOwner(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("contact survived removal: %+v", list)
	}
	if err := r.Remove(ctx, c.ID); !errors.Is(err, corecontacts.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// Removal frees a slot under the cap.
	for i := 0; i < model.MaxContactsPerOwner; i++ {
		if _, err := r.Put(ctx, model.EmergencyContact{OwnerID: "u1", Name: fmt.Sprintf("c%d", i)}); err != nil {
			t.Fatalf("refill %d: %v", i, err)
		}
	}
}
