package geoloc

import (
	"context"
	"errors"
	"testing"
	"time"

	coregeoloc "github.com/resqlink/resqlink/core/geoloc"
	"github.com/resqlink/resqlink/core/model"
)

func TestCurrentLocation(t *testing.T) {
	p := NewStaticProvider()
	if _, err := p.CurrentLocation(context.Background()); !errors.Is(err, coregeoloc.ErrNoFix) {
		t.Fatalf("want ErrNoFix, got %v", err)
	}

	p.Set(model.Location{Latitude: 28.6, Longitude: 77.2})
	loc, err := p.CurrentLocation(context.Background())
	if err != nil {
		t.Fatalf("current location: %v", err)
	}
	if loc.Latitude != 28.6 || loc.Longitude != 77.2 {
		t.Fatalf("unexpected fix: %+v", loc)
	}
	if loc.CapturedAt.IsZero() {
		t.Fatal("Set must stamp the fix time")
	}
}

func TestLocationUpdates(t *testing.T) {
	p := NewStaticProvider()
	p.Set(model.Location{Latitude: 1, Longitude: 2})
	stream, cancel, err := p.LocationUpdates(context.Background(), 5*time.Millisecond)
	if err != nil {
		t.Fatalf("updates: %v", err)
	}
	defer cancel()

	select {
	case loc := <-stream:
		if loc.Latitude != 1 {
			t.Fatalf("unexpected fix: %+v", loc)
		}
	case <-time.After(time.Second):
		t.Fatal("no fix delivered")
	}
}

func TestLocationUpdates_CancelClosesStream(t *testing.T) {
	p := NewStaticProvider()
	p.Set(model.Location{Latitude: 1, Longitude: 2})
	stream, cancel, err := p.LocationUpdates(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("updates: %v", err)
	}
	cancel()
	cancel() // idempotent

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-stream:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}
