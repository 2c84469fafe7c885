package match

import (
	"context"
	"testing"

	"github.com/resqlink/resqlink/core/helperstatus"
	"github.com/resqlink/resqlink/core/model"
)

var center = model.Location{Latitude: 28.6139, Longitude: 77.2090}

func loc(lat, lon float64) *model.Location {
	return &model.Location{Latitude: lat, Longitude: lon}
}

func fleetWith(helpers ...model.HelperProfile) *helperstatus.MemoryStore {
	fleet := helperstatus.NewMemoryStore()
	for _, h := range helpers {
		fleet.Set(h)
	}
	return fleet
}

func TestFindNearby_FiltersByRadius(t *testing.T) {
	fleet := fleetWith(
		model.HelperProfile{ID: "near", Status: model.HelperAvailable, Location: loc(28.62, 77.21)},
		model.HelperProfile{ID: "gurgaon", Status: model.HelperAvailable, Location: loc(28.4595, 77.0266)},
		model.HelperProfile{ID: "mumbai", Status: model.HelperAvailable, Location: loc(19.0760, 72.8777)},
	)
	m := NewMatcher(fleet, nil)
	cands, err := m.FindNearby(context.Background(), center, 10)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 1 || cands[0].Helper.ID != "near" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
	if cands[0].EtaMinutes < 1 {
		t.Fatalf("ETA must be at least one minute, got %d", cands[0].EtaMinutes)
	}
}

func TestFindNearby_SkipsUnavailableAndNoFix(t *testing.T) {
	fleet := fleetWith(
		model.HelperProfile{ID: "busy", Status: model.HelperBusy, Location: loc(28.62, 77.21)},
		model.HelperProfile{ID: "offline", Status: model.HelperOffline, Location: loc(28.62, 77.21)},
		model.HelperProfile{ID: "nofix", Status: model.HelperAvailable},
		model.HelperProfile{ID: "ok", Status: model.HelperAvailable, Location: loc(28.62, 77.21)},
	)
	m := NewMatcher(fleet, nil)
	cands, err := m.FindNearby(context.Background(), center, 10)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 1 || cands[0].Helper.ID != "ok" {
		t.Fatalf("unexpected candidates: %+v", cands)
	}
}

func TestFindNearby_HonorsHelperRadius(t *testing.T) {
	// Gurgaon is ~29 km out: inside the search radius but outside the
	// helper's own 5 km response radius.
	fleet := fleetWith(
		model.HelperProfile{ID: "small-radius", Status: model.HelperAvailable, Location: loc(28.4595, 77.0266), RadiusKm: 5},
	)
	m := NewMatcher(fleet, nil)
	cands, err := m.FindNearby(context.Background(), center, 50)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("helper outside its own radius must be excluded: %+v", cands)
	}
}

func TestFindNearby_RanksNearerFirst(t *testing.T) {
	fleet := fleetWith(
		model.HelperProfile{ID: "far", Status: model.HelperAvailable, Location: loc(28.70, 77.30)},
		model.HelperProfile{ID: "close", Status: model.HelperAvailable, Location: loc(28.615, 77.21)},
	)
	m := NewMatcher(fleet, nil)
	cands, err := m.FindNearby(context.Background(), center, 20)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("want 2 candidates, got %d", len(cands))
	}
	if cands[0].Helper.ID != "close" {
		t.Fatalf("nearest helper should rank first: %+v", cands)
	}
	if cands[0].Score <= cands[1].Score {
		t.Fatalf("scores not strictly ordered: %f vs %f", cands[0].Score, cands[1].Score)
	}
}

func TestFindNearby_RatingBreaksDistanceTie(t *testing.T) {
	spot := loc(28.62, 77.21)
	fleet := fleetWith(
		model.HelperProfile{ID: "rated", Status: model.HelperAvailable, Location: spot, Rating: 4.8, TotalResponses: 10, SuccessfulResponses: 9},
		model.HelperProfile{ID: "unrated", Status: model.HelperAvailable, Location: spot, Rating: 2.0, TotalResponses: 10, SuccessfulResponses: 2},
	)
	m := NewMatcher(fleet, nil)
	cands, err := m.FindNearby(context.Background(), center, 10)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 2 || cands[0].Helper.ID != "rated" {
		t.Fatalf("rating should break the tie: %+v", cands)
	}
}

func TestFindNearby_EmptyFleet(t *testing.T) {
	m := NewMatcher(helperstatus.NewMemoryStore(), nil)
	cands, err := m.FindNearby(context.Background(), center, 10)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("want no candidates, got %+v", cands)
	}
}

func TestFindNearby_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMatcher(helperstatus.NewMemoryStore(), nil)
	if _, err := m.FindNearby(ctx, center, 10); err == nil {
		t.Fatal("cancelled context must fail the lookup")
	}
}
