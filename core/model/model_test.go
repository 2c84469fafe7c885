package model

import "testing"

func TestAlertStatusRoundTrip(t *testing.T) {
	statuses := []AlertStatus{
		StatusPending, StatusActive, StatusHelpOnWay, StatusResponded,
		StatusResolved, StatusCancelled, StatusFalseAlarm,
	}
	for _, s := range statuses {
		if got := ParseAlertStatus(s.String()); got != s {
			t.Fatalf("round trip %s: got %s", s, got)
		}
	}
}

func TestAlertStatusTerminal(t *testing.T) {
	for _, s := range []AlertStatus{StatusResolved, StatusCancelled, StatusFalseAlarm} {
		if !s.Terminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}
	for _, s := range []AlertStatus{StatusPending, StatusActive, StatusHelpOnWay, StatusResponded} {
		if s.Terminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}

func TestParseAlertType_UnknownMapsToOther(t *testing.T) {
	if got := ParseAlertType("SOMETHING_ELSE"); got != AlertOther {
		t.Fatalf("got %s", got)
	}
	if got := ParseAlertType("MEDICAL"); got != AlertMedical {
		t.Fatalf("got %s", got)
	}
}

func TestLocationValid(t *testing.T) {
	cases := []struct {
		loc  Location
		want bool
	}{
		{Location{Latitude: 28.6, Longitude: 77.2}, true},
		{Location{Latitude: -90, Longitude: 180}, true},
		{Location{Latitude: 90.1, Longitude: 0}, false},
		{Location{Latitude: 0, Longitude: -180.5}, false},
	}
	for _, c := range cases {
		if got := c.loc.Valid(); got != c.want {
			t.Fatalf("Valid(%+v) = %v, want %v", c.loc, got, c.want)
		}
	}
}

func TestResponseStatusTerminal(t *testing.T) {
	if !ResponseCompleted.Terminal() || !ResponseCancelled.Terminal() {
		t.Fatal("COMPLETED and CANCELLED are terminal")
	}
	if ResponseResponding.Terminal() || ResponseArrived.Terminal() {
		t.Fatal("RESPONDING and ARRIVED are not terminal")
	}
}

func TestHelperProfileReachable(t *testing.T) {
	loc := Location{Latitude: 1, Longitude: 2}
	if (HelperProfile{Status: HelperAvailable}).Reachable() {
		t.Fatal("no fix means unreachable")
	}
	if (HelperProfile{Status: HelperBusy, Location: &loc}).Reachable() {
		t.Fatal("busy helper is unreachable")
	}
	if !(HelperProfile{Status: HelperAvailable, Location: &loc}).Reachable() {
		t.Fatal("available helper with a fix is reachable")
	}
}
