package validator

import "testing"

func TestValidator_FirstErrorWins(t *testing.T) {
	v := New()
	v.Check(false, "pickup", "must be provided")
	v.Check(false, "pickup", "second message")
	v.Check(true, "dropoff", "never added")

	if v.Valid() {
		t.Fatalf("validator must be invalid")
	}
	if v.Errors["pickup"] != "must be provided" {
		t.Fatalf("unexpected message: %q", v.Errors["pickup"])
	}
	if _, ok := v.Errors["dropoff"]; ok {
		t.Fatalf("passing check must not add an error")
	}
}

func TestCoordinates(t *testing.T) {
	cases := []struct {
		lat, lng float64
		ok       bool
	}{
		{40.7128, -74.0060, true},
		{90, 180, true},
		{-90.1, 0, false},
		{0, 180.5, false},
	}
	for _, c := range cases {
		if got := Latitude(c.lat) && Longitude(c.lng); got != c.ok {
			t.Errorf("(%v,%v) = %v, want %v", c.lat, c.lng, got, c.ok)
		}
	}
}

func TestCheckCoordinates(t *testing.T) {
	v := New()
	v.CheckLatitude(91, "pickup.latitude")
	v.CheckLongitude(-74.006, "pickup.longitude")
	v.CheckLongitude(-181, "dropoff.longitude")

	if got := v.String(); got != "dropoff.longitude: must be between -180 and 180; pickup.latitude: must be between -90 and 90" {
		t.Fatalf("unexpected errors: %q", got)
	}
}
