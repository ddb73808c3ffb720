package models

import (
	"errors"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

func TestParseChangeEvent(t *testing.T) {
	payload := `{
		"kind": "updated",
		"record": {
			"id": "4b1f7b5e-8c3a-4c57-9a3e-1f1f0c3c9d11",
			"created_at": "2024-05-01T12:00:00.123456+00:00",
			"status": "accepted",
			"pickup": {"latitude": 40.7128, "longitude": -74.006, "address": ""},
			"dropoff": {"latitude": 40.7589, "longitude": -73.9851, "address": ""},
			"estimated_price": 15.84,
			"final_price": null,
			"passenger_id": "0c0b8a53-52f6-4b0e-8c38-0e5f0b5c7a01",
			"driver_id": "9d6c2b1a-3f4e-4d5c-8b7a-6e5d4c3b2a10",
			"vehicle_type": "standard"
		}
	}`

	ev, err := ParseChangeEvent([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != types.EventUpdated || ev.Record.Status != types.StatusAccepted {
		t.Fatalf("event = %+v", ev)
	}
	if ev.Record.DriverID == nil || ev.Record.FinalPrice != nil {
		t.Fatalf("nullable fields decoded wrong: %+v", ev.Record)
	}
	if *ev.Record.EstimatedPrice != 15.84 {
		t.Fatalf("estimated price = %v", *ev.Record.EstimatedPrice)
	}
}

func TestParseChangeEvent_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"unknown status": `{"kind":"updated","record":{"id":"4b1f7b5e-8c3a-4c57-9a3e-1f1f0c3c9d11","status":"cancelled"}}`,
		"unknown kind":   `{"kind":"deleted","record":{"id":"4b1f7b5e-8c3a-4c57-9a3e-1f1f0c3c9d11","status":"pending"}}`,
		"driver on pending": `{"kind":"created","record":{"id":"4b1f7b5e-8c3a-4c57-9a3e-1f1f0c3c9d11","status":"pending",
			"driver_id":"9d6c2b1a-3f4e-4d5c-8b7a-6e5d4c3b2a10"}}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseChangeEvent([]byte(payload))
			if !errors.Is(err, types.ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
