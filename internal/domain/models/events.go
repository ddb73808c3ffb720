package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// ChangeEvent is one change feed notification: the kind of mutation and
// the full resulting record.
type ChangeEvent struct {
	Kind   types.EventKind `json:"kind"`
	Record Ride            `json:"record"`
}

func (e ChangeEvent) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", types.ErrInvalidEvent, e.Kind)
	}
	if err := e.Record.Validate(); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidEvent, err)
	}
	return nil
}

// RoutingKey is the broker routing key of the event, e.g. "ride.updated.accepted".
func (e ChangeEvent) RoutingKey() string {
	return fmt.Sprintf("ride.%s.%s", e.Kind, e.Record.Status)
}

// ParseChangeEvent decodes a JSON {kind, record} payload and rejects
// anything that breaks the ride invariants.
func ParseChangeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, errors.Join(types.ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return ChangeEvent{}, err
	}
	ev.Record.CreatedAt = ev.Record.CreatedAt.UTC()
	return ev, nil
}
