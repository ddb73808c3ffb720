package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Ride is the only entity of the system.
// Pickup and Dropoff never change after creation.
type Ride struct {
	ID             uuid.UUID          `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Status         types.RideStatus   `json:"status"`
	Pickup         Location           `json:"pickup"`
	Dropoff        Location           `json:"dropoff"`
	EstimatedPrice *float64           `json:"estimated_price,omitempty"`
	FinalPrice     *float64           `json:"final_price,omitempty"`
	PassengerID    uuid.UUID          `json:"passenger_id"`
	DriverID       *uuid.UUID         `json:"driver_id,omitempty"`
	VehicleClass   types.VehicleClass `json:"vehicle_type"`
}

// Validate checks the record invariants:
// status is known, driver is absent iff pending, final price only once completed.
func (r *Ride) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil ride", types.ErrInvalidRide)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", types.ErrInvalidRide)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, r.Status)
	}
	if (r.DriverID == nil) != (r.Status == types.StatusPending) {
		return fmt.Errorf("%w: driver must be assigned exactly when status is past pending (status %s)", types.ErrInvalidRide, r.Status)
	}
	if r.FinalPrice != nil && r.Status != types.StatusCompleted {
		return fmt.Errorf("%w: final price set before completion", types.ErrInvalidRide)
	}
	return nil
}

// AssignedTo reports whether driverID is the ride's assigned driver.
func (r *Ride) AssignedTo(driverID uuid.UUID) bool {
	return r.DriverID != nil && *r.DriverID == driverID
}

// Clone returns a deep copy so views never share pointers with each other.
func (r Ride) Clone() Ride {
	c := r
	if r.EstimatedPrice != nil {
		p := *r.EstimatedPrice
		c.EstimatedPrice = &p
	}
	if r.FinalPrice != nil {
		p := *r.FinalPrice
		c.FinalPrice = &p
	}
	if r.DriverID != nil {
		d := *r.DriverID
		c.DriverID = &d
	}
	return c
}

// RidePatch lists the mutable fields of a ride. Nil means "leave unchanged".
type RidePatch struct {
	Status     *types.RideStatus `json:"status,omitempty"`
	DriverID   *uuid.UUID        `json:"driver_id,omitempty"`
	FinalPrice *float64          `json:"final_price,omitempty"`
}

// ApplyTo returns a copy of r with the patch applied.
func (p RidePatch) ApplyTo(r Ride) Ride {
	out := r.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.DriverID != nil {
		d := *p.DriverID
		out.DriverID = &d
	}
	if p.FinalPrice != nil {
		f := *p.FinalPrice
		out.FinalPrice = &f
	}
	return out
}

// Precondition guards a remote update: it only commits if the stored
// record still matches.
type Precondition struct {
	Status   types.RideStatus
	DriverID *uuid.UUID
}

// Holds reports whether r satisfies the precondition.
func (p Precondition) Holds(r Ride) bool {
	if r.Status != p.Status {
		return false
	}
	if p.DriverID != nil && !r.AssignedTo(*p.DriverID) {
		return false
	}
	return true
}

// RideFilter selects rides in a store fetch. Zero fields are ignored.
type RideFilter struct {
	ID          *uuid.UUID
	PassengerID *uuid.UUID
	DriverID    *uuid.UUID
	Statuses    []types.RideStatus
	Limit       int
}

// Matches reports whether r passes the filter (limit is not considered).
func (f RideFilter) Matches(r Ride) bool {
	if f.ID != nil && r.ID != *f.ID {
		return false
	}
	if f.PassengerID != nil && r.PassengerID != *f.PassengerID {
		return false
	}
	if f.DriverID != nil && !r.AssignedTo(*f.DriverID) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type Order string

const (
	NewestFirst Order = "created_at_desc"
	OldestFirst Order = "created_at_asc"
)
