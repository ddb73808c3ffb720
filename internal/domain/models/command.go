package models

import (
	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// Command is a locally issued ride command.
// The set of implementations is closed: CreateRide, AcceptRide, AdvanceStatus.
type Command interface {
	Kind() types.CommandKind
	// Target is the ride the command touches.
	Target() uuid.UUID
	command()
}

// CreateRide books a new ride for the acting passenger.
// ID is generated by the client so the optimistic record and the stored
// record share their identity.
type CreateRide struct {
	ID           uuid.UUID
	Pickup       Location
	Dropoff      Location
	VehicleClass types.VehicleClass
}

// AcceptRide assigns a pending ride to the acting driver.
type AcceptRide struct {
	RideID uuid.UUID
}

// AdvanceStatus moves the acting driver's ride one step forward.
type AdvanceStatus struct {
	RideID uuid.UUID
}

func (CreateRide) Kind() types.CommandKind    { return types.CommandCreate }
func (AcceptRide) Kind() types.CommandKind    { return types.CommandAccept }
func (AdvanceStatus) Kind() types.CommandKind { return types.CommandAdvance }

func (c CreateRide) Target() uuid.UUID    { return c.ID }
func (c AcceptRide) Target() uuid.UUID    { return c.RideID }
func (c AdvanceStatus) Target() uuid.UUID { return c.RideID }

func (CreateRide) command()    {}
func (AcceptRide) command()    {}
func (AdvanceStatus) command() {}
