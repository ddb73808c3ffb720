package reconciler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/pricing"
	"github.com/Temutjin2k/ride-hail-client/pkg/validator"
)

// Effect is a remote mutation requested by a decision.
type Effect interface {
	effect()
}

// InsertEffect asks the store to insert a new ride.
type InsertEffect struct {
	Ride models.Ride
}

// UpdateEffect asks the store for a precondition-guarded update.
type UpdateEffect struct {
	RideID       uuid.UUID
	Patch        models.RidePatch
	Precondition *models.Precondition
}

func (InsertEffect) effect() {}
func (UpdateEffect) effect() {}

// Undo describes how to take an optimistic change back.
type Undo struct {
	Kind   types.CommandKind
	RideID uuid.UUID
	// Prior is the record before the optimistic change, nil for create.
	Prior *models.Ride
	// Index is the position Prior had in the available list.
	Index int
	// Departed is the departed status of the ride before the change, "" if none.
	Departed types.RideStatus
}

// Decision is the outcome of Decide.
type Decision struct {
	View    View
	Effects []Effect
	Undo    Undo
	// Existing is set when the command was already carried out; the view
	// is unchanged and there are no effects.
	Existing *models.Ride
}

// Fold merges one change event into v. It is idempotent: folding the same
// event twice gives the same view as folding it once.
//
// An updated event whose status is behind what v already holds for the ride
// is a late delivery and only removes the ride from the available list.
//
// A ride that leaves the view is remembered as departed so its late echoes
// stay out. Drivers also remember foreign rides already past pending, whose
// created event may still be on its way.
func Fold(v View, ev models.ChangeEvent) View {
	rec := ev.Record

	if rec.Status.Rank() < v.heldRank(rec.ID) {
		if ev.Kind == types.EventUpdated {
			v.Available = without(v.Available, rec.ID)
		}
		return v
	}

	_, track := v.Ride(rec.ID)

	var out View
	switch v.Actor.Role {
	case types.RoleDriver:
		out = foldDriver(v, ev)
		track = track || rec.Status != types.StatusPending
	case types.RolePassenger:
		out = foldPassenger(v, ev)
	default:
		return v
	}

	if _, still := out.Ride(rec.ID); track && !still {
		out.departed = out.departed.remember(rec.ID, rec.Status)
	}
	return out
}

func foldDriver(v View, ev models.ChangeEvent) View {
	rec := ev.Record

	switch ev.Kind {
	case types.EventCreated:
		// a driver with an active ride is not offered new rides
		if rec.Status != types.StatusPending || v.Active != nil || indexOf(v.Available, rec.ID) >= 0 {
			return v
		}
		v.Available = prepend(v.Available, rec)

	case types.EventUpdated:
		v.Available = without(v.Available, rec.ID)

		isActive := v.Active != nil && v.Active.ID == rec.ID
		switch {
		case rec.Status.IsActive() && rec.AssignedTo(v.Actor.ID):
			v.Active = ridePtr(rec)
		case isActive && rec.Status == types.StatusCompleted:
			v.Active = nil
		case isActive && !rec.AssignedTo(v.Actor.ID):
			// optimistic accept lost the race to another driver
			v.Active = nil
		}
	}

	return v
}

func foldPassenger(v View, ev models.ChangeEvent) View {
	rec := ev.Record
	if rec.PassengerID != v.Actor.ID {
		return v
	}

	if i := indexOf(v.History, rec.ID); i >= 0 {
		v.History = replaceAt(v.History, i, rec)
		return v
	}
	v.History = insertNewestFirst(v.History, rec)
	return v
}

// Decide checks cmd against the transition rules for v's actor and returns the
// optimistic view together with the remote effects that make it real.
func Decide(v View, cmd models.Command, now time.Time) (Decision, error) {
	switch c := cmd.(type) {
	case models.CreateRide:
		return decideCreate(v, c, now)
	case models.AcceptRide:
		return decideAccept(v, c)
	case models.AdvanceStatus:
		return decideAdvance(v, c)
	default:
		return Decision{}, fmt.Errorf("unknown command %T", cmd)
	}
}

func decideCreate(v View, c models.CreateRide, now time.Time) (Decision, error) {
	if !v.Actor.IsPassenger() {
		return Decision{}, fmt.Errorf("%w: only passengers can book rides", types.ErrForbidden)
	}
	if c.ID == uuid.Nil {
		return Decision{}, fmt.Errorf("%w: ride id must be generated before dispatch", types.ErrInvalidRide)
	}
	if !resolved(c.Pickup) || !resolved(c.Dropoff) {
		return Decision{}, fmt.Errorf("%w: pickup and dropoff coordinates must be resolved", types.ErrInvalidRide)
	}
	// a passenger view only holds the passenger's own rides, so this is a retry
	if existing, ok := v.Ride(c.ID); ok {
		return Decision{View: v, Existing: ridePtr(existing)}, nil
	}

	class := c.VehicleClass
	if class == "" {
		class = types.DefaultVehicleClass
	}
	price := pricing.EstimatePrice(c.Pickup, c.Dropoff)

	ride := models.Ride{
		ID:             c.ID,
		CreatedAt:      now.UTC(),
		Status:         types.StatusPending,
		Pickup:         c.Pickup,
		Dropoff:        c.Dropoff,
		EstimatedPrice: &price,
		PassengerID:    v.Actor.ID,
		VehicleClass:   class,
	}

	undo := Undo{Kind: types.CommandCreate, RideID: ride.ID}
	v.History = prepend(v.History, ride)

	return Decision{
		View:    v,
		Effects: []Effect{InsertEffect{Ride: ride}},
		Undo:    undo,
	}, nil
}

func decideAccept(v View, c models.AcceptRide) (Decision, error) {
	if !v.Actor.IsDriver() {
		return Decision{}, fmt.Errorf("%w: only drivers can accept rides", types.ErrForbidden)
	}
	if v.Active != nil {
		return Decision{}, types.ErrDriverBusy
	}

	i := indexOf(v.Available, c.RideID)
	if i < 0 {
		return Decision{}, fmt.Errorf("%w: ride %s is not offered", types.ErrRideNotFound, c.RideID)
	}
	prior := v.Available[i]
	if prior.Status != types.StatusPending {
		return Decision{}, fmt.Errorf("%w: ride is %s", types.ErrInvalidTransition, prior.Status)
	}

	status := types.StatusAccepted
	driver := v.Actor.ID
	patch := models.RidePatch{Status: &status, DriverID: &driver}

	undo := Undo{Kind: types.CommandAccept, RideID: c.RideID, Prior: ridePtr(prior), Index: i, Departed: v.departed.status(c.RideID)}
	accepted := patch.ApplyTo(prior)
	v.Available = without(v.Available, c.RideID)
	v.Active = ridePtr(accepted)

	return Decision{
		View: v,
		Effects: []Effect{UpdateEffect{
			RideID:       c.RideID,
			Patch:        patch,
			Precondition: &models.Precondition{Status: types.StatusPending},
		}},
		Undo: undo,
	}, nil
}

func decideAdvance(v View, c models.AdvanceStatus) (Decision, error) {
	if !v.Actor.IsDriver() {
		return Decision{}, fmt.Errorf("%w: only drivers can advance rides", types.ErrForbidden)
	}
	if v.Active == nil || v.Active.ID != c.RideID {
		return Decision{}, fmt.Errorf("%w: only the assigned driver can advance ride %s", types.ErrForbidden, c.RideID)
	}

	prior := *v.Active
	next, ok := prior.Status.Next()
	if !ok || !prior.Status.IsActive() {
		return Decision{}, fmt.Errorf("%w: cannot advance a %s ride", types.ErrInvalidTransition, prior.Status)
	}

	driver := v.Actor.ID
	patch := models.RidePatch{Status: &next}
	if next == types.StatusCompleted && prior.EstimatedPrice != nil {
		final := *prior.EstimatedPrice
		patch.FinalPrice = &final
	}

	undo := Undo{Kind: types.CommandAdvance, RideID: c.RideID, Prior: ridePtr(prior), Departed: v.departed.status(c.RideID)}
	advanced := patch.ApplyTo(prior)
	if next == types.StatusCompleted {
		v.Active = nil
		// a late echo of an earlier status must not bring the ride back
		v.departed = v.departed.remember(c.RideID, next)
	} else {
		v.Active = ridePtr(advanced)
	}

	return Decision{
		View: v,
		Effects: []Effect{UpdateEffect{
			RideID:       c.RideID,
			Patch:        patch,
			Precondition: &models.Precondition{Status: prior.Status, DriverID: &driver},
		}},
		Undo: undo,
	}, nil
}

// Revert takes an optimistic change back.
func Revert(v View, u Undo) View {
	v.departed = v.departed.with(u.RideID, u.Departed)

	switch u.Kind {
	case types.CommandCreate:
		v.History = without(v.History, u.RideID)

	case types.CommandAccept:
		if v.Active != nil && v.Active.ID == u.RideID {
			v.Active = nil
		}
		if u.Prior != nil && v.Active == nil && indexOf(v.Available, u.RideID) < 0 {
			v.Available = insertAt(v.Available, u.Index, *u.Prior)
		}

	case types.CommandAdvance:
		if u.Prior != nil && (v.Active == nil || v.Active.ID == u.RideID) {
			v.Active = ridePtr(*u.Prior)
		}
	}
	return v
}

func resolved(l models.Location) bool {
	return validator.Latitude(l.Latitude) && validator.Longitude(l.Longitude)
}
