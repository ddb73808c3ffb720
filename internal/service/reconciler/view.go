package reconciler

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// View is one actor's local picture of the rides it cares about.
//
// Views are values: every fold or decision returns a new View and never
// writes into slices or records reachable from an older one.
type View struct {
	Actor models.Actor `json:"actor"`

	// driver role
	Available []models.Ride `json:"available_rides"`
	Active    *models.Ride  `json:"active_ride"`

	// passenger role, newest first
	History []models.Ride `json:"history"`

	// last status of rides that left the view
	departed departed
}

func NewView(actor models.Actor) View {
	return View{
		Actor:     actor,
		Available: []models.Ride{},
		History:   []models.Ride{},
	}
}

// Clone returns a copy that shares nothing with v.
func (v View) Clone() View {
	out := View{
		Actor:     v.Actor,
		Available: cloneRides(v.Available),
		History:   cloneRides(v.History),
		departed:  v.departed,
	}
	if v.Active != nil {
		a := v.Active.Clone()
		out.Active = &a
	}
	return out
}

// Ride looks a ride up in any part of the view.
func (v View) Ride(id uuid.UUID) (models.Ride, bool) {
	if v.Active != nil && v.Active.ID == id {
		return *v.Active, true
	}
	if i := indexOf(v.Available, id); i >= 0 {
		return v.Available[i], true
	}
	if i := indexOf(v.History, id); i >= 0 {
		return v.History[i], true
	}
	return models.Ride{}, false
}

// heldRank is the highest lifecycle rank v knows for ride id, -1 if unknown.
func (v View) heldRank(id uuid.UUID) int {
	rank := v.departed.status(id).Rank()
	if r, ok := v.Ride(id); ok {
		rank = max(rank, r.Status.Rank())
	}
	return rank
}

// departedLimit is the size of one generation of departed rides.
const departedLimit = 128

// departed remembers the last status of rides that left a view so a late
// delivery cannot bring them back. It holds two generations of at most
// departedLimit entries; the older one is dropped when the recent one fills.
//
// Both maps are immutable once built. An empty status in recent hides the
// entry in older.
type departed struct {
	recent map[uuid.UUID]types.RideStatus
	older  map[uuid.UUID]types.RideStatus
}

func (d departed) status(id uuid.UUID) types.RideStatus {
	if s, ok := d.recent[id]; ok {
		return s
	}
	return d.older[id]
}

func (d departed) len() int {
	return len(d.recent) + len(d.older)
}

// remember raises the departed status of id, never lowers it.
func (d departed) remember(id uuid.UUID, status types.RideStatus) departed {
	if d.status(id).Rank() >= status.Rank() {
		return d
	}
	return d.with(id, status)
}

// with overwrites the departed status of id; an empty status forgets it.
func (d departed) with(id uuid.UUID, status types.RideStatus) departed {
	if d.status(id) == status {
		return d
	}
	if len(d.recent) >= departedLimit {
		d.older, d.recent = d.recent, nil
	}
	recent := make(map[uuid.UUID]types.RideStatus, len(d.recent)+1)
	maps.Copy(recent, d.recent)
	recent[id] = status
	d.recent = recent
	return d
}

func cloneRides(rides []models.Ride) []models.Ride {
	out := make([]models.Ride, len(rides))
	for i, r := range rides {
		out[i] = r.Clone()
	}
	return out
}

func indexOf(rides []models.Ride, id uuid.UUID) int {
	return slices.IndexFunc(rides, func(r models.Ride) bool { return r.ID == id })
}

// without returns rides minus id. The input slice is reused only when id is absent.
func without(rides []models.Ride, id uuid.UUID) []models.Ride {
	i := indexOf(rides, id)
	if i < 0 {
		return rides
	}
	out := make([]models.Ride, 0, len(rides)-1)
	out = append(out, rides[:i]...)
	return append(out, rides[i+1:]...)
}

func prepend(rides []models.Ride, r models.Ride) []models.Ride {
	out := make([]models.Ride, 0, len(rides)+1)
	out = append(out, r.Clone())
	return append(out, rides...)
}

func replaceAt(rides []models.Ride, i int, r models.Ride) []models.Ride {
	out := slices.Clone(rides)
	out[i] = r.Clone()
	return out
}

func insertAt(rides []models.Ride, i int, r models.Ride) []models.Ride {
	i = min(max(i, 0), len(rides))
	out := make([]models.Ride, 0, len(rides)+1)
	out = append(out, rides[:i]...)
	out = append(out, r.Clone())
	return append(out, rides[i:]...)
}

// insertNewestFirst keeps rides ordered by creation time, newest first.
func insertNewestFirst(rides []models.Ride, r models.Ride) []models.Ride {
	i := slices.IndexFunc(rides, func(x models.Ride) bool { return x.CreatedAt.Before(r.CreatedAt) })
	if i < 0 {
		i = len(rides)
	}
	return insertAt(rides, i, r)
}

func ridePtr(r models.Ride) *models.Ride {
	c := r.Clone()
	return &c
}
