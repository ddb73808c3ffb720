package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// Store is an in-process ride store with the same conditional update
// semantics as the postgres one. Every mutation is published to the feed,
// if any, the way the database trigger does.
type Store struct {
	mu    sync.Mutex
	rides map[uuid.UUID]models.Ride
	feed  *Feed
}

func NewStore(feed *Feed) *Store {
	return &Store{
		rides: make(map[uuid.UUID]models.Ride),
		feed:  feed,
	}
}

func (s *Store) Fetch(ctx context.Context, filter models.RideFilter, order models.Order) ([]models.Ride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]models.Ride, 0)
	for _, r := range s.rides {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Ride) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if order == models.OldestFirst {
			return c
		}
		return -c
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, ride models.Ride) (*models.Ride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ride.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, ok := s.rides[ride.ID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: ride %s already exists", types.ErrInvalidRide, ride.ID)
	}
	stored := ride.Clone()
	s.rides[ride.ID] = stored
	s.publish(types.EventCreated, stored)
	s.mu.Unlock()

	out := stored.Clone()
	return &out, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, patch models.RidePatch, pre *models.Precondition) (*models.Ride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rides[id]
	if !ok {
		return nil, types.ErrRideNotFound
	}
	if pre != nil && !pre.Holds(cur) {
		return nil, fmt.Errorf("%w: ride %s is %s", types.ErrCommandRejected, id, cur.Status)
	}
	if patch.Status != nil && *patch.Status != cur.Status && !types.CanTransition(cur.Status, *patch.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, cur.Status, *patch.Status)
	}

	next := patch.ApplyTo(cur)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if s.driverBusy(next) {
		return nil, fmt.Errorf("%w: driver %s already has an active ride", types.ErrDriverBusy, *next.DriverID)
	}
	s.rides[id] = next
	s.publish(types.EventUpdated, next)

	out := next.Clone()
	return &out, nil
}

// driverBusy reports whether r would give its driver a second active ride.
func (s *Store) driverBusy(r models.Ride) bool {
	if r.DriverID == nil || !r.Status.IsActive() {
		return false
	}
	for id, other := range s.rides {
		if id != r.ID && other.Status.IsActive() && other.AssignedTo(*r.DriverID) {
			return true
		}
	}
	return false
}

// Seed stores rides as they are, without publishing events.
func (s *Store) Seed(rides ...models.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rides {
		s.rides[r.ID] = r.Clone()
	}
}

// Get returns the stored record of id.
func (s *Store) Get(id uuid.UUID) (models.Ride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	return r.Clone(), ok
}

func (s *Store) publish(kind types.EventKind, r models.Ride) {
	if s.feed != nil {
		s.feed.Publish(models.ChangeEvent{Kind: kind, Record: r.Clone()})
	}
}
