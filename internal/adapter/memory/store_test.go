package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

func pendingRide(passenger uuid.UUID, at time.Time) models.Ride {
	return models.Ride{
		ID:           uuid.New(),
		CreatedAt:    at,
		Status:       types.StatusPending,
		Pickup:       models.Location{Latitude: 43.238949, Longitude: 76.889709},
		Dropoff:      models.Location{Latitude: 43.222015, Longitude: 76.851511},
		PassengerID:  passenger,
		VehicleClass: types.DefaultVehicleClass,
	}
}

func TestStore_Fetch(t *testing.T) {
	passenger := uuid.New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	old := pendingRide(passenger, base)
	mid := pendingRide(passenger, base.Add(time.Minute))
	newest := pendingRide(passenger, base.Add(2*time.Minute))
	other := pendingRide(uuid.New(), base.Add(3*time.Minute))

	s := NewStore(nil)
	s.Seed(mid, other, newest, old)

	got, err := s.Fetch(context.Background(), models.RideFilter{PassengerID: &passenger, Limit: 2}, models.NewestFirst)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != newest.ID || got[1].ID != mid.ID {
		t.Fatalf("newest first with limit: got %v", got)
	}

	got, err = s.Fetch(context.Background(), models.RideFilter{PassengerID: &passenger}, models.OldestFirst)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 3 || got[0].ID != old.ID {
		t.Fatalf("oldest first: got %v", got)
	}
}

func TestStore_InsertDuplicate(t *testing.T) {
	s := NewStore(nil)
	r := pendingRide(uuid.New(), time.Now())

	if _, err := s.Insert(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(context.Background(), r); !errors.Is(err, types.ErrInvalidRide) {
		t.Fatalf("duplicate insert: got %v, want ErrInvalidRide", err)
	}
}

func TestStore_UpdatePrecondition(t *testing.T) {
	s := NewStore(nil)
	r := pendingRide(uuid.New(), time.Now())
	s.Seed(r)

	driver := uuid.New()
	accepted := types.StatusAccepted
	patch := models.RidePatch{Status: &accepted, DriverID: &driver}
	pre := &models.Precondition{Status: types.StatusPending}

	got, err := s.Update(context.Background(), r.ID, patch, pre)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != types.StatusAccepted || !got.AssignedTo(driver) {
		t.Fatalf("accept: got %+v", got)
	}

	// A second driver racing for the same ride loses.
	rival := uuid.New()
	_, err = s.Update(context.Background(), r.ID, models.RidePatch{Status: &accepted, DriverID: &rival}, pre)
	if !errors.Is(err, types.ErrCommandRejected) {
		t.Fatalf("second accept: got %v, want ErrCommandRejected", err)
	}
	stored, _ := s.Get(r.ID)
	if !stored.AssignedTo(driver) {
		t.Fatalf("stored ride reassigned to %v", stored.DriverID)
	}
}

func TestStore_UpdateChecksTransition(t *testing.T) {
	s := NewStore(nil)
	r := pendingRide(uuid.New(), time.Now())
	s.Seed(r)

	completed := types.StatusCompleted
	driver := uuid.New()
	_, err := s.Update(context.Background(), r.ID, models.RidePatch{Status: &completed, DriverID: &driver}, nil)
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("pending -> completed: got %v, want ErrInvalidTransition", err)
	}

	if _, err := s.Update(context.Background(), uuid.New(), models.RidePatch{}, nil); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("unknown ride: got %v, want ErrRideNotFound", err)
	}
}

func TestStore_UpdateKeepsDriverToOneActiveRide(t *testing.T) {
	s := NewStore(nil)
	first := pendingRide(uuid.New(), time.Now())
	second := pendingRide(uuid.New(), time.Now())
	s.Seed(first, second)

	driver := uuid.New()
	accepted := types.StatusAccepted
	patch := models.RidePatch{Status: &accepted, DriverID: &driver}
	pre := &models.Precondition{Status: types.StatusPending}

	if _, err := s.Update(context.Background(), first.ID, patch, pre); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := s.Update(context.Background(), second.ID, patch, pre); !errors.Is(err, types.ErrDriverBusy) {
		t.Fatalf("second accept: got %v, want ErrDriverBusy", err)
	}
	if stored, _ := s.Get(second.ID); stored.Status != types.StatusPending || stored.DriverID != nil {
		t.Fatalf("second ride changed: %+v", stored)
	}

	// advancing the held ride is not a second one
	inProgress := types.StatusInProgress
	if _, err := s.Update(context.Background(), first.ID, models.RidePatch{Status: &inProgress}, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	completed := types.StatusCompleted
	if _, err := s.Update(context.Background(), first.ID, models.RidePatch{Status: &completed}, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := s.Update(context.Background(), second.ID, patch, pre); err != nil {
		t.Fatalf("accept after completion: %v", err)
	}
}

func TestStore_PublishesChanges(t *testing.T) {
	feed := NewFeed()
	s := NewStore(feed)

	events := make(chan models.ChangeEvent, 4)
	sub, err := feed.Subscribe(context.Background(), func(_ context.Context, ev models.ChangeEvent) {
		events <- ev
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	r := pendingRide(uuid.New(), time.Now())
	if _, err := s.Insert(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	driver := uuid.New()
	accepted := types.StatusAccepted
	if _, err := s.Update(context.Background(), r.ID, models.RidePatch{Status: &accepted, DriverID: &driver}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []types.EventKind{types.EventCreated, types.EventUpdated}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind != kind || ev.Record.ID != r.ID {
				t.Fatalf("event %d: got %s for %s", i, ev.Kind, ev.Record.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d: timed out", i)
		}
	}
}

func TestFeed_UnsubscribeStopsDelivery(t *testing.T) {
	feed := NewFeed()

	delivered := make(chan struct{}, 8)
	sub, err := feed.Subscribe(context.Background(), func(context.Context, models.ChangeEvent) {
		delivered <- struct{}{}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	feed.Publish(models.ChangeEvent{Kind: types.EventCreated})
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("first event not delivered")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	feed.Publish(models.ChangeEvent{Kind: types.EventCreated})

	select {
	case <-delivered:
		t.Fatal("event delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_SubscribeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFeed().Subscribe(ctx, func(context.Context, models.ChangeEvent) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
