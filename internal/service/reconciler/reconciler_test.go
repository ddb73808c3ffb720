package reconciler_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/memory"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

var (
	pickup  = models.Location{Latitude: 40.7128, Longitude: -74.0060}
	dropoff = models.Location{Latitude: 40.7589, Longitude: -73.9851}
	t0      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

// manualFeed delivers events synchronously from Emit.
type manualFeed struct {
	mu       sync.Mutex
	handlers map[int]reconciler.EventHandler
	next     int
}

func newManualFeed() *manualFeed {
	return &manualFeed{handlers: make(map[int]reconciler.EventHandler)}
}

func (f *manualFeed) Subscribe(_ context.Context, h reconciler.EventHandler) (reconciler.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = h
	return &manualSub{feed: f, id: id}, nil
}

func (f *manualFeed) Emit(ev models.ChangeEvent) {
	f.mu.Lock()
	hs := make([]reconciler.EventHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(context.Background(), ev)
	}
}

func (f *manualFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type manualSub struct {
	feed *manualFeed
	id   int
}

func (s *manualSub) Unsubscribe() {
	s.feed.mu.Lock()
	delete(s.feed.handlers, s.id)
	s.feed.mu.Unlock()
}

// flakyStore wraps the memory store with injectable failures.
type flakyStore struct {
	*memory.Store

	mu        sync.Mutex
	fetchErr  error
	insertErr error
	updateErr error
	// afterUpdate runs after a successful update, before the reply
	afterUpdate func(models.Ride)
	// afterFetch runs after the rides were read, before they are returned
	afterFetch func(models.RideFilter)
}

func (s *flakyStore) Fetch(ctx context.Context, f models.RideFilter, o models.Order) ([]models.Ride, error) {
	s.mu.Lock()
	err, hook := s.fetchErr, s.afterFetch
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out, err := s.Store.Fetch(ctx, f, o)
	if err == nil && hook != nil {
		hook(f)
	}
	return out, err
}

func (s *flakyStore) Insert(ctx context.Context, r models.Ride) (*models.Ride, error) {
	s.mu.Lock()
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Insert(ctx, r)
}

func (s *flakyStore) Update(ctx context.Context, id uuid.UUID, p models.RidePatch, pre *models.Precondition) (*models.Ride, error) {
	s.mu.Lock()
	err, hook := s.updateErr, s.afterUpdate
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out, err := s.Store.Update(ctx, id, p, pre)
	if err == nil && hook != nil {
		hook(*out)
	}
	return out, err
}

func (s *flakyStore) set(fn func(s *flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func newStore(rides ...models.Ride) *flakyStore {
	s := &flakyStore{Store: memory.NewStore(nil)}
	s.Seed(rides...)
	return s
}

func pending(passenger uuid.UUID, at time.Time) models.Ride {
	price := 15.84
	return models.Ride{
		ID:             uuid.New(),
		CreatedAt:      at,
		Status:         types.StatusPending,
		Pickup:         pickup,
		Dropoff:        dropoff,
		EstimatedPrice: &price,
		PassengerID:    passenger,
		VehicleClass:   types.DefaultVehicleClass,
	}
}

func assigned(r models.Ride, status types.RideStatus, driver uuid.UUID) models.Ride {
	out := r.Clone()
	out.Status = status
	out.DriverID = &driver
	return out
}

func driver() models.Actor    { return models.Actor{ID: uuid.New(), Role: types.RoleDriver} }
func passenger() models.Actor { return models.Actor{ID: uuid.New(), Role: types.RolePassenger} }

func bootstrapped(t *testing.T, store reconciler.RideStore, feed reconciler.ChangeFeed, actor models.Actor) *reconciler.Reconciler {
	t.Helper()
	r := reconciler.New(store, feed, logger.Nop())
	if err := r.Bootstrap(context.Background(), actor); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return r
}

func rideIDs(rides []models.Ride) []uuid.UUID {
	out := make([]uuid.UUID, len(rides))
	for i, r := range rides {
		out[i] = r.ID
	}
	return out
}

func TestBootstrap_PassengerHistoryNewestFirst(t *testing.T) {
	me := passenger()
	oldest := pending(me.ID, t0)
	middle := pending(me.ID, t0.Add(time.Hour))
	newest := pending(me.ID, t0.Add(2*time.Hour))
	store := newStore(middle, newest, oldest, pending(uuid.New(), t0))
	feed := newManualFeed()

	r := bootstrapped(t, store, feed, me)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Stop()

	want := []uuid.UUID{newest.ID, middle.ID, oldest.ID}
	if got := rideIDs(r.View().History); !reflect.DeepEqual(got, want) {
		t.Fatalf("history = %v, want %v", got, want)
	}

	feed.Emit(models.ChangeEvent{Kind: types.EventUpdated, Record: assigned(middle, types.StatusAccepted, uuid.New())})

	v := r.View()
	if got := rideIDs(v.History); !reflect.DeepEqual(got, want) {
		t.Fatalf("update reordered history: %v", got)
	}
	if v.History[1].Status != types.StatusAccepted {
		t.Fatalf("middle ride was not replaced: %s", v.History[1].Status)
	}
}

func TestBootstrap_DriverWithActiveRideSeesNoOffers(t *testing.T) {
	me := driver()
	active := assigned(pending(uuid.New(), t0), types.StatusInProgress, me.ID)
	store := newStore(active, pending(uuid.New(), t0.Add(time.Minute)))

	v := bootstrapped(t, store, newManualFeed(), me).View()

	if v.Active == nil || v.Active.ID != active.ID {
		t.Fatalf("active = %+v", v.Active)
	}
	if len(v.Available) != 0 {
		t.Fatalf("driver with an active ride is offered %d rides", len(v.Available))
	}
}

func TestBootstrap_DriverWithoutActiveRideSeesPending(t *testing.T) {
	me := driver()
	older := pending(uuid.New(), t0)
	newer := pending(uuid.New(), t0.Add(time.Minute))
	taken := assigned(pending(uuid.New(), t0), types.StatusAccepted, uuid.New())
	store := newStore(older, newer, taken)

	v := bootstrapped(t, store, newManualFeed(), me).View()

	if v.Active != nil {
		t.Fatalf("unexpected active ride")
	}
	if got := rideIDs(v.Available); !reflect.DeepEqual(got, []uuid.UUID{newer.ID, older.ID}) {
		t.Fatalf("available = %v", got)
	}
}

func TestBootstrap_FailureLeavesViewEmpty(t *testing.T) {
	me := passenger()
	store := newStore(pending(me.ID, t0))
	store.set(func(s *flakyStore) { s.fetchErr = errors.New("connection refused") })

	r := reconciler.New(store, newManualFeed(), logger.Nop())
	err := r.Bootstrap(context.Background(), me)

	if !errors.Is(err, types.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if r.Ready() || len(r.View().History) != 0 {
		t.Fatalf("failed bootstrap left a populated view")
	}

	store.set(func(s *flakyStore) { s.fetchErr = nil })
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(r.View().History) != 1 {
		t.Fatalf("retry did not populate the history")
	}
}

func TestBootstrap_RequiresActor(t *testing.T) {
	r := reconciler.New(newStore(), newManualFeed(), logger.Nop())

	err := r.Bootstrap(context.Background(), models.Actor{})
	if !errors.Is(err, types.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestApply_BeforeBootstrap(t *testing.T) {
	r := reconciler.New(newStore(), newManualFeed(), logger.Nop())

	err := r.Apply(context.Background(), models.ChangeEvent{Kind: types.EventCreated, Record: pending(uuid.New(), t0)})
	if !errors.Is(err, types.ErrNotBootstrapped) {
		t.Fatalf("expected ErrNotBootstrapped, got %v", err)
	}
}

func TestApply_RejectsInvalidEvent(t *testing.T) {
	r := bootstrapped(t, newStore(), newManualFeed(), driver())

	bad := pending(uuid.New(), t0)
	bad.Status = "cancelled"
	err := r.Apply(context.Background(), models.ChangeEvent{Kind: types.EventCreated, Record: bad})
	if !errors.Is(err, types.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestDispatch_AcceptRaceHasExactlyOneWinner(t *testing.T) {
	ride := pending(uuid.New(), t0)
	store := newStore(ride)
	a, b := driver(), driver()
	ra := bootstrapped(t, store, newManualFeed(), a)
	rb := bootstrapped(t, store, newManualFeed(), b)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []struct {
		r     *reconciler.Reconciler
		actor models.Actor
	}{{ra, a}, {rb, b}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.r.Dispatch(context.Background(), p.actor, models.AcceptRide{RideID: ride.ID})
		}()
	}
	wg.Wait()

	var winner models.Actor
	var loser *reconciler.Reconciler
	switch {
	case errs[0] == nil && errors.Is(errs[1], types.ErrCommandRejected):
		winner, loser = a, rb
	case errs[1] == nil && errors.Is(errs[0], types.ErrCommandRejected):
		winner, loser = b, ra
	default:
		t.Fatalf("expected exactly one winner, got errors %v and %v", errs[0], errs[1])
	}

	stored, _ := store.Get(ride.ID)
	if !stored.AssignedTo(winner.ID) {
		t.Fatalf("stored driver = %v, want %v", stored.DriverID, winner.ID)
	}

	lv := loser.View()
	if lv.Active != nil {
		t.Fatalf("loser kept an active ride")
	}
	if len(lv.Available) != 0 {
		t.Fatalf("lost ride is still offered to the loser")
	}
}

func TestDispatch_EchoBeforeReplyIsHarmless(t *testing.T) {
	me := driver()
	ride := pending(uuid.New(), t0)
	store := newStore(ride)
	feed := newManualFeed()
	r := bootstrapped(t, store, feed, me)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Stop()

	store.set(func(s *flakyStore) {
		s.afterUpdate = func(stored models.Ride) {
			feed.Emit(models.ChangeEvent{Kind: types.EventUpdated, Record: stored})
		}
	})

	got, err := r.Dispatch(context.Background(), me, models.AcceptRide{RideID: ride.ID})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	v := r.View()
	if v.Active == nil || v.Active.ID != ride.ID || v.Active.Status != types.StatusAccepted {
		t.Fatalf("active = %+v", v.Active)
	}

	// a redelivery after the reply changes nothing
	feed.Emit(models.ChangeEvent{Kind: types.EventUpdated, Record: *got})
	if after := r.View(); !reflect.DeepEqual(after, v) {
		t.Fatalf("echo after reply changed the view")
	}
}

func TestDispatch_RollbackOnStoreFailure(t *testing.T) {
	me := driver()
	ride := assigned(pending(uuid.New(), t0), types.StatusAccepted, me.ID)
	store := newStore(ride)
	r := bootstrapped(t, store, newManualFeed(), me)

	boom := errors.New("connection reset")
	store.set(func(s *flakyStore) { s.updateErr = boom })

	_, err := r.Dispatch(context.Background(), me, models.AdvanceStatus{RideID: ride.ID})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if v := r.View(); v.Active == nil || v.Active.Status != types.StatusAccepted {
		t.Fatalf("optimistic advance was not rolled back: %+v", v.Active)
	}

	// still usable afterwards
	store.set(func(s *flakyStore) { s.updateErr = nil })
	if _, err := r.Dispatch(context.Background(), me, models.AdvanceStatus{RideID: ride.ID}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if v := r.View(); v.Active == nil || v.Active.Status != types.StatusInProgress {
		t.Fatalf("active after retry = %+v", v.Active)
	}
}

func TestDispatch_CreateRollsBackOnInsertFailure(t *testing.T) {
	me := passenger()
	store := newStore()
	r := bootstrapped(t, store, newManualFeed(), me)
	store.set(func(s *flakyStore) { s.insertErr = errors.New("insert failed") })

	_, err := r.Dispatch(context.Background(), me, models.CreateRide{ID: uuid.New(), Pickup: pickup, Dropoff: dropoff})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if n := len(r.View().History); n != 0 {
		t.Fatalf("failed create left %d rides in history", n)
	}
}

func TestDispatch_CreateStoresRide(t *testing.T) {
	me := passenger()
	store := newStore()
	r := bootstrapped(t, store, newManualFeed(), me)
	id := uuid.New()

	got, err := r.Dispatch(context.Background(), me, models.CreateRide{ID: id, Pickup: pickup, Dropoff: dropoff})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != id || got.Status != types.StatusPending || *got.EstimatedPrice != 15.84 {
		t.Fatalf("stored ride = %+v", got)
	}
	if _, ok := store.Get(id); !ok {
		t.Fatalf("ride was not inserted")
	}
	if h := r.View().History; len(h) != 1 || h[0].ID != id {
		t.Fatalf("history = %v", rideIDs(h))
	}
}

func TestDispatch_CompletionRefreshesOffers(t *testing.T) {
	me := driver()
	active := assigned(pending(uuid.New(), t0), types.StatusInProgress, me.ID)
	offer := pending(uuid.New(), t0.Add(time.Minute))
	store := newStore(active, offer)
	r := bootstrapped(t, store, newManualFeed(), me)

	got, err := r.Dispatch(context.Background(), me, models.AdvanceStatus{RideID: active.ID})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != types.StatusCompleted || got.FinalPrice == nil || *got.FinalPrice != 15.84 {
		t.Fatalf("completed ride = %+v", got)
	}

	v := r.View()
	if v.Active != nil {
		t.Fatalf("completed ride is still active")
	}
	if ids := rideIDs(v.Available); !reflect.DeepEqual(ids, []uuid.UUID{offer.ID}) {
		t.Fatalf("available after completion = %v", ids)
	}
}

func TestDispatch_AcceptDuringRefreshSurvivesSnapshot(t *testing.T) {
	me := driver()
	x := pending(uuid.New(), t0)
	y := pending(uuid.New(), t0.Add(time.Minute))
	store := newStore(x, y)
	r := bootstrapped(t, store, newManualFeed(), me)

	// hold the snapshot after it read both rides as pending
	fetched := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.set(func(s *flakyStore) {
		s.afterFetch = func(f models.RideFilter) {
			if reflect.DeepEqual(f.Statuses, []types.RideStatus{types.StatusPending}) {
				once.Do(func() {
					close(fetched)
					<-release
				})
			}
		}
	})

	refreshed := make(chan error, 1)
	go func() { refreshed <- r.Refresh(context.Background()) }()
	<-fetched

	if _, err := r.Dispatch(context.Background(), me, models.AcceptRide{RideID: x.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	close(release)
	if err := <-refreshed; err != nil {
		t.Fatalf("refresh: %v", err)
	}

	v := r.View()
	if v.Active == nil || v.Active.ID != x.ID || v.Active.Status != types.StatusAccepted {
		t.Fatalf("stale snapshot dropped the accepted ride: active = %+v", v.Active)
	}
	if ids := rideIDs(v.Available); !reflect.DeepEqual(ids, []uuid.UUID{y.ID}) {
		t.Fatalf("available = %v, want only %v", ids, y.ID)
	}

	_, err := r.Dispatch(context.Background(), me, models.AcceptRide{RideID: y.ID})
	if !errors.Is(err, types.ErrDriverBusy) {
		t.Fatalf("second accept: got %v, want ErrDriverBusy", err)
	}
	if stored, _ := store.Get(y.ID); stored.Status != types.StatusPending {
		t.Fatalf("second ride was assigned: %+v", stored)
	}
}

func TestDispatch_StoreRejectsSecondActiveRide(t *testing.T) {
	me := driver()
	x := pending(uuid.New(), t0)
	y := pending(uuid.New(), t0.Add(time.Minute))
	store := newStore(x, y)

	// two sessions of the same driver that do not hear each other
	first := bootstrapped(t, store, newManualFeed(), me)
	second := bootstrapped(t, store, newManualFeed(), me)

	if _, err := first.Dispatch(context.Background(), me, models.AcceptRide{RideID: x.ID}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	_, err := second.Dispatch(context.Background(), me, models.AcceptRide{RideID: y.ID})
	if !errors.Is(err, types.ErrDriverBusy) {
		t.Fatalf("got %v, want ErrDriverBusy", err)
	}
	if stored, _ := store.Get(y.ID); stored.Status != types.StatusPending || stored.DriverID != nil {
		t.Fatalf("second ride was assigned: %+v", stored)
	}

	v := second.View()
	if v.Active == nil || v.Active.ID != x.ID {
		t.Fatalf("rejected session did not pick up the real active ride: %+v", v.Active)
	}
	if len(v.Available) != 0 {
		t.Fatalf("busy driver still sees offers: %v", rideIDs(v.Available))
	}
}

func TestDispatch_CreateRetryReturnsStoredRide(t *testing.T) {
	me := passenger()
	store := newStore()
	r := bootstrapped(t, store, newManualFeed(), me)
	cmd := models.CreateRide{ID: uuid.New(), Pickup: pickup, Dropoff: dropoff}

	first, err := r.Dispatch(context.Background(), me, cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	again, err := r.Dispatch(context.Background(), me, cmd)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if again.ID != first.ID || !again.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("retry returned %+v, want %+v", again, first)
	}
	if n := len(r.View().History); n != 1 {
		t.Fatalf("retry added a ride: history has %d", n)
	}
}

func TestDispatch_CreateRetryFromAnotherSession(t *testing.T) {
	me := passenger()
	store := newStore()
	r := bootstrapped(t, store, newManualFeed(), me)
	cmd := models.CreateRide{ID: uuid.New(), Pickup: pickup, Dropoff: dropoff}

	// the first attempt landed through a session r never heard from
	other := bootstrapped(t, store, newManualFeed(), me)
	if _, err := other.Dispatch(context.Background(), me, cmd); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.Dispatch(context.Background(), me, cmd)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got.ID != cmd.ID {
		t.Fatalf("retry returned ride %s", got.ID)
	}
	if h := r.View().History; len(h) != 1 || h[0].ID != cmd.ID {
		t.Fatalf("history = %v", rideIDs(h))
	}
}

func TestDispatch_CreateWithForeignIDIsRejected(t *testing.T) {
	taken := pending(uuid.New(), t0)
	me := passenger()
	store := newStore(taken)
	r := bootstrapped(t, store, newManualFeed(), me)

	_, err := r.Dispatch(context.Background(), me, models.CreateRide{ID: taken.ID, Pickup: pickup, Dropoff: dropoff})
	if !errors.Is(err, types.ErrInvalidRide) {
		t.Fatalf("got %v, want ErrInvalidRide", err)
	}
	if n := len(r.View().History); n != 0 {
		t.Fatalf("rejected create left %d rides in history", n)
	}
}

func TestReconciler_TrackingStaysBounded(t *testing.T) {
	me := driver()
	r := bootstrapped(t, newStore(), newManualFeed(), me)

	for i := 0; i < 5000; i++ {
		ride := pending(uuid.New(), t0.Add(time.Duration(i)*time.Second))
		if err := r.Apply(context.Background(), models.ChangeEvent{Kind: types.EventCreated, Record: ride}); err != nil {
			t.Fatalf("created: %v", err)
		}
		taken := assigned(ride, types.StatusAccepted, uuid.New())
		if err := r.Apply(context.Background(), models.ChangeEvent{Kind: types.EventUpdated, Record: taken}); err != nil {
			t.Fatalf("updated: %v", err)
		}
	}

	revisions, departed := reconciler.Tracked(r)
	if revisions != 0 {
		t.Fatalf("revisions kept for %d rides without a command in flight", revisions)
	}
	if departed > 2*reconciler.DepartedLimit {
		t.Fatalf("departed rides grew to %d", departed)
	}
	if n := len(r.View().Available); n != 0 {
		t.Fatalf("taken rides are still offered: %d", n)
	}
}

func TestDispatch_ForeignActor(t *testing.T) {
	me := driver()
	ride := pending(uuid.New(), t0)
	r := bootstrapped(t, newStore(ride), newManualFeed(), me)

	_, err := r.Dispatch(context.Background(), driver(), models.AcceptRide{RideID: ride.ID})
	if !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestStop_NoDeliveryAfterStop(t *testing.T) {
	me := driver()
	feed := newManualFeed()
	r := bootstrapped(t, newStore(), feed, me)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var calls int
	var mu sync.Mutex
	r.OnChange(func(reconciler.View) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	feed.Emit(models.ChangeEvent{Kind: types.EventCreated, Record: pending(uuid.New(), t0)})
	mu.Lock()
	if calls != 1 {
		t.Fatalf("listener calls before stop = %d", calls)
	}
	mu.Unlock()

	r.Stop()
	if feed.Subscribers() != 0 {
		t.Fatalf("subscription still open after Stop")
	}

	feed.Emit(models.ChangeEvent{Kind: types.EventCreated, Record: pending(uuid.New(), t0)})

	if n := len(r.View().Available); n != 1 {
		t.Fatalf("event folded after Stop: %d offers", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("listener called after Stop")
	}
}

func TestStart_IsIdempotent(t *testing.T) {
	feed := newManualFeed()
	r := bootstrapped(t, newStore(), feed, driver())

	for range 3 {
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	defer r.Stop()

	if n := feed.Subscribers(); n != 1 {
		t.Fatalf("subscriptions = %d, want 1", n)
	}
}

func TestOnChange_CancelStopsDelivery(t *testing.T) {
	feed := newManualFeed()
	r := bootstrapped(t, newStore(), feed, driver())
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Stop()

	var last reconciler.View
	var calls int
	cancel := r.OnChange(func(v reconciler.View) {
		calls++
		last = v
	})

	ride := pending(uuid.New(), t0)
	feed.Emit(models.ChangeEvent{Kind: types.EventCreated, Record: ride})
	if calls != 1 || len(last.Available) != 1 || last.Available[0].ID != ride.ID {
		t.Fatalf("listener got %d calls, last = %+v", calls, last.Available)
	}

	cancel()
	feed.Emit(models.ChangeEvent{Kind: types.EventCreated, Record: pending(uuid.New(), t0)})
	if calls != 1 {
		t.Fatalf("cancelled listener was called")
	}
}

func TestReconciler_WithMemoryFeed(t *testing.T) {
	feed := memory.NewFeed()
	store := memory.NewStore(feed)
	me := driver()
	r := bootstrapped(t, store, feed, me)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.Stop()

	changed := make(chan reconciler.View, 8)
	r.OnChange(func(v reconciler.View) { changed <- v })

	ride := pending(uuid.New(), t0)
	if _, err := store.Insert(context.Background(), ride); err != nil {
		t.Fatalf("insert: %v", err)
	}

	select {
	case v := <-changed:
		if len(v.Available) != 1 || v.Available[0].ID != ride.ID {
			t.Fatalf("available = %v", rideIDs(v.Available))
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("created event was not delivered")
	}
}
