package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

// Reconciler owns one actor's view. It merges a bootstrap snapshot with the
// change feed and applies local commands optimistically.
//
// All state changes happen under mu. Store calls are made outside of it so
// the change feed is never blocked by a command in flight.
type Reconciler struct {
	store RideStore
	feed  ChangeFeed
	log   logger.Logger
	now   func() time.Time

	mu       sync.Mutex
	view     View
	ready    bool
	fetching int
	buffered []models.ChangeEvent
	// inflight counts dispatched commands per ride still awaiting the store
	inflight map[uuid.UUID]int
	// revisions counts authoritative records folded per in-flight ride since the last snapshot
	revisions map[uuid.UUID]uint64
	// epoch changes whenever the view is replaced by a snapshot
	epoch   uint64
	version uint64
	sub     Subscription
	gen     uint64

	notifyMu  sync.Mutex
	delivered uint64
	stopped   bool

	listenersMu sync.Mutex
	listeners   map[int]func(View)
	nextID      int
}

func New(store RideStore, feed ChangeFeed, log logger.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		feed:      feed,
		log:       log,
		now:       time.Now,
		inflight:  make(map[uuid.UUID]int),
		revisions: make(map[uuid.UUID]uint64),
		listeners: make(map[int]func(View)),
	}
}

// Bootstrap replaces the view with a fresh snapshot for actor.
// On failure the view is left empty and the error wraps types.ErrFetchFailed.
func (r *Reconciler) Bootstrap(ctx context.Context, actor models.Actor) error {
	ctx = wrap.WithAction(wrap.WithUser(ctx, actor.ID.String(), actor.Role.String()), types.ActionBootstrap)

	if actor.IsZero() || !actor.Role.Valid() {
		return wrap.Error(ctx, types.ErrUnauthenticated)
	}

	r.mu.Lock()
	if r.view.Actor != actor {
		r.view = NewView(actor)
		r.ready = false
		r.buffered = nil
	}
	r.fetching++
	r.mu.Unlock()

	snapshot, err := r.fetchSnapshot(ctx, actor)

	r.mu.Lock()
	r.fetching--
	if r.view.Actor != actor {
		// a bootstrap for another actor started meanwhile
		r.mu.Unlock()
		return wrap.Error(ctx, fmt.Errorf("%w: actor changed during bootstrap", types.ErrFetchFailed))
	}
	if err != nil {
		r.resetLocked(NewView(actor))
		r.ready = false
		r.buffered = nil
		snap, ver := r.snapshotLocked()
		r.mu.Unlock()
		r.publish(snap, ver)

		r.log.Error(ctx, "failed to bootstrap rides", err)
		return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrFetchFailed, err))
	}

	r.resetLocked(snapshot)
	for _, ev := range r.buffered {
		r.foldLocked(ev)
	}
	r.buffered = nil
	r.ready = true
	snap, ver := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap, ver)

	r.log.Debug(ctx, "bootstrapped rides",
		"available", len(snapshot.Available),
		"active", snapshot.Active != nil,
		"history", len(snapshot.History),
	)
	return nil
}

// Refresh bootstraps again for the current actor.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	actor := r.view.Actor
	r.mu.Unlock()
	return r.Bootstrap(ctx, actor)
}

func (r *Reconciler) fetchSnapshot(ctx context.Context, actor models.Actor) (View, error) {
	v := NewView(actor)

	switch actor.Role {
	case types.RoleDriver:
		active, err := r.store.Fetch(ctx, models.RideFilter{
			DriverID: &actor.ID,
			Statuses: types.ActiveStatuses,
			Limit:    1,
		}, models.NewestFirst)
		if err != nil {
			return View{}, fmt.Errorf("fetch active ride: %w", err)
		}
		if len(active) > 0 {
			v.Active = ridePtr(active[0])
			return v, nil
		}

		pending, err := r.store.Fetch(ctx, models.RideFilter{
			Statuses: []types.RideStatus{types.StatusPending},
		}, models.NewestFirst)
		if err != nil {
			return View{}, fmt.Errorf("fetch pending rides: %w", err)
		}
		v.Available = cloneRides(pending)

	case types.RolePassenger:
		history, err := r.store.Fetch(ctx, models.RideFilter{PassengerID: &actor.ID}, models.NewestFirst)
		if err != nil {
			return View{}, fmt.Errorf("fetch ride history: %w", err)
		}
		v.History = cloneRides(history)
	}

	return v, nil
}

// Apply folds one change event into the view.
func (r *Reconciler) Apply(ctx context.Context, ev models.ChangeEvent) error {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, types.ActionApplyEvent), ev.Record.ID.String())

	if err := ev.Validate(); err != nil {
		r.recordEvent(ev, "invalid")
		return wrap.Error(ctx, err)
	}

	r.mu.Lock()
	switch {
	case r.fetching > 0:
		r.buffered = append(r.buffered, ev)
		role := r.view.Actor.Role
		r.mu.Unlock()
		metrics.ReconcilerEventsTotal.WithLabelValues(role.String(), ev.Kind.String(), "buffered").Inc()
		return nil
	case !r.ready:
		r.mu.Unlock()
		r.recordEvent(ev, "dropped")
		return wrap.Error(ctx, types.ErrNotBootstrapped)
	}

	r.foldLocked(ev)
	snap, ver := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snap, ver)
	metrics.ReconcilerEventsTotal.WithLabelValues(snap.Actor.Role.String(), ev.Kind.String(), "applied").Inc()
	return nil
}

// Dispatch applies cmd optimistically and performs its remote mutation.
// A failed mutation rolls the optimistic change back unless an authoritative
// event for the ride arrived in the meantime.
func (r *Reconciler) Dispatch(ctx context.Context, actor models.Actor, cmd models.Command) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, types.ActionDispatch)
	ctx = wrap.WithRideID(wrap.WithUser(ctx, actor.ID.String(), actor.Role.String()), cmd.Target().String())

	ride, err := r.dispatch(ctx, actor, cmd)

	result := "ok"
	switch {
	case errors.Is(err, types.ErrCommandRejected), errors.Is(err, types.ErrDriverBusy):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.ReconcilerCommandsTotal.WithLabelValues(cmd.Kind().String(), result).Inc()

	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return ride, nil
}

func (r *Reconciler) dispatch(ctx context.Context, actor models.Actor, cmd models.Command) (*models.Ride, error) {
	if actor.IsZero() {
		return nil, types.ErrUnauthenticated
	}

	r.mu.Lock()
	if !r.ready {
		r.mu.Unlock()
		return nil, types.ErrNotBootstrapped
	}
	if r.view.Actor != actor {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: reconciler belongs to another actor", types.ErrForbidden)
	}

	decision, err := Decide(r.view, cmd, r.now())
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	if decision.Existing != nil {
		r.mu.Unlock()
		return decision.Existing, nil
	}

	target := cmd.Target()
	r.inflight[target]++
	defer r.settle(target)
	rev, epoch := r.revisions[target], r.epoch
	r.view = decision.View
	snap, ver := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap, ver)

	var stored *models.Ride
	for _, eff := range decision.Effects {
		stored, err = r.run(ctx, eff)
		if err != nil {
			break
		}
	}

	if err != nil && cmd.Kind() == types.CommandCreate && errors.Is(err, types.ErrInvalidRide) {
		// a retried booking whose first attempt reached the store
		if existing := r.lookup(ctx, target); existing != nil && existing.PassengerID == actor.ID {
			stored, err = existing, nil
		}
	}

	if err != nil {
		r.rollback(ctx, decision.Undo, rev, epoch)
		switch {
		case cmd.Kind() != types.CommandAccept:
		case errors.Is(err, types.ErrCommandRejected):
			r.refetch(ctx, target)
		case errors.Is(err, types.ErrDriverBusy):
			// this driver holds a ride the view does not know about
			if rerr := r.Refresh(ctx); rerr != nil {
				r.log.Warn(ctx, "failed to refresh after busy driver rejection", "error", rerr.Error())
			}
		}
		return nil, err
	}

	kind := types.EventUpdated
	if cmd.Kind() == types.CommandCreate {
		kind = types.EventCreated
	}
	r.confirm(models.ChangeEvent{Kind: kind, Record: *stored})

	// the driver is free again and should see pending rides
	if stored.Status == types.StatusCompleted && actor.IsDriver() {
		if err := r.Refresh(ctx); err != nil {
			r.log.Warn(ctx, "failed to refresh available rides after completion", "error", err.Error())
		}
	}

	return stored, nil
}

func (r *Reconciler) run(ctx context.Context, eff Effect) (*models.Ride, error) {
	switch e := eff.(type) {
	case InsertEffect:
		return r.store.Insert(ctx, e.Ride)
	case UpdateEffect:
		return r.store.Update(ctx, e.RideID, e.Patch, e.Precondition)
	default:
		return nil, fmt.Errorf("unknown effect %T", eff)
	}
}

func (r *Reconciler) rollback(ctx context.Context, u Undo, rev, epoch uint64) {
	ctx = wrap.WithAction(ctx, types.ActionRollback)

	r.mu.Lock()
	if r.epoch != epoch || r.revisions[u.RideID] != rev {
		r.mu.Unlock()
		r.log.Debug(ctx, "skipping rollback, view already corrected by an authoritative record")
		return
	}
	r.view = Revert(r.view, u)
	snap, ver := r.snapshotLocked()
	r.mu.Unlock()

	r.publish(snap, ver)
	metrics.ReconcilerRollbacksTotal.WithLabelValues(u.Kind.String()).Inc()
	r.log.Info(ctx, "rolled back optimistic change", "command", u.Kind.String())
}

// settle ends one in-flight command for ride id.
func (r *Reconciler) settle(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inflight[id]--
	if r.inflight[id] <= 0 {
		delete(r.inflight, id)
		delete(r.revisions, id)
	}
}

// refetch reloads one ride after a lost accept race so it leaves the available list.
func (r *Reconciler) refetch(ctx context.Context, id uuid.UUID) {
	if ride := r.lookup(ctx, id); ride != nil {
		r.confirm(models.ChangeEvent{Kind: types.EventUpdated, Record: *ride})
	}
}

func (r *Reconciler) lookup(ctx context.Context, id uuid.UUID) *models.Ride {
	rides, err := r.store.Fetch(ctx, models.RideFilter{ID: &id, Limit: 1}, models.NewestFirst)
	if err != nil {
		r.log.Warn(ctx, "failed to refetch ride", "error", err.Error())
		return nil
	}
	if len(rides) == 0 {
		return nil
	}
	return &rides[0]
}

// confirm folds an authoritative record returned by the store. While a
// snapshot is being fetched the record is also buffered, since the snapshot
// may have been read before the record was written.
func (r *Reconciler) confirm(ev models.ChangeEvent) {
	if ev.Validate() != nil {
		return
	}
	r.mu.Lock()
	if r.fetching > 0 {
		r.buffered = append(r.buffered, ev)
	}
	if !r.ready {
		r.mu.Unlock()
		return
	}
	r.foldLocked(ev)
	snap, ver := r.snapshotLocked()
	r.mu.Unlock()
	r.publish(snap, ver)
}

// Start opens the single long-lived change feed subscription.
// Calling Start on a started reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionFeedSubscribe)

	r.mu.Lock()
	if r.sub != nil {
		r.mu.Unlock()
		return nil
	}
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	r.notifyMu.Lock()
	r.stopped = false
	r.notifyMu.Unlock()

	sub, err := r.feed.Subscribe(ctx, func(ctx context.Context, ev models.ChangeEvent) {
		r.handle(ctx, ev, gen)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("subscribe to change feed: %w", err))
	}

	r.mu.Lock()
	if r.gen != gen || r.sub != nil {
		// stopped while subscribing
		r.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	r.sub = sub
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) handle(ctx context.Context, ev models.ChangeEvent, gen uint64) {
	r.mu.Lock()
	live := r.gen == gen
	r.mu.Unlock()
	if !live {
		return
	}

	err := r.Apply(ctx, ev)
	switch {
	case err == nil, errors.Is(err, types.ErrNotBootstrapped):
	default:
		r.log.Warn(ctx, "dropping change event", "error", err.Error())
	}
}

// Stop closes the subscription. After Stop returns no event is folded and
// no listener is called. Listeners must not call Stop.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.gen++
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}

	r.notifyMu.Lock()
	r.stopped = true
	r.notifyMu.Unlock()

	r.listenersMu.Lock()
	clear(r.listeners)
	r.listenersMu.Unlock()
}

// View returns the current view. The result is safe to keep and read.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.Clone()
}

// Ready reports whether the last bootstrap succeeded.
func (r *Reconciler) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// OnChange registers fn to receive every new view. Views are delivered in
// the order they were produced; an older view is never delivered after a newer one.
func (r *Reconciler) OnChange(fn func(View)) (cancel func()) {
	r.listenersMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, id)
		r.listenersMu.Unlock()
	}
}

func (r *Reconciler) foldLocked(ev models.ChangeEvent) {
	if r.inflight[ev.Record.ID] > 0 {
		r.revisions[ev.Record.ID]++
	}
	r.view = Fold(r.view, ev)
}

func (r *Reconciler) resetLocked(v View) {
	r.view = v
	r.epoch++
	clear(r.revisions)
}

func (r *Reconciler) snapshotLocked() (View, uint64) {
	r.version++
	return r.view.Clone(), r.version
}

func (r *Reconciler) publish(v View, version uint64) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	if r.stopped || version <= r.delivered {
		return
	}
	r.delivered = version

	r.listenersMu.Lock()
	fns := make([]func(View), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.listenersMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (r *Reconciler) recordEvent(ev models.ChangeEvent, result string) {
	r.mu.Lock()
	role := r.view.Actor.Role
	r.mu.Unlock()
	metrics.ReconcilerEventsTotal.WithLabelValues(role.String(), ev.Kind.String(), result).Inc()
}
