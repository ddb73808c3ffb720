package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/identity"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-hail-client/pkg/metrics"
)

var ErrClosed = errors.New("session manager is closed")

// Manager keeps one reconciler per signed-in actor.
// Reconcilers are created on first use, bootstrapped and subscribed to the
// change feed, and stopped when their session ends or sits idle for longer
// than the idle timeout.
type Manager struct {
	store       reconciler.RideStore
	feed        reconciler.ChangeFeed
	log         logger.Logger
	idleTimeout time.Duration
	now         func() time.Time

	// feed subscriptions outlive requests
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
	closed   bool
}

type entry struct {
	session *identity.Session
	rec     *reconciler.Reconciler
	actor   models.Actor
	stopSub func()

	// guarded by Manager.mu
	lastUsed time.Time
	holds    int

	// serialises start and bootstrap of rec
	mu      sync.Mutex
	started bool
}

// NewManager starts a manager. With a positive idleTimeout sessions that
// were not used and hold no stream for that long are signed out.
func NewManager(store reconciler.RideStore, feed reconciler.ChangeFeed, idleTimeout time.Duration, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:       store,
		feed:        feed,
		log:         log,
		idleTimeout: idleTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[uuid.UUID]*entry),
	}
	if idleTimeout > 0 {
		go m.janitor(max(idleTimeout/2, 10*time.Millisecond))
	}
	return m
}

// Get returns the ready reconciler for actor, creating it if needed.
// A previous failed bootstrap is retried.
func (m *Manager) Get(ctx context.Context, actor models.Actor) (*reconciler.Reconciler, error) {
	if actor.IsZero() || !actor.Role.Valid() {
		return nil, types.ErrUnauthenticated
	}

	e, err := m.entryFor(actor)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		if err := e.rec.Start(m.ctx); err != nil {
			return nil, wrap.Error(ctx, err)
		}
		e.started = true
	}
	if !e.rec.Ready() {
		if err := e.rec.Bootstrap(ctx, actor); err != nil {
			return nil, err
		}
	}
	return e.rec, nil
}

// Session returns the identity session of a live actor.
func (m *Manager) Session(actorID uuid.UUID) (*identity.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[actorID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Hold keeps the session of actorID alive until release is called, for
// long-lived connections that do not go through Get.
func (m *Manager) Hold(actorID uuid.UUID) (release func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[actorID]
	if !ok {
		return nil, false
	}
	e.holds++

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			e.holds--
			e.lastUsed = m.now()
			m.mu.Unlock()
		})
	}, true
}

// End signs actorID out and stops its reconciler.
func (m *Manager) End(actorID uuid.UUID) {
	m.mu.Lock()
	e, ok := m.sessions[actorID]
	m.mu.Unlock()
	if ok {
		e.session.Clear()
	}
}

// Close stops every reconciler.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.session.Clear()
	}
	m.cancel()
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) entryFor(actor models.Actor) (*entry, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := m.sessions[actor.ID]; ok {
		if e.actor.Role == actor.Role {
			e.lastUsed = m.now()
			m.mu.Unlock()
			return e, nil
		}
		// role changed, the old view is meaningless
		m.mu.Unlock()
		e.session.Set(actor)
		return m.entryFor(actor)
	}

	e := &entry{
		session:  identity.NewSession(actor),
		rec:      reconciler.New(m.store, m.feed, m.log),
		actor:    actor,
		lastUsed: m.now(),
	}
	e.stopSub = e.session.OnChange(func(next models.Actor) {
		if next.ID == actor.ID && next.Role == actor.Role {
			return
		}
		m.remove(actor, e)
	})
	m.sessions[actor.ID] = e
	m.mu.Unlock()

	metrics.ActiveSessionsGauge.WithLabelValues(actor.Role.String()).Inc()
	return e, nil
}

func (m *Manager) remove(actor models.Actor, e *entry) {
	m.mu.Lock()
	if cur, ok := m.sessions[actor.ID]; !ok || cur != e {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, actor.ID)
	m.mu.Unlock()

	m.shutdown(e)
}

func (m *Manager) shutdown(e *entry) {
	e.stopSub()
	e.rec.Stop()
	metrics.ActiveSessionsGauge.WithLabelValues(e.actor.Role.String()).Dec()

	ctx := wrap.WithUser(context.Background(), e.actor.ID.String(), e.actor.Role.String())
	m.log.Debug(ctx, "session ended")
}

func (m *Manager) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep(m.now())
		}
	}
}

// sweep signs out every session idle since before now minus the idle timeout
// and returns how many it ended.
func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	var idle []*entry
	for id, e := range m.sessions {
		if e.holds == 0 && now.Sub(e.lastUsed) > m.idleTimeout {
			delete(m.sessions, id)
			idle = append(idle, e)
		}
	}
	m.mu.Unlock()

	for _, e := range idle {
		// stream listeners close their connections
		e.session.Clear()
		m.shutdown(e)
	}
	if len(idle) > 0 {
		m.log.Info(m.ctx, "signed out idle sessions", "count", len(idle))
	}
	return len(idle)
}
