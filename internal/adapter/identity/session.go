package identity

import (
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

// Session holds who is currently acting for one client.
// Changing or clearing the actor notifies every listener.
type Session struct {
	mu        sync.Mutex
	actor     models.Actor
	listeners map[int]func(models.Actor)
	nextID    int
}

func NewSession(actor models.Actor) *Session {
	return &Session{
		actor:     actor,
		listeners: make(map[int]func(models.Actor)),
	}
}

// Current returns the actor or types.ErrUnauthenticated when nobody is signed in.
func (s *Session) Current() (models.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actor.IsZero() {
		return models.Actor{}, types.ErrUnauthenticated
	}
	return s.actor, nil
}

// Set replaces the actor. Listeners are called only if it changed.
func (s *Session) Set(actor models.Actor) {
	s.mu.Lock()
	if s.actor == actor {
		s.mu.Unlock()
		return
	}
	s.actor = actor
	fns := make([]func(models.Actor), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(actor)
	}
}

// Clear signs the actor out.
func (s *Session) Clear() {
	s.Set(models.Actor{})
}

// OnChange registers fn for actor changes. The zero Actor means signed out.
func (s *Session) OnChange(fn func(models.Actor)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
