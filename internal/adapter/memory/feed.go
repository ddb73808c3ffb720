package memory

import (
	"context"
	"sync"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/reconciler"
)

// Feed is an in-process change feed. It also fans the upstream feeds out
// to local subscribers. Each subscription has
// its own queue and delivery goroutine, so a slow handler never blocks
// the publisher or other subscribers.
type Feed struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[*subscription]struct{})}
}

func (f *Feed) Subscribe(ctx context.Context, handler reconciler.EventHandler) (reconciler.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		feed:    f,
		handler: handler,
		wake:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go sub.run(ctx)
	return sub, nil
}

// Publish queues ev for every current subscriber.
func (f *Feed) Publish(ev models.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.push(ev)
	}
}

type subscription struct {
	feed    *Feed
	handler reconciler.EventHandler

	mu    sync.Mutex
	queue []models.ChangeEvent
	wake  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) push(ev models.ChangeEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			s.handler(ctx, ev)
		}
	}
}

// Unsubscribe stops delivery and waits for the handler to return.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()

		s.cancel()
		<-s.done
	})
}
