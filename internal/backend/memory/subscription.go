package memory

import (
	"sync"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
)

// subscription delivers events from an unbounded queue on its own goroutine,
// so writers never block on a slow handler.
type subscription struct {
	store      *Store
	collection string
	filter     backend.Filter
	handlers   backend.Handlers

	mu     sync.Mutex
	queue  []backend.Event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription(s *Store, collection string, filter backend.Filter, h backend.Handlers) *subscription {
	return &subscription{
		store:      s,
		collection: collection,
		filter:     filter,
		handlers:   h,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (s *subscription) push(ev backend.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) pop() (backend.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return backend.Event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

func (s *subscription) run() {
	s.handlers.Report(backend.StatusSubscribed, nil)
	for {
		select {
		case <-s.done:
			s.handlers.Report(backend.StatusClosed, nil)
			return
		case <-s.signal:
		}
		for {
			ev, ok := s.pop()
			if !ok {
				break
			}
			select {
			case <-s.done:
				s.handlers.Report(backend.StatusClosed, nil)
				return
			default:
			}
			s.handlers.Deliver(ev)
		}
	}
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.store.unsubscribe(s)
		close(s.done)
	})
	return nil
}
