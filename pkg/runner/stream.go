package runner

import (
	"sync"

	"github.com/aretw0/auraflow/pkg/domain"
)

// Stream is the consumer side of one session run.
// C delivers events in order and is closed after the final event, or after Detach.
type Stream struct {
	SessionID string
	C         <-chan domain.Event

	mu     sync.Mutex
	items  []domain.Event
	closed bool
	notify chan struct{}

	detach     chan struct{}
	detachOnce sync.Once

	done  chan struct{}
	state *domain.State
	err   error
}

func newStream(sessionID string) *Stream {
	out := make(chan domain.Event)
	s := &Stream{
		SessionID: sessionID,
		C:         out,
		notify:    make(chan struct{}, 1),
		detach:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.forward(out)
	return s
}

// push enqueues an event without ever blocking the producer.
func (s *Stream) push(e domain.Event) {
	s.mu.Lock()
	s.items = append(s.items, e)
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) finish(state *domain.State, err error) {
	s.state = state.Clone()
	s.err = err
	close(s.done)

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *Stream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Stream) forward(out chan<- domain.Event) {
	defer close(out)
	for {
		s.mu.Lock()
		batch := s.items
		s.items = nil
		closed := s.closed
		s.mu.Unlock()

		for _, e := range batch {
			select {
			case out <- e:
			case <-s.detach:
				return
			}
		}
		// Nothing is pushed after close, so this batch was the last one.
		if closed {
			return
		}

		select {
		case <-s.notify:
		case <-s.detach:
			return
		}
	}
}

// Detach stops event delivery and closes C. The run itself continues.
func (s *Stream) Detach() {
	s.detachOnce.Do(func() { close(s.detach) })
}

// Done is closed once the run reached a terminal stage and was checkpointed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the run ends and returns its final state and fatal error.
func (s *Stream) Wait() (*domain.State, error) {
	<-s.done
	return s.state, s.err
}
