package sessions

import (
	"sync"

	"github.com/google/uuid"
)

// Subscribe returns a channel that receives the current state immediately and every state after it.
// A subscriber that falls behind only sees the latest state. The returned function unsubscribes
// and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	id := uuid.New()
	ch := make(chan State, 1)

	s.lock.Lock()
	s.subscribers[id] = ch
	ch <- s.stateLocked()
	s.lock.Unlock()

	return ch, sync.OnceFunc(func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.subscribers, id)
		close(ch)
	})
}

// broadcastLocked must be called with the write lock held so states are delivered in mutation order
func (s *Store) broadcastLocked() {
	state := s.stateLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			// drop the stale state the subscriber has not read yet
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
