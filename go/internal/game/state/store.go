package state

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Store holds the current State and fans changes out to subscribers.
// Update is expected to be called from a single goroutine; the lock only
// makes Snapshot safe from other goroutines.
type Store struct {
	mu    sync.RWMutex
	state State
	clock clockwork.Clock

	subsMu sync.Mutex
	subs   map[int]chan State
	nextID int
}

// NewStore creates a store in the initial state.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		state: Initial(),
		clock: clock,
		subs:  make(map[int]chan State),
	}
}

// Update applies u synchronously and notifies subscribers. It returns the new state.
func (s *Store) Update(u Update) State {
	now := s.clock.Now()

	s.mu.Lock()
	next := Reduce(s.state, u, now)
	s.state = next
	s.mu.Unlock()

	if _, isTick := u.(Tick); !isTick {
		log.Debug().
			Str("update", fmt.Sprintf("%T", u)).
			Str("room_code", next.RoomCode).
			Str("status", string(next.Status)).
			Int("players", len(next.Players)).
			Msg("state updated")
	}

	s.publish(next)
	return next
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers for state changes. The channel holds at most one
// pending state; a slow reader only ever sees the latest one. The returned
// func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(st State) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// Replace the stale pending state with the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
