package preview

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/imagepreview/internal/clock"
)

// channelStore holds one channel's snapshot and its subscribers.
type channelStore struct {
	clock      clock.Clock
	redundancy time.Duration
	logger     zerolog.Logger

	mu          sync.Mutex
	state       State
	lastUpdate  time.Time
	subscribers []*storeSubscriber
}

type storeSubscriber struct {
	fn     Subscriber
	active atomic.Bool
}

func newChannelStore(initial State, clk clock.Clock, redundancy time.Duration, logger zerolog.Logger) *channelStore {
	return &channelStore{
		clock:      clk,
		redundancy: redundancy,
		logger:     logger,
		state:      initial,
	}
}

// getState returns the current snapshot. The Images slice is shared and
// must be treated as read-only.
func (s *channelStore) getState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState applies next unless it is redundant. It reports whether the
// state was applied.
func (s *channelStore) setState(next State) bool {
	return s.update(func(State) (State, bool) { return next, true })
}

// update computes the next state from the current one under the store lock,
// applies it unless redundant, then notifies subscribers outside the lock.
// fn returning false leaves the state untouched.
func (s *channelStore) update(fn func(current State) (State, bool)) bool {
	s.mu.Lock()
	next, ok := fn(s.state)
	if !ok {
		s.mu.Unlock()
		return false
	}

	now := s.clock.Now()
	if now.Sub(s.lastUpdate) < s.redundancy &&
		s.state.ActiveIndex == next.ActiveIndex &&
		len(s.state.Images) == len(next.Images) {
		s.mu.Unlock()
		s.logger.Debug().
			Int("active_index", next.ActiveIndex).
			Int("images", len(next.Images)).
			Msg("redundant update dropped")
		return false
	}

	s.lastUpdate = now
	s.state = next
	subscribers := make([]*storeSubscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		// A subscriber removed by an earlier callback in this round is skipped.
		if !sub.active.Load() {
			continue
		}
		s.deliver(sub, next)
	}
	return true
}

// subscribe registers fn and immediately delivers the current snapshot.
func (s *channelStore) subscribe(fn Subscriber) func() {
	sub := &storeSubscriber{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	current := s.state
	s.mu.Unlock()

	s.deliver(sub, current)

	return func() {
		if !sub.active.Swap(false) {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subscribers {
			if existing == sub {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				break
			}
		}
	}
}

// clearSubscribers drops every subscriber without notifying them.
func (s *channelStore) clearSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscribers {
		sub.active.Store(false)
	}
	s.subscribers = nil
}

func (s *channelStore) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *channelStore) deliver(sub *storeSubscriber, state State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Err(fmt.Errorf("subscriber panic: %v", r)).
				Msg("error notifying subscriber")
		}
	}()
	sub.fn(state.Clone())
}
