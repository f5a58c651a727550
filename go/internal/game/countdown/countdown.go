package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is how often a running countdown ticks.
const DefaultInterval = 250 * time.Millisecond

// Countdown is a cancellable periodic task that emits the current time on
// Ticks while running. It computes nothing itself; the receiver derives the
// remaining turn time from each tick.
type Countdown struct {
	clock    clockwork.Clock
	interval time.Duration
	ticks    chan time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a stopped countdown. A nil clock uses the real clock.
func New(clock clockwork.Clock, interval time.Duration) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Countdown{
		clock:    clock,
		interval: interval,
		ticks:    make(chan time.Time, 1),
	}
}

// Ticks delivers tick times. At most one tick is pending; a slow reader sees
// the latest one.
func (c *Countdown) Ticks() <-chan time.Time {
	return c.ticks
}

// Start begins ticking. It is a no-op while already running.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	ticker := c.clock.NewTicker(c.interval)
	go c.run(ticker, c.stop, c.done)

	log.Debug().Dur("interval", c.interval).Msg("countdown started")
}

// Stop halts ticking and discards any pending tick, so no tick is observed
// after Stop returns. It is safe to call when stopped.
func (c *Countdown) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	select {
	case <-c.ticks:
	default:
	}
	log.Debug().Msg("countdown stopped")
}

// Running reports whether the countdown is ticking.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Countdown) run(ticker clockwork.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.Chan():
			c.post(now)
		}
	}
}

func (c *Countdown) post(now time.Time) {
	select {
	case c.ticks <- now:
		return
	default:
	}
	select {
	case <-c.ticks:
	default:
	}
	select {
	case c.ticks <- now:
	default:
	}
}
