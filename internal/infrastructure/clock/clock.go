// Package clock abstracts wall time and tickers so time-driven components can
// be stepped deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock provides the current time and tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Real is the Clock backed by the time package.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker.
func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (r *realTicker) C() <-chan time.Time {
	return r.ticker.C
}

func (r *realTicker) Stop() {
	r.ticker.Stop()
}

// Manual is a Clock whose tickers only fire when the test says so. Tickers
// are handed out in creation order through Ticker.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
	created chan *ManualTicker
}

// NewManual returns a manual clock reading now.
func NewManual(now time.Time) *Manual {
	return &Manual{
		now:     now,
		created: make(chan *ManualTicker, 64),
	}
}

// Now returns the manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the manual time forward.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// NewTicker creates a ticker that fires on ManualTicker.Fire.
func (m *Manual) NewTicker(d time.Duration) Ticker {
	t := &ManualTicker{
		Interval: d,
		ch:       make(chan time.Time),
		stopped:  make(chan struct{}),
	}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	m.created <- t
	return t
}

// Ticker waits for the next ticker created on the clock.
func (m *Manual) Ticker(timeout time.Duration) (*ManualTicker, bool) {
	select {
	case t := <-m.created:
		return t, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Active returns the number of tickers that have not been stopped.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// ManualTicker is a Ticker driven by Fire.
type ManualTicker struct {
	Interval time.Duration

	ch       chan time.Time
	stopOnce sync.Once
	stopped  chan struct{}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop stops the ticker. The channel is left open, like time.Ticker.
func (t *ManualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
	}
	return false
}

// Fire delivers one tick and blocks until it is received. It reports false
// if the ticker is stopped or nobody receives within timeout.
func (t *ManualTicker) Fire(timeout time.Duration) bool {
	select {
	case <-t.stopped:
		return false
	default:
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(timeout):
		return false
	}
}
