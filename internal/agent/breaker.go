package agent

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// breaker stops calling the agent after repeated failures. Once openFor has
// passed it lets a single probe through; the probe's outcome closes or
// re-opens it. A threshold <= 0 disables it.
type breaker struct {
	mu            sync.Mutex
	st            breakerState
	fails         int
	threshold     int
	openFor       time.Duration
	retryAt       time.Time
	probeInFlight bool
	now           func() time.Time
}

func newBreaker(threshold int, openFor time.Duration) *breaker {
	return &breaker{threshold: threshold, openFor: openFor, now: time.Now}
}

// acquire reports whether a call may proceed.
func (b *breaker) acquire() bool {
	if b.threshold <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateOpen:
		if b.now().Before(b.retryAt) || b.probeInFlight {
			return false
		}
		b.st = stateHalfOpen
		b.probeInFlight = true
		return true
	case stateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return true
	}
}

func (b *breaker) success() {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	b.fails = 0
	b.st = stateClosed
	b.probeInFlight = false
	b.mu.Unlock()
}

func (b *breaker) failure() {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probeInFlight = false
	if b.st == stateHalfOpen {
		b.trip()
		return
	}
	b.fails++
	if b.fails >= b.threshold {
		b.trip()
	}
}

// release frees a half-open probe slot without recording an outcome.
func (b *breaker) release() {
	if b.threshold <= 0 {
		return
	}
	b.mu.Lock()
	b.probeInFlight = false
	b.mu.Unlock()
}

func (b *breaker) trip() {
	b.st = stateOpen
	b.retryAt = b.now().Add(b.openFor)
}

func (b *breaker) state() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}
