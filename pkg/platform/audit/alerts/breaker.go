package alerts

import (
	"sync"
	"time"
)

// breaker guards the alert notifier against a sustained outage. When the
// notifier keeps failing the circuit opens and alerts are dropped without
// attempting delivery until the cooldown elapses.
type breaker struct {
	mu sync.RWMutex

	threshold int
	cooldown  time.Duration

	failures  int // consecutive failures
	openUntil time.Time
	isOpen    bool
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &breaker{threshold: threshold, cooldown: cooldown}
}

// allow reports whether a delivery attempt may proceed. An open circuit
// transitions to half-open once the cooldown expires.
func (b *breaker) allow() bool {
	b.mu.RLock()
	if !b.isOpen {
		b.mu.RUnlock()
		return true
	}
	expired := time.Now().After(b.openUntil)
	b.mu.RUnlock()

	if expired {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.isOpen && time.Now().After(b.openUntil) {
			b.isOpen = false
			b.failures = 0
		}
		return !b.isOpen
	}
	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.isOpen = false
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.isOpen = true
		b.openUntil = time.Now().Add(b.cooldown)
	}
}
