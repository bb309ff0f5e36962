package services

import (
	"sync"
	"time"
)

// TimerRegistry owns named, cancellable deferred callbacks. Scheduling
// under an existing name cancels the previous timer first, so at most
// one timer is ever outstanding per name.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{timers: make(map[string]*time.Timer)}
}

// Replace installs fn to run after delay under the given name, cancelling
// any timer previously registered under that name. The callback runs on
// its own goroutine and removes its handle before executing.
func (r *TimerRegistry) Replace(name string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.timers[name]; ok {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		// A replacement may have raced in after this timer fired but
		// before it got the lock; only the current handle may run.
		if r.timers[name] == timer {
			delete(r.timers, name)
			r.mu.Unlock()
			fn()
			return
		}
		r.mu.Unlock()
	})
	r.timers[name] = timer
}

// Cancel stops and removes the named timer. It reports whether a timer
// was registered under that name.
func (r *TimerRegistry) Cancel(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.timers[name]
	if !ok {
		return false
	}
	timer.Stop()
	delete(r.timers, name)
	return true
}

// Len returns the number of outstanding timers.
func (r *TimerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every outstanding timer.
func (r *TimerRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, timer := range r.timers {
		timer.Stop()
		delete(r.timers, name)
	}
}
