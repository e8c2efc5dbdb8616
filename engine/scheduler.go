package engine

import (
	"sync"
	"time"
)

// Deadline is a single armed per-question countdown. It fires at most once,
// and a successful Disarm guarantees onFire never runs. The fired/stopped
// pair under the mutex is what makes the answer-vs-timeout race safe: whoever
// flips their flag first wins, and the loser observes that atomically.
type Deadline struct {
	mu      sync.Mutex
	timer   *time.Timer
	fired   bool
	stopped bool
}

// Arm starts a countdown that calls onFire after d, unless Disarm wins first.
// onFire runs on the timer goroutine; it must take its own locks.
func Arm(d time.Duration, onFire func()) *Deadline {
	dl := &Deadline{}
	dl.timer = time.AfterFunc(d, func() {
		dl.mu.Lock()
		if dl.stopped {
			dl.mu.Unlock()
			return
		}
		dl.fired = true
		dl.mu.Unlock()
		onFire()
	})
	return dl
}

// Disarm cancels the countdown. It returns true if the cancel won, meaning
// onFire has not run and never will. A false return is authoritative proof
// that the timeout already fired (or is firing) for this deadline.
func (dl *Deadline) Disarm() bool {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.fired {
		return false
	}
	dl.stopped = true
	dl.timer.Stop()
	return true
}
