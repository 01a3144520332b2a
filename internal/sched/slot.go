// Package sched provides a cancelable single-slot timer used for the cat's
// deferred state transitions (click disambiguation, mood auto-resolve, the
// idle-to-sleep countdown).
package sched

import (
	"sync"
	"time"
)

// Slot holds at most one pending timer. Schedule supersedes any pending
// callback, so a given slot can never fire twice for the same logical action.
// The generation counter guards against a timer that already left the runtime
// queue when it was canceled: a stale callback checks in and returns without
// running.
type Slot struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// Schedule arms the slot to run fn after d, canceling any pending callback.
func (s *Slot) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen

	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops the pending callback, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a callback is armed and has not yet fired.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
