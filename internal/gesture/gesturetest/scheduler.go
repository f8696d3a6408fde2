// Package gesturetest provides a manually driven scheduler for tests.
package gesturetest

import (
	"slices"
	"sync"
	"time"

	"github.com/dkeye/realtime-voice/internal/gesture"
)

var _ gesture.Scheduler = (*Scheduler)(nil)

// Scheduler is a fake clock. Callbacks only run inside Advance, in due order.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*timer
}

type timer struct {
	s       *Scheduler
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func New() *Scheduler { return &Scheduler{} }

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) gesture.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{s: s, due: s.now + max(d, 0), seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.s.pending = slices.DeleteFunc(t.s.pending, func(p *timer) bool { return p == t })
	return true
}

// Advance moves the clock forward by d and runs every callback that became due,
// including callbacks scheduled by those callbacks.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		next.fired = true
		s.pending = slices.DeleteFunc(s.pending, func(p *timer) bool { return p == next })
		s.mu.Unlock()

		next.fn()
	}
}

// Flush runs callbacks that are already due without moving the clock.
func (s *Scheduler) Flush() { s.Advance(0) }

// Pending reports how many callbacks are scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) nextDue(target time.Duration) *timer {
	var next *timer
	for _, t := range s.pending {
		if t.due > target {
			continue
		}
		if next == nil || t.due < next.due || (t.due == next.due && t.seq < next.seq) {
			next = t
		}
	}
	return next
}
