// Package scheduler implements the timeline that drives a queue: a set of
// callbacks, each due at an absolute time, executed one at a time in a
// deterministic order.
//
// Events fire in ascending order of their scheduled time. Events scheduled for
// the same instant fire in the order they were scheduled. A callback receives
// its scheduled time as "now", and anything it schedules in turn is relative to
// that logical time, not to the moment a driver happened to wake up. That keeps
// outcomes reproducible under a fake clock and under a loaded real one.
//
// A Scheduler does nothing on its own. Either call Run in a goroutine, which
// sleeps on the clock's timers, or call RunDue after advancing a fake clock.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Func is an event callback. now is the time the event was scheduled for.
type Func func(now time.Time)

// Scheduler is a deterministic timer queue. It is safe for concurrent use.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex // guards events and seq
	events eventQueue
	seq    uint64

	// exec is held while callbacks run, so at most one executes at a time.
	exec sync.Mutex
	wake chan struct{}
}

// New creates a Scheduler reading time from clock. A nil clock means the real clock.
func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the time source of the scheduler.
func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// At schedules fn to run at t. Times in the past are due immediately.
// It may be called from inside a callback.
func (s *Scheduler) At(t time.Time, fn Func) {
	s.mu.Lock()
	heap.Push(&s.events, &event{at: t, seq: s.seq, fn: fn})
	s.seq++
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// After schedules fn to run d after the clock's current time.
func (s *Scheduler) After(d time.Duration, fn Func) {
	s.At(s.clock.Now().Add(d), fn)
}

// Len reports the number of pending events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// RunDue runs every event due at the clock's current time, including events
// that become due because a callback scheduled them, and returns how many ran.
// It must not be called from inside a callback.
func (s *Scheduler) RunDue() int {
	s.exec.Lock()
	defer s.exec.Unlock()

	now := s.clock.Now()
	ran := 0
	for {
		ev, ok := s.popDue(now)
		if !ok {
			return ran
		}
		ev.fn(ev.at)
		ran++
	}
}

// Exec runs fn while no callback is executing. It is how code outside the
// timeline reads state that callbacks mutate. It must not be called from
// inside a callback.
func (s *Scheduler) Exec(fn func()) {
	s.exec.Lock()
	defer s.exec.Unlock()
	fn()
}

// Run drives the timeline until ctx is done, sleeping on the clock between
// events. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.RunDue()

		var timer clockwork.Timer
		var fire <-chan time.Time
		if next, ok := s.nextAt(); ok {
			timer = s.clock.NewTimer(next.Sub(s.clock.Now()))
			fire = timer.Chan()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Scheduler) popDue(now time.Time) (*event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 || s.events[0].at.After(now) {
		return nil, false
	}
	return heap.Pop(&s.events).(*event), true
}

func (s *Scheduler) nextAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return time.Time{}, false
	}
	return s.events[0].at, true
}
