package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the labels of fired events in order.
type recorder struct {
	mu    sync.Mutex
	fired []string
	times []time.Time
}

func (r *recorder) fn(label string) Func {
	return func(now time.Time) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.fired = append(r.fired, label)
		r.times = append(r.times, now)
	}
}

func (r *recorder) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestScheduler_FiresInTimeOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var rec recorder

	s.After(3*time.Second, rec.fn("c"))
	s.After(1*time.Second, rec.fn("a"))
	s.After(2*time.Second, rec.fn("b"))
	assert.Equal(t, 3, s.Len())

	assert.Equal(t, 0, s.RunDue(), "nothing is due before the clock moves")

	clock.Advance(3 * time.Second)
	assert.Equal(t, 3, s.RunDue())
	assert.Equal(t, []string{"a", "b", "c"}, rec.labels())
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_TiesFireInScheduleOrder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var rec recorder

	at := clock.Now().Add(time.Second)
	for _, label := range []string{"first", "second", "third", "fourth", "fifth"} {
		s.At(at, rec.fn(label))
	}
	// An earlier event scheduled last still goes first.
	s.At(at.Add(-time.Millisecond), rec.fn("early"))

	clock.Advance(time.Second)
	s.RunDue()
	assert.Equal(t, []string{"early", "first", "second", "third", "fourth", "fifth"}, rec.labels())
}

func TestScheduler_OnlyDueEventsRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var rec recorder

	s.After(100*time.Millisecond, rec.fn("soon"))
	s.After(time.Minute, rec.fn("later"))

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, s.RunDue())
	assert.Equal(t, []string{"soon"}, rec.labels())
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_CallbackUsesLogicalTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	start := clock.Now()
	var rec recorder

	s.After(time.Second, func(now time.Time) {
		rec.fn("outer")(now)
		s.At(now.Add(time.Second), rec.fn("inner"))
		s.At(now, rec.fn("same-instant"))
	})

	// Wake up late: both the outer event and its follow-ups are due.
	clock.Advance(5 * time.Second)
	assert.Equal(t, 3, s.RunDue())
	assert.Equal(t, []string{"outer", "same-instant", "inner"}, rec.labels())
	assert.Equal(t, start.Add(time.Second), rec.times[0])
	assert.Equal(t, start.Add(time.Second), rec.times[1])
	assert.Equal(t, start.Add(2*time.Second), rec.times[2])
}

func TestScheduler_PastEventsAreDue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var rec recorder

	s.At(clock.Now().Add(-time.Hour), rec.fn("past"))
	assert.Equal(t, 1, s.RunDue())
	assert.Equal(t, []string{"past"}, rec.labels())
}

func TestScheduler_Exec(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	counter := 0
	s.After(0, func(time.Time) { counter++ })
	s.RunDue()

	var seen int
	s.Exec(func() { seen = counter })
	assert.Equal(t, 1, seen)
}

func TestScheduler_RunWithFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	fired := make(chan time.Time, 1)
	want := clock.Now().Add(250 * time.Millisecond)
	s.At(want, func(now time.Time) { fired <- now })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(250 * time.Millisecond)

	select {
	case got := <-fired:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("event did not fire")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestScheduler_RunWithRealClock(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var rec recorder
	s.After(20*time.Millisecond, rec.fn("b"))
	s.After(5*time.Millisecond, rec.fn("a"))

	require.Eventually(t, func() bool {
		return len(rec.labels()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, rec.labels())

	// Events scheduled while Run is idle wake it up.
	s.After(0, rec.fn("c"))
	require.Eventually(t, func() bool {
		return len(rec.labels()) == 3
	}, 2*time.Second, 5*time.Millisecond)
}
