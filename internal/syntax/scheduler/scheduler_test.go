package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestQueueRunsDueInOrder(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock)
	var order []string

	q.AfterFunc(20*time.Millisecond, func() { order = append(order, "b") })
	q.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	q.AfterFunc(20*time.Millisecond, func() { order = append(order, "c") })

	assert.Equal(t, 0, q.RunDue())
	clock.Advance(15 * time.Millisecond)
	assert.Equal(t, 1, q.RunDue())
	clock.Advance(5 * time.Millisecond)
	assert.Equal(t, 2, q.RunDue())

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, q.Len())
}

func TestQueueStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock)
	ran := false
	tm := q.AfterFunc(time.Millisecond, func() { ran = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	clock.Advance(time.Second)
	q.RunDue()
	assert.False(t, ran)

	var nilTimer *Timer
	assert.False(t, nilTimer.Stop())
}

func TestQueueNext(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock)
	_, ok := q.Next()
	assert.False(t, ok)

	q.AfterFunc(time.Second, func() {})
	q.AfterFunc(time.Millisecond, func() {})
	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Millisecond), next)
}

func TestQueueTaskSchedulingDueTask(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock)
	count := 0
	q.AfterFunc(0, func() {
		count++
		q.AfterFunc(0, func() { count++ })
		q.AfterFunc(time.Millisecond, func() { count++ })
	})
	assert.Equal(t, 2, q.RunDue())
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, q.Len())
}

func TestDeferred(t *testing.T) {
	clock := NewFakeClock(epoch)
	q := NewQueue(clock)
	runs := 0
	d := NewDeferred(q, func() { runs++ })

	assert.True(t, d.ScheduleIfIdle(10*time.Millisecond))
	assert.False(t, d.ScheduleIfIdle(time.Millisecond), "already pending")
	due, ok := d.Due()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(10*time.Millisecond), due)

	clock.Advance(10 * time.Millisecond)
	q.RunDue()
	assert.Equal(t, 1, runs)
	assert.False(t, d.IsPending())

	d.Schedule(10 * time.Millisecond)
	d.Schedule(30 * time.Millisecond)
	clock.Advance(20 * time.Millisecond)
	q.RunDue()
	assert.Equal(t, 1, runs, "rescheduling replaces the earlier run")
	clock.Advance(10 * time.Millisecond)
	q.RunDue()
	assert.Equal(t, 2, runs)

	d.Schedule(0)
	d.Cancel()
	q.RunDue()
	assert.Equal(t, 2, runs)
	assert.False(t, d.IsPending())
	_, ok = d.Due()
	assert.False(t, ok)
}

func TestLoopRunsPostedAndTimers(t *testing.T) {
	q := NewQueue(nil)
	loop := NewLoop(q)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	fired := make(chan struct{})
	require.NoError(t, loop.Do(ctx, func() error {
		q.AfterFunc(time.Millisecond, func() { close(fired) })
		return nil
	}))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	want := errors.New("boom")
	assert.ErrorIs(t, loop.Do(ctx, func() error { return want }), want)

	err := loop.Do(ctx, func() error { panic("bad") })
	assert.ErrorContains(t, err, "panicked")

	var posted atomic.Bool
	require.True(t, loop.Post(func() { posted.Store(true) }))
	require.NoError(t, loop.Do(ctx, func() error { return nil }))
	assert.True(t, posted.Load())

	loop.Close()
	assert.NoError(t, <-done)
	assert.ErrorIs(t, loop.Do(ctx, func() error { return nil }), ErrLoopClosed)
	assert.False(t, loop.Post(func() {}))
}

func TestLoopContextCancel(t *testing.T) {
	loop := NewLoop(NewQueue(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
