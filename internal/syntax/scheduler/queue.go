package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// Queue is a cooperative timer queue. Scheduled functions never run on their
// own; the owner runs whatever is due by calling RunDue, either from its own
// event loop or through a Loop.
//
// Scheduling and stopping are safe from any goroutine. Functions run on the
// goroutine calling RunDue.
type Queue struct {
	mu    sync.Mutex
	clock Clock
	seq   uint64
	tasks taskHeap
	wake  chan struct{}
}

// NewQueue creates a queue reading time from clock. A nil clock means
// RealClock.
func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = RealClock
	}
	return &Queue{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the queue's clock.
func (q *Queue) Clock() Clock {
	return q.clock
}

// Timer is a function scheduled on a Queue.
type Timer struct {
	q     *Queue
	seq   uint64
	due   time.Time
	fn    func()
	index int
}

// AfterFunc schedules fn to run once d has elapsed on the queue's clock.
func (q *Queue) AfterFunc(d time.Duration, fn func()) *Timer {
	q.mu.Lock()
	q.seq++
	t := &Timer{q: q, seq: q.seq, due: q.clock.Now().Add(d), fn: fn}
	heap.Push(&q.tasks, t)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return t
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	q := t.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&q.tasks, t.index)
	return true
}

// Due returns when the timer fires.
func (t *Timer) Due() time.Time {
	return t.due
}

// RunDue runs every task whose due time has passed, earliest first, and
// returns how many ran. Tasks scheduled while running are picked up only if
// they are already due.
func (q *Queue) RunDue() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 || q.tasks[0].due.After(q.clock.Now()) {
			q.mu.Unlock()
			return ran
		}
		t := heap.Pop(&q.tasks).(*Timer)
		q.mu.Unlock()

		t.fn()
		ran++
	}
}

// Next returns the due time of the earliest pending task.
func (q *Queue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return time.Time{}, false
	}
	return q.tasks[0].due, true
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Wake signals when a task has been scheduled.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// taskHeap orders timers by due time, then by scheduling order.
type taskHeap []*Timer

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
