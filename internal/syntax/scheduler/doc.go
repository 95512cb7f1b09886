// Package scheduler provides cooperative scheduling for incremental work.
//
// A Queue holds timers that run only when their owner calls RunDue, so all
// work stays on one logical thread. Deferred wraps a re-armable callback on
// a Queue. Loop drives a Queue from a dedicated goroutine and serializes
// posted work with it. FakeClock lets tests step time explicitly.
package scheduler
