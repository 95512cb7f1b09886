package background

import (
	"io"
	"log/slog"
	"time"

	"github.com/dshills/textmodel/internal/syntax/scheduler"
)

// Default scheduling parameters.
const (
	DefaultStartDelay  = 700 * time.Millisecond
	DefaultResumeDelay = 20 * time.Millisecond
	DefaultRowQuota    = 5
	DefaultTimeBudget  = 20 * time.Millisecond
)

// Option configures a BackgroundTokenizer.
type Option func(*BackgroundTokenizer)

// WithQueue runs the tokenizer on q. By default it gets a private queue on
// the configured clock, which the owner pumps through Queue().RunDue.
func WithQueue(q *scheduler.Queue) Option {
	return func(b *BackgroundTokenizer) {
		b.queue = q
	}
}

// WithClock sets the clock used for the time budget and for a private queue.
func WithClock(c scheduler.Clock) Option {
	return func(b *BackgroundTokenizer) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithStartDelay sets how long a scheduled run waits before starting.
func WithStartDelay(d time.Duration) Option {
	return func(b *BackgroundTokenizer) {
		b.startDelay = d
	}
}

// WithResumeDelay sets how long a run that yielded waits before resuming.
func WithResumeDelay(d time.Duration) Option {
	return func(b *BackgroundTokenizer) {
		b.resumeDelay = d
	}
}

// WithRowQuota sets how many rows are lexed between time budget checks.
func WithRowQuota(n int) Option {
	return func(b *BackgroundTokenizer) {
		if n > 0 {
			b.rowQuota = n
		}
	}
}

// WithTimeBudget sets how long a run may lex before yielding.
func WithTimeBudget(d time.Duration) Option {
	return func(b *BackgroundTokenizer) {
		b.timeBudget = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *BackgroundTokenizer) {
		if l != nil {
			b.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
