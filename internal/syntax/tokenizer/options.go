package tokenizer

import (
	"io"
	"log/slog"
	"time"
)

// Default limits.
const (
	// DefaultMaxTokenCount is the per-line token ceiling.
	DefaultMaxTokenCount = 2000

	// DefaultMatchTimeout bounds a single regex evaluation.
	DefaultMatchTimeout = 250 * time.Millisecond

	// overflowChunk is the length in characters of an overflow token.
	overflowChunk = 500
)

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMaxTokenCount sets the number of matches after which the rest of a
// line is emitted as overflow tokens.
func WithMaxTokenCount(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.maxTokens = n
		}
	}
}

// WithMatchTimeout sets the per-match regex timeout. A line whose match
// times out is finished as overflow. Zero disables the timeout.
func WithMatchTimeout(d time.Duration) Option {
	return func(t *Tokenizer) {
		t.matchTimeout = d
	}
}

// WithLogger sets the logger used for grammar warnings.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tokenizer) {
		if l != nil {
			t.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
