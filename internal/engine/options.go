package engine

import (
	"io"
	"log/slog"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/syntax/background"
	"github.com/dshills/textmodel/internal/syntax/scheduler"
)

// Option configures a Session during creation.
type Option func(*Session)

// WithNewLineMode sets the document's newline mode.
func WithNewLineMode(m document.NewLineMode) Option {
	return func(s *Session) {
		s.newLineMode = m
	}
}

// WithQueue schedules background runs on q.
func WithQueue(q *scheduler.Queue) Option {
	return func(s *Session) {
		s.bgOpts = append(s.bgOpts, background.WithQueue(q))
	}
}

// WithBackgroundOptions passes options to the background tokenizer.
func WithBackgroundOptions(opts ...background.Option) Option {
	return func(s *Session) {
		s.bgOpts = append(s.bgOpts, opts...)
	}
}

// WithConfig applies the document and background settings of cfg.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.newLineMode = cfg.NewLineMode()
		s.bgOpts = append(s.bgOpts, cfg.BackgroundOptions()...)
	}
}

// WithLogger sets the logger shared by the session's components.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
