package engine

import (
	"fmt"
	"log/slog"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/engine/fold"
	"github.com/dshills/textmodel/internal/event"
	"github.com/dshills/textmodel/internal/syntax/background"
	"github.com/dshills/textmodel/internal/syntax/bracket"
	"github.com/dshills/textmodel/internal/syntax/grammar"
	"github.com/dshills/textmodel/internal/syntax/iterator"
	"github.com/dshills/textmodel/internal/syntax/scheduler"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// Re-export commonly used types for convenience.
type (
	// Position is a row/column location in a document.
	Position = document.Position

	// Range is a span between two positions.
	Range = document.Range

	// Delta describes one document change.
	Delta = document.Delta

	// Token is a classified piece of a line.
	Token = tokenizer.Token

	// Fold is a collapsed range.
	Fold = fold.Fold
)

// foldPlaceholder replaces a folded bracket block.
const foldPlaceholder = "..."

// Session ties a document to a language: background tokens, folds and
// bracket matching all follow the document's edits.
//
// A session is not safe for concurrent use. Call it from the goroutine that
// pumps its queue, or through Host.Do when the session belongs to a Host.
type Session struct {
	doc     *document.Document
	lang    *grammar.Language
	tokens  *background.BackgroundTokenizer
	folds   *fold.Manager
	matcher *bracket.Matcher

	langChanged event.Signal[*grammar.Language]

	// Configuration
	newLineMode document.NewLineMode
	bgOpts      []background.Option
	logger      *slog.Logger
	closed      bool
}

// NewSession opens text with lang.
func NewSession(lang *grammar.Language, text string, opts ...Option) (*Session, error) {
	if lang == nil {
		return nil, ErrNoLanguage
	}
	s := &Session{logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	s.doc = document.New(text, document.WithNewLineMode(s.newLineMode))
	bgOpts := append([]background.Option{background.WithLogger(s.logger)}, s.bgOpts...)
	s.tokens = background.New(lang.Tokenizer, bgOpts...)
	s.folds = fold.NewManager(s.doc, fold.WithLogger(s.logger))
	s.install(lang)
	s.tokens.SetDocument(s.doc)
	return s, nil
}

// install makes lang the session's language and rebuilds the matcher.
func (s *Session) install(lang *grammar.Language) {
	s.lang = lang
	s.matcher = nil
	m, err := lang.NewMatcher(s.tokens, s.doc, bracket.WithLogger(s.logger))
	if err != nil {
		s.logger.Debug("bracket matching disabled", "language", lang.Name, "error", err)
		return
	}
	s.matcher = m
}

// Document returns the session's document.
func (s *Session) Document() *document.Document {
	return s.doc
}

// Language returns the active language.
func (s *Session) Language() *grammar.Language {
	return s.lang
}

// Background returns the background tokenizer.
func (s *Session) Background() *background.BackgroundTokenizer {
	return s.tokens
}

// Queue returns the queue background runs are scheduled on.
func (s *Session) Queue() *scheduler.Queue {
	return s.tokens.Queue()
}

// Folds returns the fold manager.
func (s *Session) Folds() *fold.Manager {
	return s.folds
}

// SetLanguage switches to lang and re-lexes the document from the top.
func (s *Session) SetLanguage(lang *grammar.Language) error {
	if s.closed {
		return ErrClosed
	}
	if lang == nil {
		return ErrNoLanguage
	}
	prev := s.lang.Name
	s.tokens.SetTokenizer(lang.Tokenizer)
	s.install(lang)
	s.logger.Info("language changed", "from", prev, "to", lang.Name)
	s.langChanged.Emit(lang)
	return nil
}

// OnLanguageChange subscribes h to language switches.
func (s *Session) OnLanguageChange(h func(*grammar.Language)) event.Subscription {
	return s.langChanged.Subscribe(h)
}

// OnUpdate subscribes h to background token updates.
func (s *Session) OnUpdate(h func(background.Update)) event.Subscription {
	return s.tokens.OnUpdate(h)
}

// Tokens returns row's tokens, lexing stale rows on demand.
func (s *Session) Tokens(row int) []Token {
	return s.tokens.Tokens(row)
}

// TokenAt returns the token covering pos.
func (s *Session) TokenAt(pos Position) (iterator.TokenInfo, bool) {
	return iterator.TokenAt(s.tokens, pos.Row, pos.Column)
}

// Iterator returns a token iterator positioned at pos.
func (s *Session) Iterator(pos Position) *iterator.Iterator {
	return iterator.New(s.tokens, pos.Row, pos.Column)
}

// Matcher returns the bracket matcher. It is nil when the language
// declares no bracket classes.
func (s *Session) Matcher() *bracket.Matcher {
	return s.matcher
}

// MatchingBracket returns the counterpart of the bracket just before pos.
func (s *Session) MatchingBracket(pos Position) (Position, bool) {
	if s.matcher == nil {
		return Position{}, false
	}
	return s.matcher.FindMatchingBracket(pos, 0)
}

// BracketRange returns the span between the bracket at pos and its
// counterpart.
func (s *Session) BracketRange(pos Position) (bracket.Range, bool) {
	if s.matcher == nil {
		return bracket.Range{}, false
	}
	return s.matcher.BracketRange(pos)
}

// MatchingTags returns the markup tag pair around pos.
func (s *Session) MatchingTags(pos Position) (bracket.TagPair, bool, error) {
	if s.matcher == nil {
		return bracket.TagPair{}, false, bracket.ErrNoBracketClasses
	}
	return s.matcher.MatchingTags(pos)
}

// FoldBlock folds the block opened by the last bracket on row whose match
// lies on a later row. The fold covers the text between the brackets.
func (s *Session) FoldBlock(row int) (*Fold, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.matcher == nil {
		return nil, fmt.Errorf("%w: %w", ErrNoFoldRange, bracket.ErrNoBracketClasses)
	}
	line := s.doc.Line(row)
	for col := len(line) - 1; col >= 0; col-- {
		chr := line[col]
		if chr != '(' && chr != '[' && chr != '{' {
			continue
		}
		start := document.Pos(row, col+1)
		end, ok := s.matcher.FindClosingBracket(chr, start)
		if !ok || end.Row == row {
			continue
		}
		return s.folds.AddFold(document.RangeFromPoints(start, end), foldPlaceholder)
	}
	return nil, fmt.Errorf("%w: %d", ErrNoFoldRange, row)
}

// Close stops background work and releases the session's subscriptions.
// The language stays open; whoever acquired it releases it.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.tokens.Close()
	s.folds.Close()
	s.langChanged.Reset()
}
