package bracket

import (
	"errors"
	"io"
	"log/slog"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/syntax/iterator"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// ErrNoBracketClasses is returned when a matcher is built without any
// token type to bracket class mapping.
var ErrNoBracketClasses = errors.New("grammar declares no bracket classes")

// pairs maps each bracket to its counterpart.
var pairs = map[byte]byte{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
}

func isOpening(c byte) bool { return c == '(' || c == '[' || c == '{' }
func isClosing(c byte) bool { return c == ')' || c == ']' || c == '}' }

// LineSource supplies line text.
type LineSource interface {
	Line(row int) string
}

// Matcher finds matching brackets using token types to skip brackets that
// sit in strings, comments and other unrelated tokens.
type Matcher struct {
	src     iterator.Source
	lines   LineSource
	classes map[string]string
	tags    *TagTypes
	logger  *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTagTypes enables MatchingTags for markup grammars.
func WithTagTypes(t TagTypes) Option {
	return func(m *Matcher) {
		m.tags = &t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a matcher over the tokens of src and the text of lines.
// classes maps token types to a bracket class; brackets only match
// brackets in tokens of the same class.
func New(src iterator.Source, lines LineSource, classes map[string]string, opts ...Option) (*Matcher, error) {
	if len(classes) == 0 {
		return nil, ErrNoBracketClasses
	}
	m := &Matcher{
		src:     src,
		lines:   lines,
		classes: make(map[string]string, len(classes)),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for typ, class := range classes {
		m.classes[typ] = class
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// charAt returns the byte at column of row, or 0.
func (m *Matcher) charAt(row, column int) byte {
	line := m.lines.Line(row)
	if column < 0 || column >= len(line) {
		return 0
	}
	return line[column]
}

// FindMatchingBracket looks at the bracket just before pos, or at chr if
// it is non-zero, and returns the position of its counterpart.
func (m *Matcher) FindMatchingBracket(pos document.Position, chr byte) (document.Position, bool) {
	if pos.Column == 0 && chr == 0 {
		return document.Position{}, false
	}
	if chr == 0 {
		chr = m.charAt(pos.Row, pos.Column-1)
	}
	switch {
	case isOpening(chr):
		return m.FindClosingBracket(chr, pos)
	case isClosing(chr):
		return m.FindOpeningBracket(chr, pos)
	}
	return document.Position{}, false
}

// start positions an iterator at pos and returns the bracket class its
// token belongs to. Positions outside the row's text match nothing.
func (m *Matcher) start(pos document.Position) (*iterator.Iterator, tokenizer.Token, string, bool) {
	if pos.Row < 0 || pos.Column < 0 || pos.Row >= m.src.Length() || pos.Column > len(m.lines.Line(pos.Row)) {
		return nil, tokenizer.Token{}, "", false
	}
	it := iterator.New(m.src, pos.Row, pos.Column)
	tok, ok := it.CurrentToken()
	if !ok {
		if tok, ok = it.StepForward(); !ok {
			return nil, tokenizer.Token{}, "", false
		}
	}
	class, ok := m.classes[tok.Type]
	if !ok {
		m.logger.Debug("bracket in unclassified token", "type", tok.Type, "row", pos.Row, "column", pos.Column)
		return nil, tokenizer.Token{}, "", false
	}
	return it, tok, class, true
}

// FindOpeningBracket scans backward from pos, which follows the closing
// bracket, for the bracket that opens it.
func (m *Matcher) FindOpeningBracket(bracket byte, pos document.Position) (document.Position, bool) {
	open := pairs[bracket]
	it, tok, class, ok := m.start(pos)
	if !ok {
		return document.Position{}, false
	}

	depth := 1
	value := tok.Value
	// Start just before the bracket at pos.Column-1.
	i := min(pos.Column-it.CurrentTokenColumn()-2, len(value)-1)
	for {
		for ; i >= 0; i-- {
			switch value[i] {
			case open:
				depth--
				if depth == 0 {
					return document.Position{Row: it.CurrentTokenRow(), Column: i + it.CurrentTokenColumn()}, true
				}
			case bracket:
				depth++
			}
		}
		for ok = false; ; {
			if tok, ok = it.StepBackward(); !ok || m.classes[tok.Type] == class {
				break
			}
		}
		if !ok {
			return document.Position{}, false
		}
		value = tok.Value
		i = len(value) - 1
	}
}

// FindClosingBracket scans forward from pos, which follows the opening
// bracket, for the bracket that closes it.
func (m *Matcher) FindClosingBracket(bracket byte, pos document.Position) (document.Position, bool) {
	closing := pairs[bracket]
	it, tok, class, ok := m.start(pos)
	if !ok {
		return document.Position{}, false
	}

	depth := 1
	// Start just after the bracket at pos.Column-1.
	i := max(pos.Column-it.CurrentTokenColumn(), 0)
	for {
		value := tok.Value
		for ; i < len(value); i++ {
			switch value[i] {
			case closing:
				depth--
				if depth == 0 {
					return document.Position{Row: it.CurrentTokenRow(), Column: i + it.CurrentTokenColumn()}, true
				}
			case bracket:
				depth++
			}
		}
		for ok = false; ; {
			if tok, ok = it.StepForward(); !ok || m.classes[tok.Type] == class {
				break
			}
		}
		if !ok {
			return document.Position{}, false
		}
		i = 0
	}
}

// Range is a bracketed span with the position a caller should leave the
// cursor at after selecting it.
type Range struct {
	document.Range
	Cursor document.Position
}

// BracketRange returns the span between the bracket at pos and its
// counterpart. The bracket left of pos is tried first, then the one at pos.
// With the left bracket the span is measured from pos; with the bracket at
// pos it covers both brackets.
func (m *Matcher) BracketRange(pos document.Position) (Range, bool) {
	before := true
	chr := m.charAt(pos.Row, pos.Column-1)
	if !isOpening(chr) && !isClosing(chr) {
		chr = m.charAt(pos.Row, pos.Column)
		pos = document.Position{Row: pos.Row, Column: pos.Column + 1}
		before = false
	}

	var r Range
	switch {
	case isOpening(chr):
		end, ok := m.FindClosingBracket(chr, pos)
		if !ok {
			return Range{}, false
		}
		r.Range = document.RangeFromPoints(pos, end)
		if !before {
			r.End.Column++
			r.Start.Column--
		}
		r.Cursor = r.End
	case isClosing(chr):
		start, ok := m.FindOpeningBracket(chr, pos)
		if !ok {
			return Range{}, false
		}
		r.Range = document.RangeFromPoints(start, pos)
		if !before {
			r.Start.Column++
			r.End.Column--
		}
		r.Cursor = r.Start
	default:
		return Range{}, false
	}
	return r, true
}
