package tokenizer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Tokenizer lexes lines with a compiled Grammar. It holds no per-line state
// and is safe for concurrent use.
type Tokenizer struct {
	states       map[string]*compiledState
	names        []string
	maxTokens    int
	matchTimeout time.Duration
	logger       *slog.Logger
}

// compiledState is one state's rules spliced into a single alternation.
type compiledState struct {
	re *regexp2.Regexp

	// groupRule maps a capture group of re (1-based, minus one) to the rule
	// it wraps. Groups inside a rule map to nil.
	groupRule []*compiledRule

	defaultToken string
}

// compiledRule is a rule with its classification resolved.
type compiledRule struct {
	classify       func(lx *lexer, start, end int, st State) (string, []Token)
	next           Transition
	noMerge        bool
	consumeLineEnd bool
}

// New compiles g.
func New(g Grammar, opts ...Option) (*Tokenizer, error) {
	t := &Tokenizer{
		states:       make(map[string]*compiledState, len(g.States)),
		maxTokens:    DefaultMaxTokenCount,
		matchTimeout: DefaultMatchTimeout,
		logger:       discardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if _, ok := g.States[StartState]; !ok {
		return nil, &GrammarError{State: StartState, Rule: -1, Err: ErrNoStartState}
	}
	for name := range g.States {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)

	for _, name := range t.names {
		cs, err := t.compileState(name, g.States[name], g.States)
		if err != nil {
			return nil, err
		}
		t.states[name] = cs
	}
	return t, nil
}

// States returns the grammar's state names, sorted.
func (t *Tokenizer) States() []string {
	return append([]string(nil), t.names...)
}

// MaxTokenCount returns the per-line token ceiling.
func (t *Tokenizer) MaxTokenCount() int {
	return t.maxTokens
}

func (t *Tokenizer) compile(src string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(src, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
	}
	if t.matchTimeout > 0 {
		re.MatchTimeout = t.matchTimeout
	}
	return re, nil
}

func (t *Tokenizer) compileState(name string, rules []Rule, all map[string][]Rule) (*compiledState, error) {
	cs := &compiledState{defaultToken: TypeText}
	alts := make([]string, 0, len(rules)+1)

	for i, r := range rules {
		if r.DefaultToken != "" {
			cs.defaultToken = r.DefaultToken
		}
		if r.Regex == "" {
			if r.DefaultToken == "" {
				return nil, &GrammarError{State: name, Rule: i, Err: ErrEmptyRegex}
			}
			continue
		}
		if err := checkTarget(r.Next, all); err != nil {
			return nil, &GrammarError{State: name, Rule: i, Regex: r.Regex, Err: err}
		}

		src := stripGroupNames(r.Regex)
		own, err := t.compile(src)
		if err != nil {
			return nil, &GrammarError{State: name, Rule: i, Regex: r.Regex, Err: err}
		}
		groups := len(own.GetGroupNumbers()) - 1

		cr := &compiledRule{
			next:           r.Next,
			noMerge:        r.NoMerge,
			consumeLineEnd: r.ConsumeLineEnd,
		}
		cr.classify, err = t.classifier(r, src, groups)
		if err != nil {
			return nil, &GrammarError{State: name, Rule: i, Regex: r.Regex, Err: err}
		}

		adjusted, kept := src, 0
		if groups > 0 {
			if hasBackref(src) {
				adjusted, kept = remapBackrefs(src, len(cs.groupRule)+1), groups
			} else {
				adjusted = removeCapturingGroups(src)
			}
		}
		if r.CaseInsensitive {
			adjusted = "(?i:" + adjusted + ")"
		}
		alts = append(alts, "("+adjusted+")")
		cs.groupRule = append(cs.groupRule, cr)
		for range kept {
			cs.groupRule = append(cs.groupRule, nil)
		}
	}

	alts = append(alts, "($)")
	re, err := t.compile(strings.Join(alts, "|"))
	if err != nil {
		return nil, &GrammarError{State: name, Rule: -1, Err: err}
	}
	cs.re = re
	return cs, nil
}

func checkTarget(next Transition, all map[string][]Rule) error {
	var target string
	switch n := next.(type) {
	case Goto:
		target = string(n)
	case Push:
		target = string(n)
	default:
		return nil
	}
	if _, ok := all[target]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownState, target)
	}
	return nil
}

// classifier resolves a rule's Classification into one call shape.
func (t *Tokenizer) classifier(r Rule, src string, groups int) (func(*lexer, int, int, State) (string, []Token), error) {
	static := func(typ string) func(*lexer, int, int, State) (string, []Token) {
		if typ == "" {
			typ = TypeText
		}
		return func(*lexer, int, int, State) (string, []Token) { return typ, nil }
	}

	var splitter *regexp2.Regexp
	if groups > 0 {
		pattern := src
		if r.CaseInsensitive {
			pattern = "(?i:" + pattern + ")"
		}
		var err error
		if splitter, err = t.compile(`\G(?:` + pattern + `)`); err != nil {
			return nil, err
		}
	}

	switch tok := r.Token.(type) {
	case nil:
		return static(TypeText), nil
	case Static:
		return static(string(tok)), nil
	case PerGroup:
		if len(tok) == 0 {
			return nil, fmt.Errorf("%w: no types for %d groups", ErrGroupCountMismatch, groups)
		}
		if len(tok) == 1 {
			return static(tok[0]), nil
		}
		if len(tok) != groups {
			return nil, fmt.Errorf("%w: %d types for %d groups", ErrGroupCountMismatch, len(tok), groups)
		}
		types := []string(tok)
		return func(lx *lexer, start, end int, _ State) (string, []Token) {
			m := lx.split(splitter, start, end)
			if m == nil {
				return TypeText, nil
			}
			return "", lx.splitTokens(m, types, start, end)
		}, nil
	case Computed:
		return func(lx *lexer, start, end int, st State) (string, []Token) {
			var m *regexp2.Match
			match := Match{Value: lx.slice(start, end), State: st}
			if splitter != nil {
				match.Groups = make([]string, groups)
				if m = lx.split(splitter, start, end); m != nil {
					for i := range groups {
						match.Groups[i] = m.GroupByNumber(i + 1).String()
					}
				}
			}
			types := tok(match)
			switch {
			case len(types) == 0:
				return TypeText, nil
			case len(types) == 1 || m == nil || len(types) != groups:
				if types[0] == "" {
					return TypeText, nil
				}
				return types[0], nil
			}
			return "", lx.splitTokens(m, types, start, end)
		}, nil
	}
	return nil, fmt.Errorf("unsupported classification %T", r.Token)
}

// GetLineTokens lexes line starting in state start.
func (t *Tokenizer) GetLineTokens(line string, start State) LineTokens {
	current := start.Current()
	stack := start.Stack()
	st, ok := t.states[current]
	if !ok {
		current = StartState
		st = t.states[current]
	}

	lx := newLexer(line)
	n := len(lx.runes)
	var (
		tokens   []Token
		tok      Token
		last     int
		pos      int
		attempts int
	)
	flush := func() {
		if tok.Type != "" {
			tokens = append(tokens, tok)
		}
	}

	for {
		m, err := st.re.FindRunesMatchStartingAt(lx.runes, pos)
		if err != nil {
			t.logger.Warn("tokenizer match failed", "state", current, "column", lx.offsets[pos], "error", err)
			tokens = t.overflow(tokens, &tok, lx, last)
			current, stack = StartState, nil
			break
		}
		if m == nil {
			// Unreachable while the trailing ($) alternative is present.
			if last < n {
				flush()
				tok = Token{Type: st.defaultToken, Value: lx.slice(last, n)}
			}
			break
		}

		typ := st.defaultToken
		mStart, index := m.Index, m.Index+m.Length
		if mStart > last {
			skipped := lx.slice(last, mStart)
			if tok.Type == typ {
				tok.Value += skipped
			} else {
				flush()
				tok = Token{Type: typ, Value: skipped}
			}
		}

		var rule *compiledRule
		var split []Token
		moved := false
		for g, cr := range st.groupRule {
			if cr == nil || len(m.GroupByNumber(g+1).Captures) == 0 {
				continue
			}
			rule = cr
			typ, split = cr.classify(lx, mStart, index, Nested(current, stack))
			if cr.next != nil {
				prev := current
				current, stack = apply(cr.next, current, stack)
				next, ok := t.states[current]
				if !ok {
					t.logger.Warn("transition to unknown state", "from", prev, "to", current)
					current = StartState
					next = t.states[current]
				}
				st = next
				last = index
				moved = true
			}
			if cr.consumeLineEnd {
				last = index
			}
			break
		}

		if index > mStart {
			if split == nil {
				value := lx.slice(mStart, index)
				if (rule == nil || !rule.noMerge) && tok.Type == typ {
					tok.Value += value
				} else {
					flush()
					tok = Token{Type: typ, Value: value}
				}
			} else {
				flush()
				tok = Token{}
				tokens = append(tokens, split...)
			}
		}

		if last == n {
			break
		}
		last, pos = index, index
		if index == mStart && !moved {
			if index >= n {
				break
			}
			// Step over one character; it is picked up as a gap.
			pos++
		}

		attempts++
		if attempts > t.maxTokens {
			t.logger.Warn("line exceeds token limit", "limit", t.maxTokens, "length", len(line))
			tokens = t.overflow(tokens, &tok, lx, last)
			current, stack = StartState, nil
			break
		}
	}
	flush()

	return LineTokens{Tokens: tokens, State: Nested(current, stack)}
}

// overflow finishes the line from rune index from as fixed-size overflow
// tokens, leaving the last chunk pending in tok.
func (t *Tokenizer) overflow(tokens []Token, tok *Token, lx *lexer, from int) []Token {
	n := len(lx.runes)
	for from < n {
		if tok.Type != "" {
			tokens = append(tokens, *tok)
		}
		end := min(from+overflowChunk, n)
		*tok = Token{Type: TypeOverflow, Value: lx.slice(from, end)}
		from = end
	}
	return tokens
}

// lexer is the per-line view the regex engine works on. Matches are in
// runes; token values are cut from the original bytes.
type lexer struct {
	line    string
	runes   []rune
	offsets []int
}

func newLexer(line string) *lexer {
	lx := &lexer{
		line:    line,
		runes:   make([]rune, 0, len(line)),
		offsets: make([]int, 0, len(line)+1),
	}
	for i, r := range line {
		lx.runes = append(lx.runes, r)
		lx.offsets = append(lx.offsets, i)
	}
	lx.offsets = append(lx.offsets, len(line))
	return lx
}

func (lx *lexer) slice(start, end int) string {
	return lx.line[lx.offsets[start]:lx.offsets[end]]
}

// split re-runs a rule's own pattern at start to recover its groups.
func (lx *lexer) split(splitter *regexp2.Regexp, start, end int) *regexp2.Match {
	m, err := splitter.FindRunesMatchStartingAt(lx.runes, start)
	if err != nil || m == nil || m.Index != start || m.Index+m.Length != end {
		return nil
	}
	return m
}

// splitTokens emits one token per participating group of m. Text outside
// the groups becomes plain text tokens so the result still covers the match.
func (lx *lexer) splitTokens(m *regexp2.Match, types []string, start, end int) []Token {
	out := make([]Token, 0, len(types)+1)
	cursor := start
	for i, typ := range types {
		g := m.GroupByNumber(i + 1)
		if g == nil || len(g.Captures) == 0 || g.Length == 0 || g.Index < cursor {
			continue
		}
		if g.Index > cursor {
			out = append(out, Token{Type: TypeText, Value: lx.slice(cursor, g.Index)})
		}
		if typ == "" {
			typ = TypeText
		}
		out = append(out, Token{Type: typ, Value: lx.slice(g.Index, g.Index+g.Length)})
		cursor = g.Index + g.Length
	}
	if cursor < end {
		out = append(out, Token{Type: TypeText, Value: lx.slice(cursor, end)})
	}
	return out
}
