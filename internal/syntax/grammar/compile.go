package grammar

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/textmodel/internal/syntax/bracket"
	"github.com/dshills/textmodel/internal/syntax/iterator"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// popState is the Next value that pops the state stack.
const popState = "pop"

// Language is a compiled grammar.
type Language struct {
	Name       string
	Extensions []string
	Tokenizer  *tokenizer.Tokenizer
	Brackets   map[string]string
	Tags       *bracket.TagTypes

	script *Script

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

// NewMatcher builds a bracket matcher over src and lines using the
// language's bracket classes and tag types.
func (l *Language) NewMatcher(src iterator.Source, lines bracket.LineSource, opts ...bracket.Option) (*bracket.Matcher, error) {
	if l.Tags != nil {
		opts = append(opts, bracket.WithTagTypes(*l.Tags))
	}
	return bracket.New(src, lines, l.Brackets, opts...)
}

// Acquire records a user of the language. It reports false once the
// language is closed.
func (l *Language) Acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.refs++
	return true
}

// Release drops a user recorded by Acquire. A language its registry has
// dropped is closed when the last user releases it.
func (l *Language) Release() {
	l.mu.Lock()
	if l.refs > 0 {
		l.refs--
	}
	done := l.retired && l.refs == 0
	l.mu.Unlock()
	if done {
		l.Close()
	}
}

// retire marks the language as dropped from its registry's cache and
// closes it if nothing holds it.
func (l *Language) retire() {
	l.mu.Lock()
	l.retired = true
	done := l.refs == 0
	l.mu.Unlock()
	if done {
		l.Close()
	}
}

// Closed reports whether the language has been closed.
func (l *Language) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close releases the language's script, if any.
func (l *Language) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	if l.script != nil {
		l.script.Close()
	}
}

type compileConfig struct {
	logger    *slog.Logger
	tokenOpts []tokenizer.Option
	scriptOps []ScriptOption
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithLogger sets the logger passed to the tokenizer and script.
func WithLogger(l *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTokenizerOptions passes options to tokenizer.New.
func WithTokenizerOptions(opts ...tokenizer.Option) CompileOption {
	return func(c *compileConfig) {
		c.tokenOpts = append(c.tokenOpts, opts...)
	}
}

// WithScriptOptions passes options to NewScript.
func WithScriptOptions(opts ...ScriptOption) CompileOption {
	return func(c *compileConfig) {
		c.scriptOps = append(c.scriptOps, opts...)
	}
}

// Compile turns the definition into a Language.
func (d *Definition) Compile(opts ...CompileOption) (*Language, error) {
	cfg := compileConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	states, err := d.expandIncludes()
	if err != nil {
		return nil, err
	}

	var script *Script
	if d.Script != "" {
		sopts := append([]ScriptOption{WithScriptLogger(cfg.logger)}, cfg.scriptOps...)
		if script, err = NewScript(d.Script, sopts...); err != nil {
			return nil, fmt.Errorf("grammar %s: %w", d.Name, err)
		}
	}
	fail := func(err error) (*Language, error) {
		if script != nil {
			script.Close()
		}
		return nil, err
	}

	var keywords *tokenizer.KeywordMapper
	if d.Keywords != nil {
		keywords = tokenizer.NewKeywordMapper(d.Keywords.Types, d.Keywords.Default, d.Keywords.IgnoreCase)
	}

	g := tokenizer.Grammar{States: make(map[string][]tokenizer.Rule, len(states))}
	for name, specs := range states {
		rules := make([]tokenizer.Rule, 0, len(specs))
		for i, spec := range specs {
			r, err := d.convert(spec, script, keywords)
			if err != nil {
				return fail(&RuleError{Grammar: d.Name, State: name, Rule: i, Err: err})
			}
			rules = append(rules, r)
		}
		g.States[name] = rules
	}

	topts := append([]tokenizer.Option{tokenizer.WithLogger(cfg.logger)}, cfg.tokenOpts...)
	if d.MaxTokenCount > 0 {
		topts = append(topts, tokenizer.WithMaxTokenCount(d.MaxTokenCount))
	}
	tok, err := tokenizer.New(g, topts...)
	if err != nil {
		return fail(fmt.Errorf("grammar %s: %w", d.Name, err))
	}

	lang := &Language{
		Name:       d.Name,
		Extensions: normalizeExtensions(d.Extensions),
		Tokenizer:  tok,
		Brackets:   d.Brackets,
		script:     script,
	}
	if d.Tags != nil {
		lang.Tags = &bracket.TagTypes{
			Open:    d.Tags.Open,
			EndOpen: d.Tags.EndOpen,
			Close:   d.Tags.Close,
			Name:    d.Tags.Name,
		}
	}
	return lang, nil
}

// convert maps one declarative rule onto a tokenizer rule.
func (d *Definition) convert(spec RuleSpec, script *Script, keywords *tokenizer.KeywordMapper) (tokenizer.Rule, error) {
	r := tokenizer.Rule{
		Regex:           spec.Regex,
		CaseInsensitive: spec.CaseInsensitive,
		DefaultToken:    spec.DefaultToken,
		NoMerge:         spec.Merge != nil && !*spec.Merge,
		ConsumeLineEnd:  spec.ConsumeLineEnd,
	}

	classifiers := 0
	for _, set := range []bool{spec.Token != "", len(spec.Tokens) > 0, spec.TokenFunc != "", spec.Keywords} {
		if set {
			classifiers++
		}
	}
	if classifiers > 1 {
		return r, fmt.Errorf("%w: token, tokens, tokenFunc and keywords are exclusive", ErrConflictingRule)
	}
	switch {
	case spec.Token != "":
		r.Token = tokenizer.Static(spec.Token)
	case len(spec.Tokens) > 0:
		r.Token = tokenizer.PerGroup(spec.Tokens)
	case spec.TokenFunc != "":
		if err := requireFunction(script, spec.TokenFunc); err != nil {
			return r, err
		}
		r.Token = script.Classification(spec.TokenFunc)
	case spec.Keywords:
		if keywords == nil {
			return r, fmt.Errorf("%w: keywords set without a keyword table", ErrConflictingRule)
		}
		r.Token = keywords.Classification()
	}

	transitions := 0
	for _, set := range []bool{spec.Next != "", spec.Push != "", spec.NextFunc != ""} {
		if set {
			transitions++
		}
	}
	if transitions > 1 {
		return r, fmt.Errorf("%w: next, push and nextFunc are exclusive", ErrConflictingRule)
	}
	switch {
	case spec.Next == popState:
		r.Next = tokenizer.Pop{}
	case spec.Next != "":
		r.Next = tokenizer.Goto(spec.Next)
	case spec.Push != "":
		r.Next = tokenizer.Push(spec.Push)
	case spec.NextFunc != "":
		if err := requireFunction(script, spec.NextFunc); err != nil {
			return r, err
		}
		r.Next = script.Transition(spec.NextFunc)
	}
	return r, nil
}

func requireFunction(script *Script, name string) error {
	if script == nil {
		return fmt.Errorf("%w: %s", ErrNoScript, name)
	}
	if !script.HasFunction(name) {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return nil
}

// expandIncludes replaces include rules with the included state's rules.
func (d *Definition) expandIncludes() (map[string][]RuleSpec, error) {
	out := make(map[string][]RuleSpec, len(d.States))
	visiting := make(map[string]bool)

	var expand func(name string) ([]RuleSpec, error)
	expand = func(name string) ([]RuleSpec, error) {
		if rules, ok := out[name]; ok {
			return rules, nil
		}
		specs, ok := d.States[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInclude, name)
		}
		if visiting[name] {
			return nil, fmt.Errorf("%w through %q", ErrIncludeCycle, name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		var rules []RuleSpec
		for _, spec := range specs {
			if spec.Include == "" {
				rules = append(rules, spec)
				continue
			}
			included, err := expand(spec.Include)
			if err != nil {
				return nil, err
			}
			rules = append(rules, included...)
		}
		out[name] = rules
		return rules, nil
	}

	names := make([]string, 0, len(d.States))
	for name := range d.States {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := expand(name); err != nil {
			return nil, fmt.Errorf("grammar %s: state %q: %w", d.Name, name, err)
		}
	}
	return out, nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, strings.ToLower(ext))
	}
	return out
}
