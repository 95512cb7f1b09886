package grammar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textmodel/internal/syntax/bracket"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

const iniYAML = `
name: ini
extensions: [ini, .CFG]
brackets:
  paren.lparen: paren
  paren.rparen: paren
keywords:
  types:
    constant.language: ["true", "false"]
  default: identifier
  ignoreCase: true
states:
  start:
    - include: comments
    - regex: '\['
      token: paren.lparen
      push: section
    - regex: '(\w+)(\s*=\s*)'
      tokens: [variable, keyword.operator]
    - regex: '\w+'
      keywords: true
  section:
    - regex: '\]'
      token: paren.rparen
      next: pop
    - defaultToken: section.name
  comments:
    - regex: ';.*$'
      token: comment
`

const iniTOML = `
name = "ini"
extensions = ["ini"]

[brackets]
"paren.lparen" = "paren"
"paren.rparen" = "paren"

[[states.start]]
regex = ';.*$'
token = "comment"

[[states.start]]
regex = '\['
token = "paren.lparen"
push = "section"

[[states.section]]
regex = '\]'
token = "paren.rparen"
next = "pop"

[[states.section]]
defaultToken = "section.name"
`

func tk(typ, value string) tokenizer.Token {
	return tokenizer.Token{Type: typ, Value: value}
}

func compile(t *testing.T, format Format, src string, opts ...CompileOption) *Language {
	def, err := Parse("test", format, []byte(src))
	require.NoError(t, err)
	lang, err := def.Compile(opts...)
	require.NoError(t, err)
	t.Cleanup(lang.Close)
	return lang
}

func TestCompileYAML(t *testing.T) {
	lang := compile(t, FormatYAML, iniYAML)
	assert.Equal(t, "ini", lang.Name)
	assert.Equal(t, []string{".ini", ".cfg"}, lang.Extensions)
	assert.Equal(t, []string{"comments", "section", "start"}, lang.Tokenizer.States())

	res := lang.Tokenizer.GetLineTokens("[core]", tokenizer.State{})
	assert.Equal(t, []tokenizer.Token{
		tk("paren.lparen", "["),
		tk("section.name", "core"),
		tk("paren.rparen", "]"),
	}, res.Tokens)
	assert.Equal(t, "start", res.State.Current())

	res = lang.Tokenizer.GetLineTokens("name = TRUE ; c", tokenizer.State{})
	assert.Equal(t, []tokenizer.Token{
		tk("variable", "name"),
		tk("keyword.operator", " = "),
		tk("constant.language", "TRUE"),
		tk("text", " "),
		tk("comment", "; c"),
	}, res.Tokens)
}

func TestCompileTOML(t *testing.T) {
	lang := compile(t, FormatTOML, iniTOML)
	res := lang.Tokenizer.GetLineTokens("[a] ;x", tokenizer.State{})
	assert.Equal(t, []tokenizer.Token{
		tk("paren.lparen", "["),
		tk("section.name", "a"),
		tk("paren.rparen", "]"),
		tk("text", " "),
		tk("comment", ";x"),
	}, res.Tokens)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("bad.yaml", FormatYAML, []byte("name: x\nbogus: 1\n"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.yaml", pe.Path)
	assert.Equal(t, 2, pe.Line)

	_, err = Parse("bad.toml", FormatTOML, []byte("name = \"x\"\nbogus = 1\n"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)

	_, err = Parse("bad.toml", FormatTOML, []byte("name = \n"))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)

	_, err = Parse("noname.yaml", FormatYAML, []byte("states: {}\n"))
	assert.ErrorIs(t, err, ErrNoName)

	_, err = Parse("x.json", FormatOf("x.json"), []byte("{}"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatOf("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatOf("B.YAML"))
	assert.Equal(t, FormatTOML, FormatOf("c.toml"))
	assert.Equal(t, FormatUnknown, FormatOf("d.json"))
	assert.Equal(t, "toml", FormatTOML.String())
}

func TestIncludeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown", `
name: x
states:
  start:
    - include: missing
`, ErrUnknownInclude},
		{"cycle", `
name: x
states:
  start:
    - include: a
  a:
    - include: b
  b:
    - include: a
`, ErrIncludeCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse("test", FormatYAML, []byte(tt.src))
			require.NoError(t, err)
			_, err = def.Compile()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRuleErrors(t *testing.T) {
	tests := []struct {
		name string
		rule string
		want error
	}{
		{"two classifiers", "{regex: a, token: x, tokens: [y]}", ErrConflictingRule},
		{"two transitions", "{regex: a, token: x, next: b, push: b}", ErrConflictingRule},
		{"keywords without table", "{regex: a, keywords: true}", ErrConflictingRule},
		{"token func without script", "{regex: a, tokenFunc: f}", ErrNoScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "name: x\nstates:\n  start:\n    - " + tt.rule + "\n"
			def, err := Parse("test", FormatYAML, []byte(src))
			require.NoError(t, err)
			_, err = def.Compile()
			assert.ErrorIs(t, err, tt.want)
			var re *RuleError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "start", re.State)
			assert.Equal(t, 0, re.Rule)
		})
	}
}

func TestTokenizerErrorsSurface(t *testing.T) {
	def, err := Parse("test", FormatYAML, []byte("name: x\nstates:\n  other:\n    - {regex: a, token: x}\n"))
	require.NoError(t, err)
	_, err = def.Compile()
	assert.ErrorIs(t, err, tokenizer.ErrNoStartState)
}

func TestMaxTokenCount(t *testing.T) {
	lang := compile(t, FormatYAML, "name: x\nmaxTokenCount: 3\nstates:\n  start:\n    - {regex: a, token: a, merge: false}\n")
	assert.Equal(t, 3, lang.Tokenizer.MaxTokenCount())
	res := lang.Tokenizer.GetLineTokens("aaaaaa", tokenizer.State{})
	assert.Equal(t, tokenizer.TypeOverflow, res.Tokens[len(res.Tokens)-1].Type)
}

func TestLanguageMatcher(t *testing.T) {
	lang := compile(t, FormatYAML, iniYAML)
	_, err := lang.NewMatcher(nil, nil)
	assert.NoError(t, err)

	bare := compile(t, FormatTOML, "name = \"bare\"\n[[states.start]]\nregex = 'a'\ntoken = \"a\"\n")
	_, err = bare.NewMatcher(nil, nil)
	assert.ErrorIs(t, err, bracket.ErrNoBracketClasses)
}

func TestScriptHooks(t *testing.T) {
	src := `
name: hooks
script: |
  function classify(value, groups, state)
    if value == string.upper(value) then return "constant" end
    return "identifier"
  end
  function split(value, groups, state)
    return {"key", "value"}
  end
  function enter(current, stack)
    return "inner", {"inner", current}
  end
  function leave(current, stack)
    return "start", {}
  end
states:
  start:
    - regex: '(\w+):(\w+)'
      tokenFunc: split
    - regex: '\w+'
      tokenFunc: classify
    - regex: '<'
      token: open
      nextFunc: enter
  inner:
    - regex: '>'
      token: close
      nextFunc: leave
    - defaultToken: inner
`
	lang := compile(t, FormatYAML, src)
	res := lang.Tokenizer.GetLineTokens("ABC abc a:b <x", tokenizer.State{})
	assert.Equal(t, []tokenizer.Token{
		tk("constant", "ABC"),
		tk("text", " "),
		tk("identifier", "abc"),
		tk("text", " "),
		tk("key", "a"),
		tk("text", ":"),
		tk("value", "b"),
		tk("text", " "),
		tk("open", "<"),
		tk("inner", "x"),
	}, res.Tokens)
	assert.Equal(t, "inner", res.State.Current())
	assert.Equal(t, []string{"inner", "start"}, res.State.Stack())

	res = lang.Tokenizer.GetLineTokens("y>", res.State)
	assert.Equal(t, []tokenizer.Token{tk("inner", "y"), tk("close", ">")}, res.Tokens)
	assert.Equal(t, "start", res.State.Current())
}

func TestScriptUnknownFunction(t *testing.T) {
	def, err := Parse("test", FormatYAML, []byte("name: x\nscript: 'function f() end'\nstates:\n  start:\n    - {regex: a, tokenFunc: g}\n"))
	require.NoError(t, err)
	_, err = def.Compile()
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestScriptTimeoutFallsBackToText(t *testing.T) {
	src := "name: x\nscript: 'function spin(v, g, s) while true do end end'\nstates:\n  start:\n    - {regex: a, tokenFunc: spin}\n"
	lang := compile(t, FormatYAML, src, WithScriptOptions(WithCallTimeout(20*time.Millisecond)))
	res := lang.Tokenizer.GetLineTokens("a", tokenizer.State{})
	assert.Equal(t, []tokenizer.Token{tk("text", "a")}, res.Tokens)
}

func TestScriptSandbox(t *testing.T) {
	for _, src := range []string{
		`os.exit(1)`,
		`io.open("/etc/passwd")`,
		`dofile("x.lua")`,
		`require("os")`,
	} {
		_, err := NewScript(src)
		assert.Error(t, err, src)
	}

	s, err := NewScript(`x = string.upper("a") .. math.floor(1.5) .. table.concat({"b"})`)
	require.NoError(t, err)
	s.Close()
	assert.False(t, s.HasFunction("x"))
}
