package tokenizer

import "strings"

// Token type names the tokenizer itself produces.
const (
	// TypeText is the default classification of text no rule matched.
	TypeText = "text"

	// TypeOverflow classifies the fixed-size chunks emitted once a line
	// exceeds the token ceiling.
	TypeOverflow = "overflow"
)

// Token is a classified span of a line.
type Token struct {
	Type  string
	Value string
}

// LineTokens is the result of lexing one line.
type LineTokens struct {
	Tokens []Token

	// State is the lexer state at the end of the line.
	State State
}

// Text concatenates the values of tokens.
func Text(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Value)
	}
	return b.String()
}

// Equal reports whether two token lists are identical.
func Equal(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
