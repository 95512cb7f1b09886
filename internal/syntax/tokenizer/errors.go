package tokenizer

import (
	"errors"
	"fmt"
)

// Errors returned when compiling a grammar.
var (
	// ErrNoStartState indicates the grammar has no "start" state.
	ErrNoStartState = errors.New("grammar has no start state")

	// ErrUnknownState indicates a transition targets a state the grammar lacks.
	ErrUnknownState = errors.New("unknown state")

	// ErrGroupCountMismatch indicates a PerGroup classification whose length
	// differs from the rule's capture group count.
	ErrGroupCountMismatch = errors.New("number of token types and regexp groups does not match")

	// ErrEmptyRegex indicates a rule with neither a regex nor a default token.
	ErrEmptyRegex = errors.New("rule has no regex")

	// ErrInvalidRegex indicates a rule pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex")
)

// GrammarError locates a grammar compile failure.
type GrammarError struct {
	// State is the state containing the rule.
	State string
	// Rule is the rule's index within the state, or -1.
	Rule int
	// Regex is the offending pattern, if any.
	Regex string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *GrammarError) Error() string {
	if e.Rule < 0 {
		return fmt.Sprintf("grammar state %q: %v", e.State, e.Err)
	}
	if e.Regex != "" {
		return fmt.Sprintf("grammar state %q rule %d (%s): %v", e.State, e.Rule, e.Regex, e.Err)
	}
	return fmt.Sprintf("grammar state %q rule %d: %v", e.State, e.Rule, e.Err)
}

// Unwrap returns the underlying error.
func (e *GrammarError) Unwrap() error {
	return e.Err
}
