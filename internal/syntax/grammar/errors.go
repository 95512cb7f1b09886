package grammar

import (
	"errors"
	"fmt"
)

// Errors for grammar loading and compilation.
var (
	// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
	ErrUnknownFormat = errors.New("unknown grammar format")

	// ErrNoName is returned for a grammar without a name.
	ErrNoName = errors.New("grammar has no name")

	// ErrUnknownInclude is returned when a rule includes a missing state.
	ErrUnknownInclude = errors.New("include of unknown state")

	// ErrIncludeCycle is returned when states include each other.
	ErrIncludeCycle = errors.New("include cycle")

	// ErrConflictingRule is returned when a rule mixes incompatible keys.
	ErrConflictingRule = errors.New("conflicting rule keys")

	// ErrNoScript is returned when a rule names a script function but the
	// grammar has no script.
	ErrNoScript = errors.New("grammar has no script")

	// ErrUnknownFunction is returned when a script lacks a named function.
	ErrUnknownFunction = errors.New("script function not found")

	// ErrNotFound is returned when the registry has no such grammar.
	ErrNotFound = errors.New("grammar not found")

	// ErrScriptClosed is returned when calling into a closed script.
	ErrScriptClosed = errors.New("script is closed")

	// ErrLanguageClosed is returned when a language was closed before it
	// could be acquired.
	ErrLanguageClosed = errors.New("language is closed")
)

// ParseError locates a failure to decode a grammar file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RuleError locates a rule that could not be converted.
type RuleError struct {
	Grammar string
	State   string
	Rule    int
	Err     error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("grammar %s: state %q rule %d: %v", e.Grammar, e.State, e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
