package tokenizer

// Grammar is a declarative lexing table: state name to ordered rules.
// It must contain a "start" state.
type Grammar struct {
	States map[string][]Rule
}

// Rule is one alternative of a state.
type Rule struct {
	// Regex is the pattern to match. A rule with an empty Regex only sets
	// the state's DefaultToken.
	Regex string

	// Token classifies the match.
	Token Classification

	// Next optionally transitions the lexer after a match.
	Next Transition

	// CaseInsensitive matches Regex ignoring case.
	CaseInsensitive bool

	// DefaultToken classifies unmatched text in this rule's state.
	DefaultToken string

	// NoMerge keeps the match out of a preceding token of the same type.
	NoMerge bool

	// ConsumeLineEnd ends lexing of the line when the match reaches its end.
	ConsumeLineEnd bool
}

// Classification decides the token type(s) of a match. It is one of
// Static, PerGroup or Computed.
type Classification interface {
	classification()
}

// Static classifies the whole match with one type.
type Static string

// PerGroup splits a match into one token per capture group of the rule's
// regex. Its length must equal the number of capture groups.
type PerGroup []string

// Match is what a Computed classifier sees.
type Match struct {
	// Value is the matched text.
	Value string

	// Groups holds the rule's own capture groups; empty strings for groups
	// that did not participate.
	Groups []string

	// State is the lexer state at the time of the match.
	State State
}

// Computed classifies a match in code. Returning one type classifies the
// whole match; returning one type per capture group splits it like PerGroup.
type Computed func(m Match) []string

func (Static) classification()   {}
func (PerGroup) classification() {}
func (Computed) classification() {}

// Transition changes the lexer state after a match. It is one of Goto,
// Push, Pop or NextFunc.
type Transition interface {
	transition()
}

// Goto replaces the active label.
type Goto string

// Push enters a nested state, remembering the current one.
type Push string

// Pop returns to the state below the top of the stack, or to "start".
type Pop struct{}

// NextFunc computes the next label from the current label and stack, and
// returns the stack to carry forward.
type NextFunc func(current string, stack []string) (string, []string)

func (Goto) transition()     {}
func (Push) transition()     {}
func (Pop) transition()      {}
func (NextFunc) transition() {}

// apply runs t against the lexer's current label and stack.
func apply(t Transition, current string, stack []string) (string, []string) {
	switch t := t.(type) {
	case Goto:
		return string(t), stack
	case Push:
		next := string(t)
		if current != StartState || len(stack) > 0 {
			stack = append([]string{next, current}, stack...)
		}
		return next, stack
	case Pop:
		if len(stack) > 0 {
			stack = stack[1:]
		}
		if len(stack) == 0 {
			return StartState, nil
		}
		return stack[0], stack[1:]
	case NextFunc:
		return t(current, append([]string(nil), stack...))
	}
	return current, stack
}
