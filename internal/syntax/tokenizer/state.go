package tokenizer

import "strings"

// StartState is the state lexing begins in and falls back to.
const StartState = "start"

// tmpFrame marks a frame sequence whose active label differs from the head
// of its stack.
const tmpFrame = "#tmp"

// State is the lexer mode carried from the end of one line into the next.
//
// A State is either simple (just a label) or nested (a label plus the stack
// of frames pushed by Push transitions, head first). The zero value is the
// simple start state.
type State struct {
	current string
	stack   []string
}

// Simple returns a state without a stack.
func Simple(label string) State {
	return State{current: label}
}

// Nested returns a state whose active label is current and whose pushed
// frames are stack, head first.
func Nested(current string, stack []string) State {
	if len(stack) == 0 {
		return Simple(current)
	}
	return State{current: current, stack: append([]string(nil), stack...)}
}

// Current returns the active label.
func (s State) Current() string {
	if s.current == "" {
		return StartState
	}
	return s.current
}

// Stack returns a copy of the pushed frames, head first.
func (s State) Stack() []string {
	return append([]string(nil), s.stack...)
}

// IsNested reports whether the state carries pushed frames.
func (s State) IsNested() bool {
	return len(s.stack) > 0
}

// Frames encodes the state as a single label sequence. A simple state is
// just its label. A nested state is its stack, prefixed with the "#tmp"
// sentinel and the active label when the active label is not the stack head.
func (s State) Frames() []string {
	if len(s.stack) == 0 {
		return []string{s.Current()}
	}
	if s.stack[0] != s.Current() {
		out := make([]string, 0, len(s.stack)+2)
		out = append(out, tmpFrame, s.Current())
		return append(out, s.stack...)
	}
	return s.Stack()
}

// StateFromFrames decodes a sequence produced by Frames.
func StateFromFrames(frames []string) State {
	switch {
	case len(frames) == 0:
		return State{}
	case frames[0] == tmpFrame && len(frames) >= 2:
		return Nested(frames[1], frames[2:])
	case len(frames) == 1:
		return Simple(frames[0])
	default:
		return Nested(frames[0], frames)
	}
}

// Equal reports whether two states lex the following line identically.
func (s State) Equal(o State) bool {
	if s.Current() != o.Current() || len(s.stack) != len(o.stack) {
		return false
	}
	for i := range s.stack {
		if s.stack[i] != o.stack[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (s State) String() string {
	return strings.Join(s.Frames(), ",")
}
