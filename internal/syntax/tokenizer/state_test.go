package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateZeroValueIsStart(t *testing.T) {
	var s State
	assert.Equal(t, StartState, s.Current())
	assert.False(t, s.IsNested())
	assert.Equal(t, []string{"start"}, s.Frames())
	assert.True(t, s.Equal(Simple("start")))
}

func TestStateFrames(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		frames []string
	}{
		{"simple", Simple("comment"), []string{"comment"}},
		{"nested head active", Nested("b", []string{"b", "a"}), []string{"b", "a"}},
		{"nested head differs", Nested("c", []string{"b", "a"}), []string{"#tmp", "c", "b", "a"}},
		{"empty stack is simple", Nested("x", nil), []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.frames, tt.state.Frames())
			assert.True(t, StateFromFrames(tt.frames).Equal(tt.state))
		})
	}
}

func TestStateEqual(t *testing.T) {
	assert.True(t, Nested("a", []string{"a", "start"}).Equal(Nested("a", []string{"a", "start"})))
	assert.False(t, Nested("a", []string{"a", "start"}).Equal(Simple("a")))
	assert.False(t, Simple("a").Equal(Simple("b")))
}

func TestStateStackIsCopied(t *testing.T) {
	stack := []string{"a", "b"}
	s := Nested("a", stack)
	stack[0] = "z"
	assert.Equal(t, []string{"a", "b"}, s.Stack())

	got := s.Stack()
	got[1] = "z"
	assert.Equal(t, []string{"a", "b"}, s.Stack())
}

func TestApplyTransitions(t *testing.T) {
	cur, stack := apply(Push("block"), StartState, nil)
	assert.Equal(t, "block", cur)
	assert.Empty(t, stack, "push from bare start records nothing")

	cur, stack = apply(Push("inner"), "block", nil)
	assert.Equal(t, "inner", cur)
	assert.Equal(t, []string{"inner", "block"}, stack)

	cur, stack = apply(Pop{}, cur, stack)
	assert.Equal(t, "block", cur)
	assert.Empty(t, stack)

	cur, stack = apply(Pop{}, cur, stack)
	assert.Equal(t, StartState, cur)
	assert.Empty(t, stack)

	cur, _ = apply(Goto("x"), "y", nil)
	assert.Equal(t, "x", cur)

	fn := NextFunc(func(current string, stack []string) (string, []string) {
		return current + "!", append(stack, current)
	})
	cur, stack = apply(fn, "q", nil)
	assert.Equal(t, "q!", cur)
	assert.Equal(t, []string{"q"}, stack)
}
