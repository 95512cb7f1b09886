// Package tokenizer implements a table-driven lexer.
//
// A Grammar maps state names to ordered rules. Each state's rules are
// compiled into one alternation; lexing a line repeatedly matches the active
// state's alternation, classifies the rule that fired and applies its
// transition. The state at the end of a line is returned so the next line
// can continue from it.
//
// Tokens of a line always concatenate back to the line. Lines that need more
// than MaxTokenCount matches are finished as fixed-size "overflow" tokens and
// reset the state to "start".
package tokenizer
