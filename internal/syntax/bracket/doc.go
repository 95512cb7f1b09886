// Package bracket matches brackets and markup tags using the token types
// produced by the tokenizer.
//
// Bracket matching only considers tokens whose type maps to the same
// bracket class as the token holding the starting bracket, so brackets
// inside strings and comments are skipped:
//
//	m, err := bracket.New(bg, doc, map[string]string{
//		"paren.lparen": "paren",
//		"paren.rparen": "paren",
//	})
//	pos, ok := m.FindMatchingBracket(cursor, 0)
//
// Positions passed to the Find methods sit just after the bracket, the
// way a cursor does. Returned positions are the column of the matching
// bracket itself.
package bracket
