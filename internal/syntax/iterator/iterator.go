// Package iterator walks the tokens of a document across rows.
package iterator

import (
	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// Source supplies the tokens of each row.
type Source interface {
	Tokens(row int) []tokenizer.Token
	Length() int
}

// TokenInfo locates a token within its row.
type TokenInfo struct {
	Token tokenizer.Token
	Index int
	Start int
}

// TokenAt returns the token covering column on row. A column on the
// boundary between two tokens belongs to the token ending there.
func TokenAt(src Source, row, column int) (TokenInfo, bool) {
	tokens := src.Tokens(row)
	c := 0
	for i, t := range tokens {
		c += len(t.Value)
		if c >= column {
			return TokenInfo{Token: t, Index: i, Start: c - len(t.Value)}, true
		}
	}
	return TokenInfo{}, false
}

// Iterator is a bidirectional cursor over tokens.
type Iterator struct {
	src    Source
	row    int
	tokens []tokenizer.Token
	starts []int
	index  int
}

// New creates an iterator positioned on the token at (row, column). If no
// token covers the column the iterator sits before the row's first token.
func New(src Source, row, column int) *Iterator {
	it := &Iterator{src: src, row: row, index: -1}
	it.load(row)
	if info, ok := TokenAt(src, row, column); ok {
		it.index = info.Index
	}
	return it
}

// load fetches a row's tokens and their start columns.
func (it *Iterator) load(row int) {
	it.tokens = it.src.Tokens(row)
	it.starts = it.starts[:0]
	c := 0
	for _, t := range it.tokens {
		it.starts = append(it.starts, c)
		c += len(t.Value)
	}
}

// StepForward moves to the next token, crossing rows as needed. It returns
// false once the last row is exhausted.
func (it *Iterator) StepForward() (tokenizer.Token, bool) {
	it.index++
	rows := -1
	for it.index >= len(it.tokens) {
		it.row++
		if rows < 0 {
			rows = it.src.Length()
		}
		if it.row >= rows {
			it.row = rows - 1
			return tokenizer.Token{}, false
		}
		it.load(it.row)
		it.index = 0
	}
	return it.tokens[it.index], true
}

// StepBackward moves to the previous token, crossing rows as needed. It
// returns false once the first row is exhausted.
func (it *Iterator) StepBackward() (tokenizer.Token, bool) {
	it.index--
	for it.index < 0 {
		it.row--
		if it.row < 0 {
			it.row = 0
			return tokenizer.Token{}, false
		}
		it.load(it.row)
		it.index = len(it.tokens) - 1
	}
	return it.tokens[it.index], true
}

// CurrentToken returns the token under the cursor.
func (it *Iterator) CurrentToken() (tokenizer.Token, bool) {
	if it.index < 0 || it.index >= len(it.tokens) {
		return tokenizer.Token{}, false
	}
	return it.tokens[it.index], true
}

// CurrentTokenRow returns the cursor's row.
func (it *Iterator) CurrentTokenRow() int {
	return it.row
}

// CurrentTokenColumn returns the start column of the current token.
func (it *Iterator) CurrentTokenColumn() int {
	if it.index < 0 || it.index >= len(it.starts) {
		return 0
	}
	return it.starts[it.index]
}

// CurrentTokenPosition returns the start of the current token.
func (it *Iterator) CurrentTokenPosition() document.Position {
	return document.Position{Row: it.row, Column: it.CurrentTokenColumn()}
}

// CurrentTokenRange returns the span of the current token.
func (it *Iterator) CurrentTokenRange() document.Range {
	tok, _ := it.CurrentToken()
	start := it.CurrentTokenPosition()
	return document.Range{Start: start, End: document.Position{Row: it.row, Column: start.Column + len(tok.Value)}}
}
