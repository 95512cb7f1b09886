package document

import "github.com/dshills/textmodel/internal/event"

// AnchorChange is emitted when an anchor moves.
type AnchorChange struct {
	Old Position
	New Position
}

// Anchor is a position that follows the text around it as the document is
// edited. It tracks its document through an OnChange subscription; once
// detached it keeps its last position and stops moving.
type Anchor struct {
	row    int
	column int

	// insertRight moves the anchor past text inserted exactly at its position.
	insertRight bool

	doc *Document
	sub event.Subscription

	changes event.Signal[AnchorChange]
}

// NewAnchor creates an anchor attached to doc at the clipped (row, column).
func NewAnchor(doc *Document, row, column int) *Anchor {
	a := &Anchor{}
	a.Attach(doc)
	a.SetPosition(row, column, false)
	return a
}

// Position returns the anchor's current position.
func (a *Anchor) Position() Position {
	return Position{Row: a.row, Column: a.column}
}

// Document returns the document the anchor is attached to, or nil.
func (a *Anchor) Document() *Document {
	return a.doc
}

// InsertRight reports whether insertions at the anchor push it right.
func (a *Anchor) InsertRight() bool {
	return a.insertRight
}

// SetInsertRight sets the tie-break for insertions exactly at the anchor.
func (a *Anchor) SetInsertRight(v bool) {
	a.insertRight = v
}

// OnChange subscribes h to anchor movements.
func (a *Anchor) OnChange(h func(AnchorChange)) event.Subscription {
	return a.changes.Subscribe(h)
}

// SetPosition moves the anchor. Unless noClip is set the position is first
// clipped to the document. Nothing is emitted if the position is unchanged.
func (a *Anchor) SetPosition(row, column int, noClip bool) {
	pos := Position{Row: row, Column: column}
	if !noClip && a.doc != nil {
		pos = a.clip(row, column)
	}
	if pos.Row == a.row && pos.Column == a.column {
		return
	}
	old := a.Position()
	a.row, a.column = pos.Row, pos.Column
	a.changes.Emit(AnchorChange{Old: old, New: pos})
}

func (a *Anchor) clip(row, column int) Position {
	n := a.doc.Length()
	switch {
	case row >= n:
		last := n - 1
		return Position{Row: last, Column: len(a.doc.Line(last))}
	case row < 0:
		return Position{}
	}
	if column < 0 {
		column = 0
	}
	if l := len(a.doc.Line(row)); column > l {
		column = l
	}
	return Position{Row: row, Column: column}
}

// Attach subscribes the anchor to doc, detaching it from any previous document.
func (a *Anchor) Attach(doc *Document) {
	if a.doc == doc && a.sub != nil {
		return
	}
	a.Detach()
	a.doc = doc
	if doc != nil {
		a.sub = doc.OnChange(a.onChange)
	}
}

// Detach stops tracking the document. The anchor keeps its position.
func (a *Anchor) Detach() {
	if a.sub != nil {
		a.sub.Cancel()
		a.sub = nil
	}
}

// IsAttached reports whether the anchor is tracking a document.
func (a *Anchor) IsAttached() bool {
	return a.sub != nil
}

func (a *Anchor) onChange(delta Delta) {
	start, end := delta.Range.Start, delta.Range.End
	row, column := a.row, a.column

	// Edits entirely after the anchor never move it.
	if start.Row > row || (start.Row == row && start.Column > column) {
		return
	}
	if start.Row == end.Row && start.Row != row {
		return
	}

	switch delta.Action {
	case InsertText, InsertLines:
		if start.Row == row && start.Column == column && !a.insertRight {
			return
		}
		if start.Row == row {
			column = end.Column + (column - start.Column)
		}
		row += end.Row - start.Row

	case RemoveText, RemoveLines:
		pos := Position{Row: row, Column: column}
		switch {
		case pos.Compare(start) == 0:
			return
		case pos.Before(end):
			// The anchor sat inside the removed span.
			row, column = start.Row, start.Column
		default:
			if row == end.Row {
				column = max(0, column-end.Column) + start.Column
			}
			row -= end.Row - start.Row
		}
	}

	a.SetPosition(row, column, true)
}
