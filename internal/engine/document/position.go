package document

import "fmt"

// Position is a row/column location in a Document.
// Both Row and Column are 0-indexed; Column is a byte offset within the row.
type Position struct {
	Row    int
	Column int
}

// Pos is shorthand for Position{Row: row, Column: column}.
func Pos(row, column int) Position {
	return Position{Row: row, Column: column}
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("(%d:%d)", p.Row, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Position) Compare(other Position) int {
	if p.Row < other.Row {
		return -1
	}
	if p.Row > other.Row {
		return 1
	}
	if p.Column < other.Column {
		return -1
	}
	if p.Column > other.Column {
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

// After returns true if p comes after other.
func (p Position) After(other Position) bool {
	return p.Compare(other) > 0
}

// IsZero returns true if this is the zero position (0:0).
func (p Position) IsZero() bool {
	return p.Row == 0 && p.Column == 0
}

// Range is an ordered pair of positions. Start is inclusive, End is exclusive.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a Range from row/column pairs.
func NewRange(startRow, startColumn, endRow, endColumn int) Range {
	return Range{
		Start: Position{Row: startRow, Column: startColumn},
		End:   Position{Row: endRow, Column: endColumn},
	}
}

// RangeFromPoints creates a Range from two positions, ordering them.
func RangeFromPoints(a, b Position) Range {
	if b.Before(a) {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%s:%s)", r.Start.String(), r.End.String())
}

// IsEmpty returns true if start equals end.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if start <= end.
func (r Range) IsValid() bool {
	return r.Start.Compare(r.End) <= 0
}

// IsMultiLine returns true if the range spans more than one row.
func (r Range) IsMultiLine() bool {
	return r.Start.Row != r.End.Row
}

// IsEqual returns true if both ranges have the same bounds.
func (r Range) IsEqual(other Range) bool {
	return r.Start == other.Start && r.End == other.End
}

// Compare locates p relative to the range, bounds inclusive:
// -1 if p is before Start, 1 if p is after End, 0 otherwise.
func (r Range) Compare(p Position) int {
	if p.Before(r.Start) {
		return -1
	}
	if p.After(r.End) {
		return 1
	}
	return 0
}

// Contains returns true if p lies within [Start, End].
func (r Range) Contains(p Position) bool {
	return r.Compare(p) == 0
}

// ContainsRange returns true if other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return r.Contains(other.Start) && r.Contains(other.End)
}

// Intersects returns true if the interiors of the two ranges overlap.
// Ranges that only touch at a boundary do not intersect.
func (r Range) Intersects(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Lines returns the number of rows the range touches.
func (r Range) Lines() int {
	return r.End.Row - r.Start.Row + 1
}
