package document

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/textmodel/internal/event"
)

// Document is a line-oriented text buffer. Lines are stored without
// terminators and there is always at least one line.
//
// Every mutation is expressed as one or more Deltas which are delivered
// synchronously to OnChange subscribers before the mutating method returns.
// A Document is not safe for concurrent use and subscribers must not mutate
// the document they are being notified about.
type Document struct {
	lines       []string
	newLineMode NewLineMode
	autoNewLine string

	changes event.Signal[Delta]
}

// New creates a document holding text.
func New(text string, opts ...Option) *Document {
	d := newEmpty(opts...)
	if text != "" {
		d.detectNewLine(text)
		d.lines = splitLines(text)
	}
	return d
}

// NewFromLines creates a document from lines that carry no terminators.
func NewFromLines(lines []string, opts ...Option) *Document {
	d := newEmpty(opts...)
	if len(lines) > 0 {
		d.lines = make([]string, len(lines))
		copy(d.lines, lines)
	}
	return d
}

func newEmpty(opts ...Option) *Document {
	d := &Document{
		lines:       []string{""},
		newLineMode: NewLineAuto,
		autoNewLine: "\n",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnChange subscribes h to every delta this document emits.
func (d *Document) OnChange(h func(Delta)) event.Subscription {
	return d.changes.Subscribe(h)
}

func (d *Document) emit(delta Delta) {
	d.changes.Emit(delta)
}

// Newline handling

func (d *Document) detectNewLine(text string) {
	if nl := detectNewLine(text); nl != "" {
		d.autoNewLine = nl
	}
}

// NewLineCharacter returns the terminator used to join lines.
func (d *Document) NewLineCharacter() string {
	switch d.newLineMode {
	case NewLineWindows:
		return "\r\n"
	case NewLineUnix:
		return "\n"
	default:
		return d.autoNewLine
	}
}

// NewLineMode returns the document's newline mode.
func (d *Document) NewLineMode() NewLineMode {
	return d.newLineMode
}

// SetNewLineMode changes the newline mode. Existing lines are unaffected.
func (d *Document) SetNewLineMode(m NewLineMode) {
	d.newLineMode = m
}

// IsNewLine reports whether s is a line terminator.
func (d *Document) IsNewLine(s string) bool {
	return s == "\r\n" || s == "\r" || s == "\n"
}

// Read Operations

// Length returns the number of lines.
func (d *Document) Length() int {
	return len(d.lines)
}

// Line returns the text of row, or "" if row is out of range.
func (d *Document) Line(row int) string {
	if row < 0 || row >= len(d.lines) {
		return ""
	}
	return d.lines[row]
}

// Lines returns a copy of rows first through last inclusive, clipped to the document.
func (d *Document) Lines(first, last int) []string {
	if first < 0 {
		first = 0
	}
	if last >= len(d.lines) {
		last = len(d.lines) - 1
	}
	if first > last {
		return []string{}
	}
	out := make([]string, last-first+1)
	copy(out, d.lines[first:last+1])
	return out
}

// AllLines returns a copy of every line.
func (d *Document) AllLines() []string {
	return d.Lines(0, len(d.lines)-1)
}

// Value returns the full text joined with the newline character.
func (d *Document) Value() string {
	return strings.Join(d.lines, d.NewLineCharacter())
}

// TextRange returns the text covered by r.
func (d *Document) TextRange(r Range) string {
	start := d.ClipPosition(r.Start)
	end := d.ClipPosition(r.End)
	if end.Before(start) {
		start, end = end, start
	}
	if start.Row == end.Row {
		return d.lines[start.Row][start.Column:end.Column]
	}
	lines := d.Lines(start.Row, end.Row)
	lines[0] = lines[0][start.Column:]
	last := len(lines) - 1
	lines[last] = lines[last][:end.Column]
	return strings.Join(lines, d.NewLineCharacter())
}

// ClipPosition clamps p to the document: rows past the end map to the end
// of the last line, negative rows to row 0, and columns into the row.
// Columns that fall inside a UTF-8 sequence move back to its first byte.
func (d *Document) ClipPosition(p Position) Position {
	n := len(d.lines)
	if p.Row >= n {
		last := n - 1
		return Position{Row: last, Column: len(d.lines[last])}
	}
	if p.Row < 0 {
		p.Row = 0
	}
	line := d.lines[p.Row]
	if p.Column < 0 {
		p.Column = 0
	}
	if p.Column > len(line) {
		p.Column = len(line)
	}
	for p.Column > 0 && p.Column < len(line) && !utf8.RuneStart(line[p.Column]) {
		p.Column--
	}
	return p
}

// Write Operations

// Insert inserts text at pos and returns the end of the inserted text.
// Any newline convention in text starts a new row.
func (d *Document) Insert(pos Position, text string) Position {
	if text == "" {
		return pos
	}
	pos = d.ClipPosition(pos)
	if len(d.lines) <= 1 {
		d.detectNewLine(text)
	}

	lines := splitLines(text)
	first := lines[0]
	pos = d.InsertInLine(pos, first)
	if len(lines) == 1 {
		return pos
	}

	last := lines[len(lines)-1]
	middle := lines[1 : len(lines)-1]
	pos = d.InsertNewLine(pos)
	if len(middle) > 0 {
		pos = d.insertLines(pos.Row, middle)
	}
	return d.InsertInLine(pos, last)
}

// InsertLines inserts whole lines before row and returns the position
// following them. A row at or past the end appends after the last line.
func (d *Document) InsertLines(row int, lines []string) Position {
	if len(lines) == 0 {
		return Position{Row: row, Column: 0}
	}
	if row < 0 {
		row = 0
	}
	if row >= len(d.lines) {
		end := Position{Row: len(d.lines) - 1, Column: len(d.lines[len(d.lines)-1])}
		return d.Insert(end, "\n"+strings.Join(lines, "\n"))
	}
	return d.insertLines(row, lines)
}

func (d *Document) insertLines(row int, lines []string) Position {
	inserted := make([]string, len(lines))
	copy(inserted, lines)

	grown := make([]string, 0, len(d.lines)+len(inserted))
	grown = append(grown, d.lines[:row]...)
	grown = append(grown, inserted...)
	grown = append(grown, d.lines[row:]...)
	d.lines = grown

	end := Position{Row: row + len(inserted), Column: 0}
	d.emit(Delta{
		Action: InsertLines,
		Range:  Range{Start: Position{Row: row, Column: 0}, End: end},
		Lines:  inserted,
	})
	return end
}

// InsertNewLine splits the row at pos and returns the start of the new row.
func (d *Document) InsertNewLine(pos Position) Position {
	pos = d.ClipPosition(pos)
	line := d.lines[pos.Row]

	d.lines[pos.Row] = line[:pos.Column]
	d.lines = append(d.lines, "")
	copy(d.lines[pos.Row+2:], d.lines[pos.Row+1:])
	d.lines[pos.Row+1] = line[pos.Column:]

	end := Position{Row: pos.Row + 1, Column: 0}
	d.emit(Delta{
		Action: InsertText,
		Range:  Range{Start: pos, End: end},
		Text:   "\n",
	})
	return end
}

// InsertInLine inserts text that contains no terminators at pos.
func (d *Document) InsertInLine(pos Position, text string) Position {
	if text == "" {
		return pos
	}
	pos = d.ClipPosition(pos)
	line := d.lines[pos.Row]
	d.lines[pos.Row] = line[:pos.Column] + text + line[pos.Column:]

	end := Position{Row: pos.Row, Column: pos.Column + len(text)}
	d.emit(Delta{
		Action: InsertText,
		Range:  Range{Start: pos, End: end},
		Text:   text,
	})
	return end
}

// Remove deletes the text in r and returns the collapsed start position.
// An empty range is a no-op.
func (d *Document) Remove(r Range) Position {
	start := d.ClipPosition(r.Start)
	end := d.ClipPosition(r.End)
	if end.Before(start) {
		start, end = end, start
	}
	if start == end {
		return start
	}

	firstRow, lastRow := start.Row, end.Row
	if firstRow == lastRow {
		d.RemoveInLine(firstRow, start.Column, end.Column)
		return start
	}

	firstFullRow := firstRow + 1
	if start.Column == 0 {
		firstFullRow = firstRow
	}
	lastFullRow := lastRow - 1

	if end.Column > 0 {
		d.RemoveInLine(lastRow, 0, end.Column)
	}
	if lastFullRow >= firstFullRow {
		d.removeLines(firstFullRow, lastFullRow)
	}
	if firstFullRow != firstRow {
		d.RemoveInLine(firstRow, start.Column, len(d.lines[firstRow]))
		d.RemoveNewLine(firstRow)
	}
	return start
}

// RemoveInLine deletes columns [startColumn, endColumn) of row.
func (d *Document) RemoveInLine(row, startColumn, endColumn int) Position {
	start := d.ClipPosition(Position{Row: row, Column: startColumn})
	end := d.ClipPosition(Position{Row: row, Column: endColumn})
	if end.Row != start.Row {
		end = Position{Row: start.Row, Column: len(d.lines[start.Row])}
	}
	if end.Column <= start.Column {
		return start
	}

	line := d.lines[start.Row]
	removed := line[start.Column:end.Column]
	d.lines[start.Row] = line[:start.Column] + line[end.Column:]

	d.emit(Delta{
		Action: RemoveText,
		Range:  Range{Start: start, End: end},
		Text:   removed,
	})
	return start
}

// RemoveNewLine joins row with the row that follows it.
// It is a no-op on the last row.
func (d *Document) RemoveNewLine(row int) {
	if row < 0 || row >= len(d.lines)-1 {
		return
	}
	first := d.lines[row]
	second := d.lines[row+1]
	d.lines[row] = first + second
	d.lines = append(d.lines[:row+1], d.lines[row+2:]...)

	d.emit(Delta{
		Action: RemoveText,
		Range: Range{
			Start: Position{Row: row, Column: len(first)},
			End:   Position{Row: row + 1, Column: 0},
		},
		Text: "\n",
	})
}

// RemoveLines deletes rows firstRow through lastRow inclusive and returns
// them. Rows outside the document produce a *RangeError. Removing the last
// rows also removes the newline before them; removing every row leaves one
// empty line.
func (d *Document) RemoveLines(firstRow, lastRow int) ([]string, error) {
	if firstRow < 0 || lastRow >= len(d.lines) || lastRow < firstRow {
		return nil, &RangeError{Op: "removeLines", FirstRow: firstRow, LastRow: lastRow, Length: len(d.lines)}
	}
	if lastRow < len(d.lines)-1 {
		return d.removeLines(firstRow, lastRow), nil
	}

	// Trailing rows have no row after them to keep, so the newline before
	// them goes instead.
	removed := d.Lines(firstRow, lastRow)
	start := Position{}
	if firstRow > 0 {
		start = Position{Row: firstRow - 1, Column: len(d.lines[firstRow-1])}
	}
	d.Remove(Range{Start: start, End: Position{Row: lastRow, Column: len(d.lines[lastRow])}})
	return removed, nil
}

func (d *Document) removeLines(firstRow, lastRow int) []string {
	removed := make([]string, lastRow-firstRow+1)
	copy(removed, d.lines[firstRow:lastRow+1])
	d.lines = append(d.lines[:firstRow], d.lines[lastRow+1:]...)

	d.emit(Delta{
		Action: RemoveLines,
		Range: Range{
			Start: Position{Row: firstRow, Column: 0},
			End:   Position{Row: lastRow + 1, Column: 0},
		},
		Lines: removed,
	})
	return removed
}

// Replace substitutes text for the contents of r and returns the end of the
// new text. Nothing is emitted when text already equals the range contents.
func (d *Document) Replace(r Range, text string) Position {
	r = Range{Start: d.ClipPosition(r.Start), End: d.ClipPosition(r.End)}
	if r.End.Before(r.Start) {
		r.Start, r.End = r.End, r.Start
	}
	if text == "" && r.IsEmpty() {
		return r.Start
	}
	if text == d.TextRange(r) {
		return r.End
	}

	start := d.Remove(r)
	if text == "" {
		return start
	}
	return d.Insert(start, text)
}

// SetValue replaces the whole content with text.
func (d *Document) SetValue(text string) {
	last := len(d.lines) - 1
	d.Remove(Range{End: Position{Row: last, Column: len(d.lines[last])}})
	d.Insert(Position{}, text)
}

// Delta replay

// ApplyDeltas replays deltas in order.
func (d *Document) ApplyDeltas(deltas []Delta) error {
	for _, delta := range deltas {
		if err := d.applyDelta(delta); err != nil {
			return err
		}
	}
	return nil
}

// RevertDeltas undoes deltas, walking them in reverse and applying each
// action's inverse.
func (d *Document) RevertDeltas(deltas []Delta) error {
	for i := len(deltas) - 1; i >= 0; i-- {
		if err := d.applyDelta(deltas[i].Invert()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) applyDelta(delta Delta) error {
	r := delta.Range
	switch delta.Action {
	case InsertLines:
		d.InsertLines(r.Start.Row, delta.Lines)
	case InsertText:
		d.Insert(r.Start, delta.Text)
	case RemoveLines:
		if _, err := d.RemoveLines(r.Start.Row, r.End.Row-1); err != nil {
			return err
		}
	case RemoveText:
		d.Remove(r)
	default:
		return ErrUnknownAction
	}
	return nil
}

// Coordinate Conversion

// IndexToPosition converts a flat character offset, counted from startRow,
// into a position. Each row contributes its length plus the newline length.
func (d *Document) IndexToPosition(index, startRow int) Position {
	nl := len(d.NewLineCharacter())
	if startRow < 0 {
		startRow = 0
	}
	for i := startRow; i < len(d.lines); i++ {
		index -= len(d.lines[i]) + nl
		if index < 0 {
			return Position{Row: i, Column: index + len(d.lines[i]) + nl}
		}
	}
	last := len(d.lines) - 1
	return Position{Row: last, Column: len(d.lines[last])}
}

// PositionToIndex converts a position into a flat offset counted from startRow.
func (d *Document) PositionToIndex(pos Position, startRow int) int {
	nl := len(d.NewLineCharacter())
	if startRow < 0 {
		startRow = 0
	}
	index := 0
	row := pos.Row
	if row > len(d.lines) {
		row = len(d.lines)
	}
	for i := startRow; i < row; i++ {
		index += len(d.lines[i]) + nl
	}
	return index + pos.Column
}

// CreateAnchor returns an anchor attached to this document at (row, column).
func (d *Document) CreateAnchor(row, column int) *Anchor {
	return NewAnchor(d, row, column)
}
