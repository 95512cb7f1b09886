package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects every delta a document emits.
type recorder struct {
	deltas []Delta
}

func record(d *Document) *recorder {
	r := &recorder{}
	d.OnChange(func(delta Delta) { r.deltas = append(r.deltas, delta) })
	return r
}

func TestNewDocument(t *testing.T) {
	d := New("")
	assert.Equal(t, 1, d.Length())
	assert.Equal(t, "", d.Line(0))

	d = New("line1\nline2\r\nline3\rline4")
	assert.Equal(t, []string{"line1", "line2", "line3", "line4"}, d.AllLines())
	assert.Equal(t, "\n", d.NewLineCharacter())

	d = NewFromLines(nil)
	assert.Equal(t, 1, d.Length())
}

func TestNewLineModes(t *testing.T) {
	d := New("a\r\nb")
	assert.Equal(t, "\r\n", d.NewLineCharacter())
	assert.Equal(t, "a\r\nb", d.Value())

	d.SetNewLineMode(NewLineUnix)
	assert.Equal(t, "a\nb", d.Value())

	d = New("a\nb", WithNewLineMode(NewLineWindows))
	assert.Equal(t, "a\r\nb", d.Value())

	mode, ok := ParseNewLineMode("windows")
	require.True(t, ok)
	assert.Equal(t, NewLineWindows, mode)
	_, ok = ParseNewLineMode("mac")
	assert.False(t, ok)
}

func TestReadsOutOfRange(t *testing.T) {
	d := New("abc\ndef")
	assert.Equal(t, "", d.Line(-1))
	assert.Equal(t, "", d.Line(5))
	assert.Equal(t, []string{"def"}, d.Lines(1, 10))
	assert.Equal(t, []string{}, d.Lines(3, 4))
	assert.Equal(t, "c\nd", d.TextRange(NewRange(0, 2, 1, 1)))
	assert.Equal(t, "bc", d.TextRange(NewRange(0, 1, 0, 99)))
}

func TestClipPosition(t *testing.T) {
	d := New("abc\nhé")

	tests := []struct {
		name string
		in   Position
		want Position
	}{
		{"inside", Pos(0, 1), Pos(0, 1)},
		{"past last row", Pos(9, 0), Pos(1, 3)},
		{"negative row", Pos(-1, 2), Pos(0, 2)},
		{"negative column", Pos(1, -4), Pos(1, 0)},
		{"past line end", Pos(0, 10), Pos(0, 3)},
		{"inside rune", Pos(1, 2), Pos(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ClipPosition(tt.in))
		})
	}
}

func TestInsertSingleLine(t *testing.T) {
	d := New("Hello World")
	rec := record(d)

	end := d.Insert(Pos(0, 5), ",")
	assert.Equal(t, Pos(0, 6), end)
	assert.Equal(t, "Hello, World", d.Value())
	require.Len(t, rec.deltas, 1)
	assert.Equal(t, Delta{Action: InsertText, Range: NewRange(0, 5, 0, 6), Text: ","}, rec.deltas[0])
}

func TestInsertNewlineAndText(t *testing.T) {
	d := New("abc\ndef")
	rec := record(d)

	end := d.Insert(Pos(0, 3), "\nXYZ")

	assert.Equal(t, []string{"abc", "XYZ", "def"}, d.AllLines())
	assert.Equal(t, Pos(1, 3), end)
	require.Len(t, rec.deltas, 2)
	assert.Equal(t, Delta{Action: InsertText, Range: NewRange(0, 3, 1, 0), Text: "\n"}, rec.deltas[0])
	assert.Equal(t, Delta{Action: InsertText, Range: NewRange(1, 0, 1, 3), Text: "XYZ"}, rec.deltas[1])
}

func TestInsertMultiLine(t *testing.T) {
	d := New("startend")
	rec := record(d)

	end := d.Insert(Pos(0, 5), "A\nB\nC\nD")

	assert.Equal(t, []string{"startA", "B", "C", "Dend"}, d.AllLines())
	assert.Equal(t, Pos(3, 1), end)

	actions := make([]Action, len(rec.deltas))
	for i, delta := range rec.deltas {
		actions[i] = delta.Action
	}
	assert.Equal(t, []Action{InsertText, InsertText, InsertLines, InsertText}, actions)
	assert.Equal(t, []string{"B", "C"}, rec.deltas[2].Lines)
	assert.Equal(t, NewRange(1, 0, 3, 0), rec.deltas[2].Range)
}

func TestInsertClipsPosition(t *testing.T) {
	d := New("ab")
	end := d.Insert(Pos(5, 5), "c")
	assert.Equal(t, "abc", d.Value())
	assert.Equal(t, Pos(0, 3), end)
}

func TestInsertEmptyIsNoop(t *testing.T) {
	d := New("abc")
	rec := record(d)

	assert.Equal(t, Pos(0, 1), d.Insert(Pos(0, 1), ""))
	assert.Empty(t, rec.deltas)
	assert.Equal(t, "abc", d.Value())
}

func TestInsertLines(t *testing.T) {
	d := New("a\nd")
	end := d.InsertLines(1, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, d.AllLines())
	assert.Equal(t, Pos(3, 0), end)

	d.InsertLines(99, []string{"e"})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, d.AllLines())
}

func TestRemoveSingleLine(t *testing.T) {
	d := New("Hello, World!")
	rec := record(d)

	start := d.Remove(NewRange(0, 5, 0, 7))
	assert.Equal(t, Pos(0, 5), start)
	assert.Equal(t, "HelloWorld!", d.Value())
	require.Len(t, rec.deltas, 1)
	assert.Equal(t, ", ", rec.deltas[0].Text)
}

func TestRemoveMultiLine(t *testing.T) {
	d := New("line1\nline2\nline3\nline4")
	rec := record(d)

	start := d.Remove(NewRange(0, 2, 3, 3))

	assert.Equal(t, Pos(0, 2), start)
	assert.Equal(t, []string{"lie4"}, d.AllLines())

	actions := make([]Action, len(rec.deltas))
	for i, delta := range rec.deltas {
		actions[i] = delta.Action
	}
	// trim end, drop interior rows, trim start, merge.
	assert.Equal(t, []Action{RemoveText, RemoveLines, RemoveText, RemoveText}, actions)
	assert.Equal(t, []string{"line2", "line3"}, rec.deltas[1].Lines)
	assert.Equal(t, "\n", rec.deltas[3].Text)
}

func TestRemoveFromColumnZero(t *testing.T) {
	d := New("a\nb\nc")
	d.Remove(NewRange(0, 0, 2, 0))
	assert.Equal(t, []string{"c"}, d.AllLines())
}

func TestRemoveEmptyRangeIsNoop(t *testing.T) {
	d := New("abc\ndef")
	rec := record(d)

	assert.Equal(t, Pos(1, 1), d.Remove(NewRange(1, 1, 1, 1)))
	assert.Empty(t, rec.deltas)
	assert.Equal(t, "abc\ndef", d.Value())
}

func TestRemoveReversedRange(t *testing.T) {
	d := New("abcdef")
	d.Remove(NewRange(0, 4, 0, 1))
	assert.Equal(t, "aef", d.Value())
}

func TestRemoveLines(t *testing.T) {
	d := New("a\nb\nc\nd")
	removed, err := d.RemoveLines(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, removed)
	assert.Equal(t, []string{"a", "d"}, d.AllLines())
}

func TestRemoveLinesOutOfRange(t *testing.T) {
	d := New("a\nb")
	rec := record(d)

	for _, rows := range [][2]int{{-1, 0}, {0, 2}, {1, 0}} {
		_, err := d.RemoveLines(rows[0], rows[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOutOfRange))

		var rangeErr *RangeError
		require.True(t, errors.As(err, &rangeErr))
		assert.Equal(t, 2, rangeErr.Length)
	}
	assert.Empty(t, rec.deltas)
	assert.Equal(t, []string{"a", "b"}, d.AllLines())
}

func TestRemoveTrailingLines(t *testing.T) {
	d := New("a\nb\nc")
	a := d.CreateAnchor(2, 1)
	rec := record(d)

	removed, err := d.RemoveLines(1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, removed)
	assert.Equal(t, []string{"a"}, d.AllLines())
	assert.Equal(t, Pos(0, 1), a.Position(), "anchor stays inside the document")

	require.NoError(t, d.RevertDeltas(rec.deltas))
	assert.Equal(t, "a\nb\nc", d.Value())
}

func TestRemoveAllLinesKeepsOneLine(t *testing.T) {
	d := New("a\nb\nc")
	removed, err := d.RemoveLines(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, removed)
	assert.Equal(t, []string{""}, d.AllLines())
}

func TestReplace(t *testing.T) {
	d := New("Hello World")
	end := d.Replace(NewRange(0, 6, 0, 11), "Go")
	assert.Equal(t, "Hello Go", d.Value())
	assert.Equal(t, Pos(0, 8), end)

	end = d.Replace(NewRange(0, 0, 0, 5), "Bye\nNow")
	assert.Equal(t, []string{"Bye", "Now Go"}, d.AllLines())
	assert.Equal(t, Pos(1, 3), end)
}

func TestReplaceNoops(t *testing.T) {
	d := New("abc")
	rec := record(d)

	assert.Equal(t, Pos(0, 1), d.Replace(NewRange(0, 1, 0, 1), ""))
	assert.Equal(t, Pos(0, 2), d.Replace(NewRange(0, 1, 0, 2), "b"))
	assert.Empty(t, rec.deltas)

	assert.Equal(t, Pos(0, 1), d.Replace(NewRange(0, 1, 0, 2), ""))
	assert.Equal(t, "ac", d.Value())
}

func TestSetValue(t *testing.T) {
	d := New("old\ncontent")
	d.SetValue("new")
	assert.Equal(t, []string{"new"}, d.AllLines())
}

func TestApplyAndRevertDeltas(t *testing.T) {
	d := New("one\ntwo\nthree")
	original := d.Value()
	rec := record(d)

	d.Insert(Pos(1, 1), "XX\nYY\nZZ")
	d.Remove(NewRange(0, 1, 2, 1))
	d.Replace(NewRange(0, 0, 0, 2), "q")
	d.InsertLines(1, []string{"l1", "l2"})
	_, err := d.RemoveLines(0, 1)
	require.NoError(t, err)
	edited := d.Value()

	deltas := append([]Delta(nil), rec.deltas...)
	require.NoError(t, d.RevertDeltas(deltas))
	assert.Equal(t, original, d.Value())

	require.NoError(t, d.ApplyDeltas(deltas))
	assert.Equal(t, edited, d.Value())
}

func TestApplyDeltasUnknownAction(t *testing.T) {
	d := New("x")
	err := d.ApplyDeltas([]Delta{{Action: Action(42)}})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestIndexPositionConversion(t *testing.T) {
	d := New("ab\ncde\n\nf")

	tests := []struct {
		index int
		pos   Position
	}{
		{0, Pos(0, 0)},
		{2, Pos(0, 2)},
		{3, Pos(1, 0)},
		{6, Pos(1, 3)},
		{7, Pos(2, 0)},
		{8, Pos(3, 0)},
		{9, Pos(3, 1)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.pos, d.IndexToPosition(tt.index, 0), "index %d", tt.index)
		assert.Equal(t, tt.index, d.PositionToIndex(tt.pos, 0), "pos %v", tt.pos)
	}

	// Past the end clamps to the final position.
	assert.Equal(t, Pos(3, 1), d.IndexToPosition(100, 0))
}

func TestIndexConversionWindowsNewlines(t *testing.T) {
	d := New("ab\r\ncd")
	assert.Equal(t, Pos(1, 0), d.IndexToPosition(4, 0))
	assert.Equal(t, 5, d.PositionToIndex(Pos(1, 1), 0))
	assert.Equal(t, 1, d.PositionToIndex(Pos(1, 1), 1))
}

func TestMerge(t *testing.T) {
	d := New("keep1\nold\nkeep2\nkeep3")
	anchor := d.CreateAnchor(3, 2)
	rec := record(d)

	require.NoError(t, d.Merge("keep1\nnew-a\nnew-b\nkeep2\nkeep3"))

	assert.Equal(t, []string{"keep1", "new-a", "new-b", "keep2", "keep3"}, d.AllLines())
	assert.Equal(t, Pos(4, 2), anchor.Position())
	for _, delta := range rec.deltas {
		assert.Contains(t, []Action{InsertLines, RemoveLines}, delta.Action)
	}
}

func TestMergeReplacesEverything(t *testing.T) {
	d := New("x")
	require.NoError(t, d.Merge("y\nz"))
	assert.Equal(t, []string{"y", "z"}, d.AllLines())

	require.NoError(t, d.Merge(""))
	assert.Equal(t, []string{""}, d.AllLines())
}

func TestDeltaInvert(t *testing.T) {
	delta := Delta{Action: InsertLines, Range: NewRange(1, 0, 3, 0), Lines: []string{"a", "b"}}
	inv := delta.Invert()
	assert.Equal(t, RemoveLines, inv.Action)
	assert.Equal(t, delta.Range, inv.Range)
	assert.Equal(t, delta, inv.Invert())
	assert.True(t, delta.IsInsert())
	assert.True(t, inv.IsRemove())
}

func TestRangeHelpers(t *testing.T) {
	r := NewRange(1, 2, 3, 4)
	assert.True(t, r.IsMultiLine())
	assert.Equal(t, -1, r.Compare(Pos(1, 1)))
	assert.Equal(t, 0, r.Compare(Pos(1, 2)))
	assert.Equal(t, 0, r.Compare(Pos(3, 4)))
	assert.Equal(t, 1, r.Compare(Pos(3, 5)))
	assert.True(t, r.ContainsRange(NewRange(2, 0, 3, 0)))
	assert.False(t, r.ContainsRange(NewRange(0, 0, 2, 0)))
	assert.False(t, r.Intersects(NewRange(3, 4, 5, 0)))
	assert.True(t, r.Intersects(NewRange(3, 3, 5, 0)))
	assert.Equal(t, NewRange(0, 1, 0, 5), RangeFromPoints(Pos(0, 5), Pos(0, 1)))
}
