package fold

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/textmodel/internal/engine/document"
)

// Fold errors.
var (
	// ErrNotContained is returned when a sub-fold does not lie inside its parent.
	ErrNotContained = errors.New("fold not contained by parent")
	// ErrFoldIntersects is returned when a fold partially overlaps another.
	ErrFoldIntersects = errors.New("fold intersects an existing fold")
	// ErrEmptyFold is returned when a fold would cover no text.
	ErrEmptyFold = errors.New("fold range is empty")
	// ErrNoConnection is returned when a fold does not chain onto a fold line.
	ErrNoConnection = errors.New("fold has no connection to fold line")
)

// ToRelative expresses r relative to origin. Rows become offsets from
// origin's row; columns on origin's row become offsets from its column.
func ToRelative(r document.Range, origin document.Position) document.Range {
	return document.Range{Start: relative(r.Start, origin), End: relative(r.End, origin)}
}

// ToAbsolute reverses ToRelative.
func ToAbsolute(r document.Range, origin document.Position) document.Range {
	return document.Range{Start: absolute(r.Start, origin), End: absolute(r.End, origin)}
}

func relative(p, origin document.Position) document.Position {
	if p.Row == origin.Row {
		p.Column -= origin.Column
	}
	p.Row -= origin.Row
	return p
}

func absolute(p, origin document.Position) document.Position {
	if p.Row == 0 {
		p.Column += origin.Column
	}
	p.Row += origin.Row
	return p
}

// Fold is a collapsible range. A top-level fold's Range is in document
// coordinates; a sub-fold's Range is relative to its parent's start.
type Fold struct {
	Range       document.Range
	Placeholder string
	SubFolds    []*Fold
	// CollapseChildren is the depth to which sub-folds collapse along
	// with this fold.
	CollapseChildren int

	foldLine *FoldLine
}

// New creates a detached fold.
func New(r document.Range, placeholder string) *Fold {
	return &Fold{Range: r, Placeholder: placeholder}
}

// Start returns the start of the fold's range.
func (f *Fold) Start() document.Position { return f.Range.Start }

// End returns the end of the fold's range.
func (f *Fold) End() document.Position { return f.Range.End }

// SameRow reports whether the fold starts and ends on one row.
func (f *Fold) SameRow() bool { return !f.Range.IsMultiLine() }

// FoldLine returns the fold line the fold belongs to, if any.
func (f *Fold) FoldLine() *FoldLine { return f.foldLine }

// SetFoldLine sets the fold line of the fold and all its sub-folds.
func (f *Fold) SetFoldLine(l *FoldLine) {
	f.foldLine = l
	for _, sub := range f.SubFolds {
		sub.SetFoldLine(l)
	}
}

// ConsumeRange converts r to coordinates relative to the fold's start.
func (f *Fold) ConsumeRange(r document.Range) document.Range {
	return ToRelative(r, f.Range.Start)
}

// RestoreRange converts r from coordinates relative to the fold's start.
func (f *Fold) RestoreRange(r document.Range) document.Range {
	return ToAbsolute(r, f.Range.Start)
}

// Clone deep-copies the fold. The copy has no fold line.
func (f *Fold) Clone() *Fold {
	c := &Fold{
		Range:            f.Range,
		Placeholder:      f.Placeholder,
		CollapseChildren: f.CollapseChildren,
	}
	if len(f.SubFolds) > 0 {
		c.SubFolds = make([]*Fold, len(f.SubFolds))
		for i, sub := range f.SubFolds {
			c.SubFolds[i] = sub.Clone()
		}
	}
	return c
}

// String returns a human-readable representation of the fold.
func (f *Fold) String() string {
	return fmt.Sprintf("%q %s", f.Placeholder, f.Range)
}

// AddSubFold nests sub inside f. sub.Range must be in the same
// coordinates as f.Range. A sub-fold equal to f is a no-op returning f.
// A sub-fold inside an existing sub-fold is nested there; existing
// sub-folds inside sub become its children. Partial overlap with an
// existing sub-fold fails and leaves f unchanged.
func (f *Fold) AddSubFold(sub *Fold) (*Fold, error) {
	if f.Range.IsEqual(sub.Range) {
		return f, nil
	}
	if !f.Range.ContainsRange(sub.Range) {
		return nil, fmt.Errorf("%w: %s outside %s", ErrNotContained, sub.Range, f.Range)
	}

	orig := sub.Range
	rel := f.ConsumeRange(sub.Range)
	var consumed []*Fold
	for _, s := range f.SubFolds {
		switch {
		case s.Range.ContainsRange(rel):
			sub.Range = rel
			added, err := s.AddSubFold(sub)
			if err != nil {
				sub.Range = orig
			}
			return added, err
		case rel.ContainsRange(s.Range):
			consumed = append(consumed, s)
		case rel.Intersects(s.Range):
			return nil, fmt.Errorf("%w: %s and %s", ErrFoldIntersects, f.RestoreRange(rel), f.RestoreRange(s.Range))
		}
	}

	if len(consumed) > 0 && len(sub.SubFolds) > 0 {
		trial := sub.Clone()
		trial.Range = rel
		for _, s := range consumed {
			if _, err := trial.AddSubFold(s.Clone()); err != nil {
				return nil, err
			}
		}
	}

	sub.Range = rel
	kept := f.SubFolds[:0:0]
	for _, s := range f.SubFolds {
		if len(consumed) > 0 && consumed[0] == s {
			consumed = consumed[1:]
			if _, err := sub.AddSubFold(s); err != nil {
				sub.Range = orig
				return nil, fmt.Errorf("nest %s: %w", s, err)
			}
			continue
		}
		kept = append(kept, s)
	}
	f.SubFolds = kept
	f.insert(sub)
	sub.SetFoldLine(f.foldLine)
	return sub, nil
}

// insert places sub among the sub-folds in start order.
func (f *Fold) insert(sub *Fold) {
	i := sort.Search(len(f.SubFolds), func(i int) bool {
		return !f.SubFolds[i].Range.Start.Before(sub.Range.Start)
	})
	f.SubFolds = append(f.SubFolds, nil)
	copy(f.SubFolds[i+1:], f.SubFolds[i:])
	f.SubFolds[i] = sub
}

// Walk calls fn for f and every nested sub-fold in document order with the
// fold's range in the coordinates of f.Range. Returning false stops the walk.
func (f *Fold) Walk(fn func(fold *Fold, r document.Range) bool) bool {
	return f.walk(f.Range, fn)
}

func (f *Fold) walk(r document.Range, fn func(*Fold, document.Range) bool) bool {
	if !fn(f, r) {
		return false
	}
	for _, sub := range f.SubFolds {
		if !sub.walk(ToAbsolute(sub.Range, r.Start), fn) {
			return false
		}
	}
	return true
}
