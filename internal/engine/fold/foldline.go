package fold

import (
	"fmt"
	"sort"

	"github.com/dshills/textmodel/internal/engine/document"
)

// FoldLine is a chain of top-level folds that render on one screen row:
// each fold starts on the row the previous one ends on.
type FoldLine struct {
	folds []*Fold
	Range document.Range
}

// NewFoldLine creates a fold line from folds in any order.
func NewFoldLine(folds ...*Fold) (*FoldLine, error) {
	l := &FoldLine{}
	sorted := append([]*Fold(nil), folds...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Before(sorted[j].Range.Start)
	})
	for _, f := range sorted {
		if err := l.AddFold(f); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Folds returns the folds in order.
func (l *FoldLine) Folds() []*Fold {
	return append([]*Fold(nil), l.folds...)
}

// StartRow returns the first row the line covers.
func (l *FoldLine) StartRow() int { return l.Range.Start.Row }

// EndRow returns the last row the line covers.
func (l *FoldLine) EndRow() int { return l.Range.End.Row }

// ContainsRow reports whether row is within the line.
func (l *FoldLine) ContainsRow(row int) bool {
	return len(l.folds) > 0 && row >= l.StartRow() && row <= l.EndRow()
}

// AddFold adds f to the line. f must start on the line's last row or end
// on its first row, or lie on a single row inside the line.
func (l *FoldLine) AddFold(f *Fold) error {
	if len(l.folds) == 0 {
		l.seed(f)
		return nil
	}
	for _, o := range l.folds {
		if o.Range.Intersects(f.Range) {
			return fmt.Errorf("%w: %s and %s", ErrFoldIntersects, f.Range, o.Range)
		}
	}

	switch {
	case f.SameRow() && f.Range.Start.Row >= l.StartRow() && f.Range.End.Row <= l.EndRow():
		i := sort.Search(len(l.folds), func(i int) bool {
			return !l.folds[i].Range.Start.Before(f.Range.Start)
		})
		l.folds = append(l.folds, nil)
		copy(l.folds[i+1:], l.folds[i:])
		l.folds[i] = f
		if f.Range.End.After(l.Range.End) {
			l.Range.End = f.Range.End
		}
		if f.Range.Start.Before(l.Range.Start) {
			l.Range.Start = f.Range.Start
		}
	case f.Range.Start.Row == l.EndRow() && !f.Range.Start.Before(l.Range.End):
		l.folds = append(l.folds, f)
		l.Range.End = f.Range.End
	case f.Range.End.Row == l.StartRow() && !f.Range.End.After(l.Range.Start):
		l.folds = append([]*Fold{f}, l.folds...)
		l.Range.Start = f.Range.Start
	default:
		return fmt.Errorf("%w: %s", ErrNoConnection, f.Range)
	}
	f.SetFoldLine(l)
	return nil
}

// FoldAt returns the fold containing pos. With side 1 a fold ending at pos
// is skipped; with side -1 a fold starting at pos is skipped.
func (l *FoldLine) FoldAt(pos document.Position, side int) *Fold {
	for _, f := range l.folds {
		r := f.Range
		if !r.Contains(pos) {
			continue
		}
		if !r.IsEmpty() && (side == 1 && r.End == pos || side == -1 && r.Start == pos) {
			continue
		}
		return f
	}
	return nil
}

// seed makes f the only fold of the line.
func (l *FoldLine) seed(f *Fold) {
	l.folds = []*Fold{f}
	l.Range = f.Range
	f.SetFoldLine(l)
}
