package fold

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/dshills/textmodel/internal/engine/document"
)

// tracked is a top-level fold whose bounds follow document edits.
type tracked struct {
	fold  *Fold
	start *document.Anchor
	end   *document.Anchor
}

func (t *tracked) detach() {
	t.start.Detach()
	t.end.Detach()
}

// Manager keeps the top-level folds of a document. Each top-level fold is
// bounded by two anchors; text inserted at either boundary lands outside
// the fold. Sub-folds are stored relative to their parent's start and
// move with it.
type Manager struct {
	doc    *document.Document
	folds  []*tracked
	logger *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a fold manager for doc.
func NewManager(doc *document.Document, opts ...ManagerOption) *Manager {
	m := &Manager{
		doc:    doc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// sync reads fold bounds back from their anchors and drops folds that
// collapsed to nothing.
func (m *Manager) sync() {
	kept := m.folds[:0]
	for _, t := range m.folds {
		t.fold.Range = document.Range{Start: t.start.Position(), End: t.end.Position()}
		if !t.fold.Range.Start.Before(t.fold.Range.End) {
			m.logger.Debug("dropping collapsed fold", "placeholder", t.fold.Placeholder, "at", t.fold.Range.Start.String())
			t.detach()
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(m.folds); i++ {
		m.folds[i] = nil
	}
	m.folds = kept
}

// AddFold folds r behind placeholder.
func (m *Manager) AddFold(r document.Range, placeholder string) (*Fold, error) {
	return m.Add(New(r, placeholder))
}

// Add adds f, whose range is in document coordinates. A fold inside an
// existing top-level fold becomes its sub-fold; top-level folds inside f
// become sub-folds of f.
func (m *Manager) Add(f *Fold) (*Fold, error) {
	m.sync()
	f.Range = document.Range{
		Start: m.doc.ClipPosition(f.Range.Start),
		End:   m.doc.ClipPosition(f.Range.End),
	}
	if !f.Range.Start.Before(f.Range.End) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFold, f.Range)
	}

	var consumed []*tracked
	for _, t := range m.folds {
		switch {
		case t.fold.Range.ContainsRange(f.Range):
			return t.fold.AddSubFold(f)
		case f.Range.ContainsRange(t.fold.Range):
			consumed = append(consumed, t)
		case f.Range.Intersects(t.fold.Range):
			return nil, fmt.Errorf("%w: %s and %s", ErrFoldIntersects, f.Range, t.fold.Range)
		}
	}

	if len(consumed) > 0 && len(f.SubFolds) > 0 {
		trial := f.Clone()
		for _, t := range consumed {
			if _, err := trial.AddSubFold(t.fold.Clone()); err != nil {
				return nil, err
			}
		}
	}
	for _, t := range consumed {
		if _, err := f.AddSubFold(t.fold); err != nil {
			return nil, fmt.Errorf("nest %s: %w", t.fold, err)
		}
	}
	for _, t := range consumed {
		m.drop(t)
	}

	t := &tracked{
		fold:  f,
		start: m.doc.CreateAnchor(f.Range.Start.Row, f.Range.Start.Column),
		end:   m.doc.CreateAnchor(f.Range.End.Row, f.Range.End.Column),
	}
	t.start.SetInsertRight(true)
	i := sort.Search(len(m.folds), func(i int) bool {
		return !m.folds[i].fold.Range.Start.Before(f.Range.Start)
	})
	m.folds = append(m.folds, nil)
	copy(m.folds[i+1:], m.folds[i:])
	m.folds[i] = t
	return f, nil
}

// drop detaches t and removes it from the top level.
func (m *Manager) drop(t *tracked) {
	t.detach()
	for i, o := range m.folds {
		if o == t {
			m.folds = append(m.folds[:i], m.folds[i+1:]...)
			return
		}
	}
}

// RemoveFold removes f and everything nested in it. It returns false if f
// is not managed here.
func (m *Manager) RemoveFold(f *Fold) bool {
	m.sync()
	for _, t := range m.folds {
		if t.fold == f {
			m.drop(t)
			return true
		}
		if parent := parentOf(t.fold, f); parent != nil {
			for i, sub := range parent.SubFolds {
				if sub == f {
					parent.SubFolds = append(parent.SubFolds[:i], parent.SubFolds[i+1:]...)
					break
				}
			}
			return true
		}
	}
	return false
}

// parentOf returns the fold under root whose sub-folds include f.
func parentOf(root, f *Fold) *Fold {
	for _, sub := range root.SubFolds {
		if sub == f {
			return root
		}
		if p := parentOf(sub, f); p != nil {
			return p
		}
	}
	return nil
}

// ExpandFold removes the top-level fold f and promotes its direct
// sub-folds to top-level folds. It returns the promoted folds.
func (m *Manager) ExpandFold(f *Fold) ([]*Fold, error) {
	m.sync()
	var target *tracked
	for _, t := range m.folds {
		if t.fold == f {
			target = t
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotContained, f.Range)
	}
	m.drop(target)

	promoted := make([]*Fold, 0, len(f.SubFolds))
	for _, sub := range f.SubFolds {
		sub.Range = f.RestoreRange(sub.Range)
		added, err := m.Add(sub)
		if err != nil {
			return promoted, err
		}
		promoted = append(promoted, added)
	}
	f.SubFolds = nil
	return promoted, nil
}

// FoldAt returns the top-level fold containing pos. With side 1 a fold
// ending at pos is skipped; with side -1 a fold starting at pos is skipped.
func (m *Manager) FoldAt(pos document.Position, side int) *Fold {
	m.sync()
	for _, t := range m.folds {
		r := t.fold.Range
		if !r.Contains(pos) {
			continue
		}
		if side == 1 && r.End == pos || side == -1 && r.Start == pos {
			continue
		}
		return t.fold
	}
	return nil
}

// Folds returns the top-level folds in document order.
func (m *Manager) Folds() []*Fold {
	m.sync()
	out := make([]*Fold, len(m.folds))
	for i, t := range m.folds {
		out[i] = t.fold
	}
	return out
}

// FoldLines groups the top-level folds into fold lines.
func (m *Manager) FoldLines() []*FoldLine {
	var lines []*FoldLine
	var cur *FoldLine
	for _, f := range m.Folds() {
		if cur != nil && cur.AddFold(f) == nil {
			continue
		}
		cur = &FoldLine{}
		cur.seed(f)
		lines = append(lines, cur)
	}
	return lines
}

// Close detaches every fold from the document.
func (m *Manager) Close() {
	for _, t := range m.folds {
		t.detach()
	}
	m.folds = nil
}
