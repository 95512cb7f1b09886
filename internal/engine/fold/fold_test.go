package fold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dshills/textmodel/internal/engine/document"
)

func TestRelativeRoundTrip(t *testing.T) {
	r := document.NewRange(3, 5, 4, 2)
	origin := document.Pos(3, 2)
	rel := ToRelative(r, origin)
	assert.Equal(t, document.NewRange(0, 3, 1, 2), rel)
	assert.Equal(t, r, ToAbsolute(rel, origin))
}

func TestAddSubFoldStoresRelativeRange(t *testing.T) {
	parent := New(document.NewRange(1, 4, 10, 0), "{...}")
	child, err := parent.AddSubFold(New(document.NewRange(1, 6, 2, 3), "..."))
	require.NoError(t, err)
	assert.Equal(t, document.NewRange(0, 2, 1, 3), child.Range)
	assert.Equal(t, document.NewRange(1, 6, 2, 3), parent.RestoreRange(child.Range))
	assert.Equal(t, []*Fold{child}, parent.SubFolds)
}

func TestAddSubFoldNestsIntoContainingSibling(t *testing.T) {
	parent := New(document.NewRange(1, 4, 10, 0), "")
	child, err := parent.AddSubFold(New(document.NewRange(1, 6, 2, 3), ""))
	require.NoError(t, err)
	inner, err := parent.AddSubFold(New(document.NewRange(1, 7, 1, 9), ""))
	require.NoError(t, err)

	assert.Len(t, parent.SubFolds, 1)
	assert.Equal(t, []*Fold{inner}, child.SubFolds)
	assert.Equal(t, document.NewRange(0, 1, 0, 3), inner.Range)

	var got []document.Range
	parent.Walk(func(_ *Fold, r document.Range) bool {
		got = append(got, r)
		return true
	})
	assert.Equal(t, []document.Range{
		document.NewRange(1, 4, 10, 0),
		document.NewRange(1, 6, 2, 3),
		document.NewRange(1, 7, 1, 9),
	}, got)
}

func TestAddSubFoldSubsumesSiblings(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "")
	a, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), "a"))
	require.NoError(t, err)
	b, err := parent.AddSubFold(New(document.NewRange(3, 0, 3, 5), "b"))
	require.NoError(t, err)
	d, err := parent.AddSubFold(New(document.NewRange(6, 0, 6, 1), "d"))
	require.NoError(t, err)

	c, err := parent.AddSubFold(New(document.NewRange(1, 0, 4, 0), "c"))
	require.NoError(t, err)
	assert.Equal(t, []*Fold{c, d}, parent.SubFolds)
	assert.Equal(t, []*Fold{a, b}, c.SubFolds)
	assert.Equal(t, document.NewRange(1, 0, 1, 5), a.Range)
	assert.Equal(t, document.NewRange(2, 0, 2, 5), b.Range)
}

func TestAddSubFoldFailures(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "")
	_, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), "a"))
	require.NoError(t, err)

	cand := New(document.NewRange(2, 3, 5, 0), "x")
	_, err = parent.AddSubFold(cand)
	assert.ErrorIs(t, err, ErrFoldIntersects)
	assert.Len(t, parent.SubFolds, 1)
	assert.Equal(t, document.NewRange(2, 3, 5, 0), cand.Range, "failed candidate keeps its range")

	_, err = parent.AddSubFold(New(document.NewRange(9, 0, 11, 0), "y"))
	assert.ErrorIs(t, err, ErrNotContained)
}

func TestAddSubFoldKeepsSiblingsWhenNestingFails(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "")
	a, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), "a"))
	require.NoError(t, err)

	cand := New(document.NewRange(1, 0, 4, 0), "c")
	_, err = cand.AddSubFold(New(document.NewRange(2, 3, 3, 0), "inner"))
	require.NoError(t, err)

	_, err = parent.AddSubFold(cand)
	assert.ErrorIs(t, err, ErrFoldIntersects)
	assert.Equal(t, []*Fold{a}, parent.SubFolds)
	assert.Equal(t, document.NewRange(2, 0, 2, 5), a.Range)
	assert.Equal(t, document.NewRange(1, 0, 4, 0), cand.Range)
	assert.Len(t, cand.SubFolds, 1)
}

func TestAddSubFoldTouchingAndEqual(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "")
	_, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), "a"))
	require.NoError(t, err)
	_, err = parent.AddSubFold(New(document.NewRange(2, 5, 2, 8), "b"))
	require.NoError(t, err)
	assert.Len(t, parent.SubFolds, 2, "touching folds are siblings")

	got, err := parent.AddSubFold(New(document.NewRange(0, 0, 10, 0), "same"))
	require.NoError(t, err)
	assert.Same(t, parent, got)
	assert.Len(t, parent.SubFolds, 2)
}

func TestCloneIsDeep(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "p")
	parent.CollapseChildren = 2
	_, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), "a"))
	require.NoError(t, err)

	c := parent.Clone()
	assert.Equal(t, 2, c.CollapseChildren)
	require.Len(t, c.SubFolds, 1)
	c.SubFolds[0].Range = document.NewRange(3, 0, 3, 1)
	assert.Equal(t, document.NewRange(2, 0, 2, 5), parent.SubFolds[0].Range)
}

func TestSetFoldLineIsRecursive(t *testing.T) {
	parent := New(document.NewRange(0, 0, 10, 0), "")
	child, err := parent.AddSubFold(New(document.NewRange(2, 0, 2, 5), ""))
	require.NoError(t, err)
	l := &FoldLine{}
	parent.SetFoldLine(l)
	assert.Same(t, l, child.FoldLine())
}

func genRange(t *rapid.T) document.Range {
	for {
		a := document.Pos(rapid.IntRange(0, 5).Draw(t, "r1"), rapid.IntRange(0, 5).Draw(t, "c1"))
		b := document.Pos(rapid.IntRange(0, 5).Draw(t, "r2"), rapid.IntRange(0, 5).Draw(t, "c2"))
		r := document.RangeFromPoints(a, b)
		if !r.IsEmpty() {
			return r
		}
	}
}

// checkLevels asserts that every fold's sub-folds are sorted, inside it
// and mutually non-overlapping.
func checkLevels(t *rapid.T, f *Fold) {
	for i, sub := range f.SubFolds {
		if i > 0 {
			prev := f.SubFolds[i-1]
			if prev.Range.Intersects(sub.Range) || sub.Range.Start.Before(prev.Range.Start) {
				t.Fatalf("sub-folds %s and %s out of order or overlapping", prev.Range, sub.Range)
			}
		}
		checkLevels(t, sub)
	}
}

func TestPropertyContainment(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := document.NewRange(0, 2, 5, 3)
		parent := New(root, "")
		var accepted []document.Range

		n := rapid.IntRange(1, 12).Draw(t, "n")
		for i := 0; i < n; i++ {
			r := genRange(t)
			ok := root.ContainsRange(r)
			for _, a := range accepted {
				if !a.ContainsRange(r) && !r.ContainsRange(a) && r.Intersects(a) {
					ok = false
				}
			}

			_, err := parent.AddSubFold(New(r, ""))
			if ok != (err == nil) {
				t.Fatalf("add %s: want accepted=%v, got err=%v", r, ok, err)
			}
			if ok && !r.IsEqual(root) {
				accepted = append(accepted, r)
			}
		}

		want := map[document.Range]bool{}
		for _, a := range accepted {
			want[a] = true
		}
		got := map[document.Range]bool{}
		parent.Walk(func(f *Fold, r document.Range) bool {
			if f != parent {
				if !root.ContainsRange(r) {
					t.Fatalf("fold %s escapes parent", r)
				}
				got[r] = true
			}
			return true
		})
		require.Equal(t, want, got)
		checkLevels(t, parent)
	})
}
