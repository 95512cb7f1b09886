// Package fold models collapsible regions of a document.
//
// A Fold holds a range, the placeholder shown while collapsed, and nested
// sub-folds. A detached fold's range is in document coordinates. Once
// attached under a parent, a sub-fold's range is stored relative to the
// parent's start: rows count from the parent's start row, and columns on
// that row count from the parent's start column. ToRelative and ToAbsolute
// convert between the two.
//
// Sub-folds are kept sorted and never partially overlap. Ranges that only
// touch at a boundary are siblings.
//
// Manager tracks the top-level folds of a live document through anchors,
// so folds follow edits. A fold whose range collapses to nothing is dropped.
package fold
