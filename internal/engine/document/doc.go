// Package document provides the line-oriented text buffer at the bottom of
// the editor core, together with anchors that follow text across edits.
//
// A Document owns its lines and is the only thing allowed to mutate them.
// Each primitive mutation emits a Delta:
//
//	doc := document.New("abc\ndef")
//	doc.OnChange(func(d document.Delta) { log.Println(d) })
//	doc.Insert(document.Pos(0, 3), "\nXYZ")
//	// insertText "\n" at (0:3), then insertText "XYZ" at (1:0)
//
// Deltas can be replayed with ApplyDeltas and undone with RevertDeltas,
// which is the substrate an undo manager builds on.
//
// Positions outside the document are clipped rather than rejected; the one
// exception is RemoveLines, which returns a *RangeError for rows that do not
// exist.
package document
