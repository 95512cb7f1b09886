package document

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Merge replaces the document content with text by applying a line-level
// diff, so rows that did not change are never removed and anchors on them
// keep their place. Only whole-line deltas are emitted (plus the text deltas
// InsertLines uses when appending at the end).
func (d *Document) Merge(text string) error {
	if len(d.lines) <= 1 {
		d.detectNewLine(text)
	}
	newLines := splitLines(text)

	dmp := diffmatchpatch.New()
	oldChars, newChars, lineArray := dmp.DiffLinesToChars(joinTerminated(d.lines), joinTerminated(newLines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineArray)

	row := 0
	for i := 0; i < len(diffs); i++ {
		diff := diffs[i]
		n := strings.Count(diff.Text, "\n")
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			row += n
		case diffmatchpatch.DiffInsert:
			d.InsertLines(row, terminatedLines(diff.Text))
			row += n
		case diffmatchpatch.DiffDelete:
			// Insert a replacement first so the document never runs out of rows.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := diffs[i+1]
				d.InsertLines(row, terminatedLines(ins.Text))
				row += strings.Count(ins.Text, "\n")
				i++
			}
			if _, err := d.RemoveLines(row, row+n-1); err != nil {
				return err
			}
		}
	}
	return nil
}

// joinTerminated joins lines so that every line, including the last, ends in "\n".
func joinTerminated(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// terminatedLines splits text produced by joinTerminated back into lines.
func terminatedLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
