package document

import (
	"fmt"
	"strings"
)

// Action identifies the kind of mutation a Delta describes.
type Action uint8

const (
	// InsertText inserts Text at Range.Start; Text may be a single "\n".
	InsertText Action = iota

	// InsertLines inserts whole Lines before row Range.Start.Row.
	InsertLines

	// RemoveText removes the text covered by Range; Text holds what was removed.
	RemoveText

	// RemoveLines removes rows Range.Start.Row through Range.End.Row-1.
	RemoveLines
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case InsertText:
		return "insertText"
	case InsertLines:
		return "insertLines"
	case RemoveText:
		return "removeText"
	case RemoveLines:
		return "removeLines"
	default:
		return "unknown"
	}
}

// Delta describes one atomic mutation of a Document. Deltas are emitted in
// edit order and must be replayed in that order.
type Delta struct {
	Action Action
	Range  Range
	Text   string
	Lines  []string
}

// IsInsert returns true for InsertText and InsertLines.
func (d Delta) IsInsert() bool {
	return d.Action == InsertText || d.Action == InsertLines
}

// IsRemove returns true for RemoveText and RemoveLines.
func (d Delta) IsRemove() bool {
	return d.Action == RemoveText || d.Action == RemoveLines
}

// Invert returns the delta that undoes d.
func (d Delta) Invert() Delta {
	inv := d
	switch d.Action {
	case InsertText:
		inv.Action = RemoveText
	case InsertLines:
		inv.Action = RemoveLines
	case RemoveText:
		inv.Action = InsertText
	case RemoveLines:
		inv.Action = InsertLines
	}
	return inv
}

// String returns a human-readable representation of the delta.
func (d Delta) String() string {
	switch d.Action {
	case InsertLines, RemoveLines:
		return fmt.Sprintf("%s %v %d lines", d.Action, d.Range, len(d.Lines))
	default:
		text := d.Text
		if len(text) > 20 {
			text = text[:17] + "..."
		}
		return fmt.Sprintf("%s %q at %v", d.Action, text, d.Range)
	}
}

// Text helpers

// splitLines splits text on any newline convention (\r\n, \r or \n).
func splitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(lines, text[start:])
}

// detectNewLine returns the first line terminator in text, or "" if none.
func detectNewLine(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			return "\n"
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return "\r\n"
			}
			return "\r"
		}
	}
	return ""
}
