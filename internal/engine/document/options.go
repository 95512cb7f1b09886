package document

// NewLineMode selects the terminator synthesized when lines are joined.
type NewLineMode uint8

const (
	// NewLineAuto uses the first terminator seen in inserted text, "\n" otherwise.
	NewLineAuto NewLineMode = iota
	// NewLineUnix always uses "\n".
	NewLineUnix
	// NewLineWindows always uses "\r\n".
	NewLineWindows
)

// String returns the mode name.
func (m NewLineMode) String() string {
	switch m {
	case NewLineUnix:
		return "unix"
	case NewLineWindows:
		return "windows"
	default:
		return "auto"
	}
}

// ParseNewLineMode converts "auto", "unix" or "windows" to a NewLineMode.
func ParseNewLineMode(s string) (NewLineMode, bool) {
	switch s {
	case "auto", "":
		return NewLineAuto, true
	case "unix":
		return NewLineUnix, true
	case "windows":
		return NewLineWindows, true
	default:
		return NewLineAuto, false
	}
}

// Option is a functional option for configuring a Document.
type Option func(*Document)

// WithNewLineMode sets the document's newline mode.
func WithNewLineMode(m NewLineMode) Option {
	return func(d *Document) {
		d.newLineMode = m
	}
}
