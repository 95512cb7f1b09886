package document

import (
	"errors"
	"fmt"
)

// Errors returned by document operations.
var (
	// ErrOutOfRange is the class of every row bounds violation.
	ErrOutOfRange = errors.New("row out of range")

	// ErrUnknownAction indicates a delta with an unrecognised action.
	ErrUnknownAction = errors.New("unknown delta action")
)

// RangeError reports a row range that lies outside the document.
// It is only produced by operations that address whole rows, where clipping
// would silently touch unrelated lines.
type RangeError struct {
	Op       string
	FirstRow int
	LastRow  int
	Length   int
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: rows %d..%d outside document of %d lines", e.Op, e.FirstRow, e.LastRow, e.Length)
}

// Unwrap lets errors.Is match ErrOutOfRange.
func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}
