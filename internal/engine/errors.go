package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrClosed indicates an operation on a closed session or host.
	ErrClosed = errors.New("engine is closed")

	// ErrNoLanguage indicates a session was created without a language.
	ErrNoLanguage = errors.New("no language")

	// ErrNoFoldRange indicates a row has no bracketed block to fold.
	ErrNoFoldRange = errors.New("no foldable block on row")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)
