package common

import "errors"

// Error kinds surfaced by the engine. Call sites attach context with
// fmt.Errorf("...: %w", kind) so callers can match with errors.Is.
var (
	ErrFormat          = errors.New("invalid file format")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrCorrupt         = errors.New("structural corruption")

	ErrClosed = errors.New("tree closed")
)
