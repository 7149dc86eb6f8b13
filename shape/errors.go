package shape

import "errors"

// Sentinel errors for the shape package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("shape: empty font data")

	// ErrInsufficientBuffer is returned by Shaper.Shape when the output
	// buffers are too small for the produced glyphs. The caller grows the
	// buffers geometrically and retries.
	ErrInsufficientBuffer = errors.New("shape: insufficient output buffer")

	// ErrNoFaces is returned when a mapper is constructed without fonts.
	ErrNoFaces = errors.New("shape: at least one font source is required")
)

// WarningError carries a non-fatal diagnostic from a shaping collaborator.
// Engines forward it to the warning sink and continue the frame.
type WarningError struct {
	Code string
	Msg  string
}

func (e *WarningError) Error() string {
	return "shape: " + e.Code + ": " + e.Msg
}
