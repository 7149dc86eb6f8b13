package termatlas

import "errors"

// Sentinel errors for the paint/present API.
var (
	// ErrNoOpenPaint is returned by paint calls made outside a
	// StartPaint/EndPaint bracket.
	ErrNoOpenPaint = errors.New("termatlas: no open paint bracket")

	// ErrPaintInProgress is returned by StartPaint when the previous
	// bracket was never closed with EndPaint.
	ErrPaintInProgress = errors.New("termatlas: paint already in progress")

	// ErrRetryFrame signals that the frame was dropped due to a transient
	// backend loss. The backend resources were torn down; the caller should
	// repaint the full frame, which rebuilds them from scratch.
	ErrRetryFrame = errors.New("termatlas: transient backend loss, retry frame")

	// ErrNoBackend is returned by Present when the engine has no backend.
	ErrNoBackend = errors.New("termatlas: no rasterization backend configured")
)

// DeviceLossError reports that the presentation device or surface was lost
// (removed, reset, or otherwise invalidated). Backends return it from Render
// to request a full resource rebuild instead of a hard failure.
type DeviceLossError struct {
	// Cause is the underlying backend error, if any.
	Cause error
}

func (e *DeviceLossError) Error() string {
	if e.Cause == nil {
		return "termatlas: presentation device lost"
	}
	return "termatlas: presentation device lost: " + e.Cause.Error()
}

func (e *DeviceLossError) Unwrap() error { return e.Cause }

// FrameError wraps an unrecoverable error that aborted a frame. The shaped
// rows flushed before the failure remain valid; only the frame is lost.
type FrameError struct {
	Op    string // the paint call that failed
	Cause error
}

func (e *FrameError) Error() string {
	return "termatlas: " + e.Op + ": " + e.Cause.Error()
}

func (e *FrameError) Unwrap() error { return e.Cause }
