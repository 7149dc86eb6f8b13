package termatlas

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/termatlas/shape"
)

// PresentationSurface is the contract to the window system's presentable
// surface. Implementations wrap a swap chain, a shared-memory window
// buffer, or a test double; the engine never creates one itself.
type PresentationSurface interface {
	// Format reports the pixel format of buffers returned by AcquireBuffer.
	// The software backend produces TextureFormatBGRA8Unorm.
	Format() gputypes.TextureFormat

	// AcquireBuffer returns the backbuffer for the given pixel size,
	// row-major with 4 bytes per pixel and no padding. The buffer stays
	// valid until the following Present call.
	AcquireBuffer(size Size) ([]byte, error)

	// Present shows the backbuffer. dirty is the changed region in pixels.
	// When the frame carried a scroll, scrollRect/scrollOffset hint which
	// region moved where so partial-update surfaces can blit instead of
	// redrawing; both are zero otherwise.
	Present(dirty Rect, scrollRect Rect, scrollOffset Point) error

	// FrameReady returns a channel that delivers one signal when the
	// surface can accept the next frame. Backends wait on it with a
	// timeout before rendering.
	FrameReady() <-chan struct{}
}

// FontDependents caches values derived from the font settings group. They
// are rebuilt whenever the font generation changes and read every frame.
type FontDependents struct {
	// DIPPerPixel and PixelPerDIP convert between device-independent
	// pixels and device pixels at the configured DPI.
	DIPPerPixel float64
	PixelPerDIP float64

	// CellSizeDIPX/Y is the cell size in device-independent pixels.
	CellSizeDIPX float64
	CellSizeDIPY float64

	// AxisVariants holds the resolved variable-font axis values per
	// [italic][bold] attribute combination. Empty when the user supplied
	// no axis values.
	AxisVariants [2][2][]shape.Axis
}

// RenderPayload is the presenter-owned frame state handed to the backend.
// The invalidation writer commits into it at the StartPaint handoff and
// must not touch it between EndPaint and the completion of Present.
type RenderPayload struct {
	// Settings is the observed settings snapshot. Backends compare the
	// per-group generations against their own to decide which resources
	// to rebuild.
	Settings *Settings

	// Font holds the font-dependent derived values.
	Font FontDependents

	// Rows holds one ShapedRow per terminal row.
	Rows []*ShapedRow

	// BackgroundBitmap and ForegroundBitmap are row-major per-cell packed
	// 0xAABBGGRR colors, sized CellCount.X * CellCount.Y.
	BackgroundBitmap []uint32
	ForegroundBitmap []uint32

	// CellCount is the grid size the bitmaps and rows were built for.
	CellCount Size

	// CursorRect is the cursor cell area, empty when the cursor is off.
	CursorRect Rect

	// DirtyRect is the region to re-rasterize this frame, in cells.
	DirtyRect Rect

	// ScrollOffset is this frame's applied scroll in rows, for present
	// scroll hinting.
	ScrollOffset int
}

// Backend rasterizes shaped rows and presents them. Render runs on the
// presenter; the engine guarantees the payload is not mutated while Render
// executes.
//
// Render returns a *DeviceLossError to request a frame retry after full
// resource reconstruction; any other error fails the frame.
type Backend interface {
	Render(p *RenderPayload) error

	// WaitUntilCanRender blocks (with a bounded timeout) until the
	// presentation surface can accept a new frame.
	WaitUntilCanRender()

	// Close tears down all backend resources. The backend must be usable
	// again afterwards; the next Render rebuilds from scratch.
	Close() error
}
