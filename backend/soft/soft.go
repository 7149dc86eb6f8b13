// Package soft implements a software rasterization backend. Glyphs are
// rasterized with the sfnt outline loader into a shelf-packed alpha atlas
// and composited into the surface's BGRA backbuffer on the CPU.
//
// The backend assumes the presentation surface hands back the same
// backbuffer content it presented last frame, which is what lets partial
// redraws and the scroll blit work. A surface without a persistent
// backbuffer must report a different buffer size or be swapped through the
// target settings, forcing full redraws.
package soft

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/image/font/sfnt"

	"github.com/gogpu/termatlas"
	"github.com/gogpu/termatlas/atlas"
)

// defaultFrameLatency bounds the wait for the surface's frame-ready signal
// so a stalled compositor cannot wedge the presenter.
const defaultFrameLatency = 100 * time.Millisecond

// errAtlasFull aborts a draw pass when a glyph does not fit the atlas. The
// render loop grows the atlas and redraws.
var errAtlasFull = errors.New("soft: glyph atlas full")

// atlasGrowRetries bounds grow-and-redraw passes within one frame.
const atlasGrowRetries = 4

// Config configures the software backend.
type Config struct {
	// Atlas configures the glyph atlas. The zero value selects
	// atlas.DefaultConfig().
	Atlas atlas.Config

	// FrameLatency caps WaitUntilCanRender. Default 100ms.
	FrameLatency time.Duration
}

// Backend rasterizes shaped rows on the CPU. It implements
// termatlas.Backend and runs on the presenter goroutine only.
type Backend struct {
	cfg Config

	surface termatlas.PresentationSurface

	atlas *atlas.Atlas
	cache *atlas.Map

	buf  []byte
	size termatlas.Size

	targetGen termatlas.Generation
	fontGen   termatlas.Generation
	miscGen   termatlas.Generation

	sfntBuf sfnt.Buffer
}

// New creates a software backend.
func New(cfg Config) (*Backend, error) {
	if cfg.Atlas == (atlas.Config{}) {
		cfg.Atlas = atlas.DefaultConfig()
	}
	if err := cfg.Atlas.Validate(); err != nil {
		return nil, err
	}
	if cfg.FrameLatency <= 0 {
		cfg.FrameLatency = defaultFrameLatency
	}
	return &Backend{cfg: cfg}, nil
}

// WaitUntilCanRender blocks until the surface signals readiness for the
// next frame, at most FrameLatency.
func (b *Backend) WaitUntilCanRender() {
	if b.surface == nil {
		return
	}
	ready := b.surface.FrameReady()
	if ready == nil {
		return
	}
	select {
	case <-ready:
	case <-time.After(b.cfg.FrameLatency):
	}
}

// Close drops all backend resources. The next Render rebuilds from scratch
// and performs a full redraw.
func (b *Backend) Close() error {
	b.surface = nil
	b.atlas = nil
	b.cache = nil
	b.buf = nil
	b.size = termatlas.Size{}
	b.targetGen = 0
	b.fontGen = 0
	b.miscGen = 0
	return nil
}

// Render rasterizes the payload into the surface's backbuffer and presents
// the dirty region. Surface failures are reported as device loss so the
// engine retries the frame after a rebuild.
func (b *Backend) Render(p *termatlas.RenderPayload) error {
	target := p.Settings.Target.Get()
	if target.Surface == nil {
		return errors.New("soft: target settings carry no presentation surface")
	}

	fullRedraw := false
	if b.surface != target.Surface || b.targetGen != p.Settings.Target.Generation() {
		b.surface = target.Surface
		b.targetGen = p.Settings.Target.Generation()
		fullRedraw = true
	}
	if b.atlas == nil {
		a, err := atlas.New(b.cfg.Atlas)
		if err != nil {
			return err
		}
		b.atlas = a
		b.cache = atlas.NewMap()
		fullRedraw = true
	}
	if b.fontGen != p.Settings.Font.Generation() {
		b.fontGen = p.Settings.Font.Generation()
		b.cache.Clear()
		b.atlas.Reset()
		fullRedraw = true
	}
	if b.miscGen != p.Settings.Misc.Generation() {
		b.miscGen = p.Settings.Misc.Generation()
		// Antialiasing selection changes every mask in the atlas.
		b.cache.Clear()
		b.atlas.Reset()
		fullRedraw = true
	}

	font := p.Settings.Font.Get()
	cw, ch := font.CellSize.X, font.CellSize.Y
	if cw <= 0 || ch <= 0 || p.CellCount.X <= 0 || p.CellCount.Y <= 0 {
		return nil
	}

	size := termatlas.Size{X: p.CellCount.X * cw, Y: p.CellCount.Y * ch}
	buf, err := b.surface.AcquireBuffer(size)
	if err != nil {
		return &termatlas.DeviceLossError{Cause: fmt.Errorf("acquire backbuffer: %w", err)}
	}
	if len(buf) < size.X*size.Y*4 {
		return fmt.Errorf("soft: backbuffer too small: %d bytes for %dx%d", len(buf), size.X, size.Y)
	}
	if b.size != size {
		fullRedraw = true
	}
	b.buf = buf
	b.size = size

	dirty := p.DirtyRect
	scrollRectPx := termatlas.Rect{}
	scrollOffsetPx := termatlas.Point{}
	if fullRedraw {
		dirty = termatlas.Rect{Left: 0, Top: 0, Right: p.CellCount.X, Bottom: p.CellCount.Y}
	} else if p.ScrollOffset != 0 {
		scrollRectPx, scrollOffsetPx = b.scrollBackbuffer(p.ScrollOffset, ch)
	}
	if dirty.Empty() {
		return nil
	}

	for attempt := 0; ; attempt++ {
		err := b.drawFrame(p, dirty)
		if err == nil {
			break
		}
		if !errors.Is(err, errAtlasFull) {
			return err
		}
		if attempt >= atlasGrowRetries || !b.atlas.Grow() {
			return fmt.Errorf("soft: glyph atlas exhausted at %dx%d", b.atlas.Size(), b.atlas.Size())
		}
		b.cache.Clear()
		// All cached coordinates are stale; redraw everything.
		dirty = termatlas.Rect{Left: 0, Top: 0, Right: p.CellCount.X, Bottom: p.CellCount.Y}
	}

	dirtyPx := termatlas.Rect{
		Left:   dirty.Left * cw,
		Top:    dirty.Top * ch,
		Right:  dirty.Right * cw,
		Bottom: dirty.Bottom * ch,
	}
	if err := b.surface.Present(dirtyPx, scrollRectPx, scrollOffsetPx); err != nil {
		return &termatlas.DeviceLossError{Cause: fmt.Errorf("present: %w", err)}
	}
	return nil
}

// scrollBackbuffer moves the previous frame's pixels by offset rows of
// cells and returns the moved region plus pixel offset as present hints.
func (b *Backend) scrollBackbuffer(offset, cellHeight int) (termatlas.Rect, termatlas.Point) {
	stride := b.size.X * 4
	dy := offset * cellHeight
	height := b.size.Y

	if dy < 0 {
		// Content moves up. Forward row copy is safe with overlap.
		src := -dy
		for y := 0; y < height-src; y++ {
			copy(b.buf[y*stride:(y+1)*stride], b.buf[(y+src)*stride:(y+src+1)*stride])
		}
		return termatlas.Rect{Left: 0, Top: 0, Right: b.size.X, Bottom: height + dy},
			termatlas.Point{X: 0, Y: dy}
	}

	// Content moves down; copy rows bottom-up.
	for y := height - 1; y >= dy; y-- {
		copy(b.buf[y*stride:(y+1)*stride], b.buf[(y-dy)*stride:(y-dy+1)*stride])
	}
	return termatlas.Rect{Left: 0, Top: dy, Right: b.size.X, Bottom: height},
		termatlas.Point{X: 0, Y: dy}
}

// drawFrame redraws the dirty rows: backgrounds, glyph runs, decoration
// lines, selection, then the cursor.
func (b *Backend) drawFrame(p *termatlas.RenderPayload, dirty termatlas.Rect) error {
	for y := dirty.Top; y < dirty.Bottom; y++ {
		if err := b.drawRow(p, y); err != nil {
			return err
		}
	}
	b.drawCursor(p, dirty)
	return nil
}

func (b *Backend) drawRow(p *termatlas.RenderPayload, y int) error {
	font := p.Settings.Font.Get()
	misc := p.Settings.Misc.Get()
	cw, ch := font.CellSize.X, font.CellSize.Y
	cc := p.CellCount

	for x := 0; x < cc.X; x++ {
		bg := p.BackgroundBitmap[y*cc.X+x]
		if bg == 0 {
			bg = misc.BackgroundColor
		}
		b.fillRect(x*cw, y*ch, cw, ch, bg)
	}

	row := p.Rows[y]
	if err := b.drawGlyphRun(p, row, y); err != nil {
		return err
	}
	b.drawGridLines(p, row, y)

	if row.SelectionTo > row.SelectionFrom {
		b.blendRect(row.SelectionFrom*cw, y*ch, (row.SelectionTo-row.SelectionFrom)*cw, ch, misc.SelectionColor)
	}
	return nil
}

// drawGlyphRun walks the row's glyph stream left to right, rasterizing
// uncached glyphs into the atlas and blending the cached masks into the
// backbuffer.
func (b *Backend) drawGlyphRun(p *termatlas.RenderPayload, row *termatlas.ShapedRow, y int) error {
	font := p.Settings.Font.Get()
	aa := p.Settings.Misc.Get().Antialiasing
	pixelPerDIP := p.Font.PixelPerDIP
	baselineY := float64(y*font.CellSize.Y) + font.BaselineInDIP*pixelPerDIP

	pen := 0.0
	gi := 0
	for _, m := range row.Mappings {
		for ; gi < m.GlyphsFrom; gi++ {
			pen += row.GlyphAdvances[gi]
		}

		emSizePx := m.EmSize * pixelPerDIP
		for ; gi < m.GlyphsTo; gi++ {
			color := row.Colors[gi]
			if color>>24 != 0 {
				entry, inserted := b.cache.FindOrInsert(m.Face, row.GlyphIndices[gi])
				if inserted {
					if err := b.rasterizeGlyph(entry, emSizePx, aa); err != nil {
						return err
					}
				}
				if entry.W != 0 && entry.H != 0 {
					off := row.GlyphOffsets[gi]
					gx := int((pen+off.X)*pixelPerDIP + 0.5)
					gy := int(baselineY - off.Y*pixelPerDIP + 0.5)
					b.blendGlyph(entry, gx+int(entry.OffsetX), gy+int(entry.OffsetY), color)
				}
			}
			pen += row.GlyphAdvances[gi]
		}
	}
	return nil
}

// drawGridLines draws underline, strikethrough and border decorations from
// the row's recorded ranges.
func (b *Backend) drawGridLines(p *termatlas.RenderPayload, row *termatlas.ShapedRow, y int) {
	font := p.Settings.Font.Get()
	cw, ch := font.CellSize.X, font.CellSize.Y
	top := y * ch

	baselinePx := int(font.BaselineInDIP*p.Font.PixelPerDIP + 0.5)
	ulPos := top + baselinePx + max(font.UnderlinePos, 1)
	ulWidth := max(font.UnderlineWidth, 1)
	stPos := top + max(font.StrikethroughPos, 1)
	stWidth := max(font.StrikethroughWidth, 1)

	for _, gl := range row.GridLines {
		left := gl.From * cw
		width := (gl.To - gl.From) * cw

		if gl.Flags&termatlas.FlagUnderline != 0 {
			b.fillRect(left, ulPos, width, ulWidth, gl.Color)
		}
		if gl.Flags&termatlas.FlagUnderlineDouble != 0 {
			b.fillRect(left, ulPos, width, ulWidth, gl.Color)
			b.fillRect(left, ulPos+2*ulWidth, width, ulWidth, gl.Color)
		}
		if gl.Flags&termatlas.FlagUnderlineDotted != 0 {
			dot := max(ulWidth, 2)
			for x := left; x < left+width; x += 2 * dot {
				b.fillRect(x, ulPos, min(dot, left+width-x), ulWidth, gl.Color)
			}
		}
		if gl.Flags&termatlas.FlagStrikethrough != 0 {
			b.fillRect(left, stPos, width, stWidth, gl.Color)
		}

		if gl.Flags&termatlas.FlagBorderLeft != 0 {
			b.fillRect(left, top, 1, ch, gl.Color)
		}
		if gl.Flags&termatlas.FlagBorderTop != 0 {
			b.fillRect(left, top, width, 1, gl.Color)
		}
		if gl.Flags&termatlas.FlagBorderRight != 0 {
			b.fillRect(left+width-1, top, 1, ch, gl.Color)
		}
		if gl.Flags&termatlas.FlagBorderBottom != 0 {
			b.fillRect(left, top+ch-1, width, 1, gl.Color)
		}
	}
}

// drawCursor draws the cursor if its cell intersects the dirty region.
// InvalidColor inverts the pixels underneath instead of painting a color.
func (b *Backend) drawCursor(p *termatlas.RenderPayload, dirty termatlas.Rect) {
	if p.CursorRect.Empty() || p.CursorRect.Intersect(dirty).Empty() {
		return
	}

	font := p.Settings.Font.Get()
	cursor := p.Settings.Cursor.Get()
	cw, ch := font.CellSize.X, font.CellSize.Y

	left := p.CursorRect.Left * cw
	top := p.CursorRect.Top * ch
	width := (p.CursorRect.Right - p.CursorRect.Left) * cw

	heightPct := cursor.HeightPercentage
	if heightPct <= 0 || heightPct > 100 {
		heightPct = 100
	}

	var r termatlas.Rect
	switch cursor.Shape {
	case termatlas.CursorUnderscore:
		h := max(ch*heightPct/100, 1)
		r = termatlas.Rect{Left: left, Top: top + ch - h, Right: left + width, Bottom: top + ch}
	case termatlas.CursorVerticalBar:
		w := max(int(p.Font.PixelPerDIP+0.5), 1)
		r = termatlas.Rect{Left: left, Top: top, Right: left + w, Bottom: top + ch}
	case termatlas.CursorEmptyBox:
		b.strokeCursorRect(left, top, width, ch, cursor.Color)
		return
	default:
		r = termatlas.Rect{Left: left, Top: top, Right: left + width, Bottom: top + ch}
	}

	if cursor.Color == termatlas.InvalidColor {
		b.invertRect(r.Left, r.Top, r.Right-r.Left, r.Bottom-r.Top)
	} else {
		b.fillRect(r.Left, r.Top, r.Right-r.Left, r.Bottom-r.Top, cursor.Color)
	}
}

func (b *Backend) strokeCursorRect(x, y, w, h int, color uint32) {
	invert := color == termatlas.InvalidColor
	edge := func(ex, ey, ew, eh int) {
		if invert {
			b.invertRect(ex, ey, ew, eh)
		} else {
			b.fillRect(ex, ey, ew, eh, color)
		}
	}
	edge(x, y, w, 1)
	edge(x, y+h-1, w, 1)
	edge(x, y+1, 1, h-2)
	edge(x+w-1, y+1, 1, h-2)
}
