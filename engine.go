package termatlas

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/termatlas/shape"
)

// FrameState tracks the writer-side frame lifecycle. The Presented→Idle
// transition happens on the presenter and is communicated back through an
// atomic flag, not through this enum.
type FrameState int

const (
	// FrameIdle means no paint bracket is open.
	FrameIdle FrameState = iota
	// FrameAccumulating means StartPaint was called and paint calls are
	// being collected.
	FrameAccumulating
	// FrameDirtyTracked means EndPaint flushed the frame and Present has
	// not yet observed it.
	FrameDirtyTracked
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameAccumulating:
		return "Accumulating"
	case FrameDirtyTracked:
		return "DirtyTracked"
	default:
		return "Unknown"
	}
}

// Config configures an Engine.
type Config struct {
	// Backend rasterizes and presents frames. Required for Present;
	// engines without a backend can still shape (useful in tests).
	Backend Backend

	// Mapper is the font-fallback collaborator. Required.
	Mapper shape.Mapper

	// Classifier is the text-complexity collaborator.
	// Default: shape.NewTextClassifier().
	Classifier shape.Classifier

	// Shaper is the shaping-engine collaborator.
	// Default: shape.NewGoTextShaper().
	Shaper shape.Shaper

	// WarningSink receives non-fatal collaborator diagnostics. Optional;
	// warnings are logged either way.
	WarningSink func(error)
}

// apiState is the invalidation writer's side of the engine. It is mutated
// only under the caller's buffer lock and, apart from the single handoff in
// StartPaint, never read by the presenter.
type apiState struct {
	state FrameState

	invalidatedCursorArea Rect
	invalidatedRows       rowRange
	scrollOffset          int

	line             bufferLine
	colorsForeground []uint32
	paint            paintState

	// Shaping scratch buffers. Grown geometrically on insufficient
	// capacity, never shrunk.
	glyphIndices  []shape.GlyphID
	clusterMap    []int
	glyphAdvances []float64
	glyphOffsets  []shape.GlyphOffset
}

// Engine converts paint calls into shaped rows and presents them through a
// backend.
//
// Two roles use an Engine concurrently: the invalidation writer calls
// StartPaint..EndPaint and the Invalidate* methods under the caller's
// exclusive buffer lock; the presenter calls Present on its own goroutine.
// Writer state is committed into the presenter-owned RenderPayload during
// StartPaint; outside that handoff neither role touches the other's
// fields. There is no lock making this safe, only the discipline; a
// violation is a design bug, not a runtime condition.
type Engine struct {
	settings *Settings
	backend  Backend

	mapper     shape.Mapper
	classifier shape.Classifier
	shaper     shape.Shaper

	warningSink func(error)

	tracker Tracker

	api apiState
	p   RenderPayload

	// presentFailed is the presenter→writer handshake: set after a failed
	// present, consumed by the next StartPaint, which then invalidates the
	// full frame.
	presentFailed atomic.Bool
}

// NewEngine creates an engine with fresh default settings.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Mapper == nil {
		return nil, errors.New("termatlas: Config.Mapper is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = shape.NewTextClassifier()
	}
	if cfg.Shaper == nil {
		cfg.Shaper = shape.NewGoTextShaper()
	}

	e := &Engine{
		settings:    NewSettings(),
		backend:     cfg.Backend,
		mapper:      cfg.Mapper,
		classifier:  cfg.Classifier,
		shaper:      cfg.Shaper,
		warningSink: cfg.WarningSink,
	}
	e.p.Settings = e.settings

	e.tracker.onChange(groupTarget, e.teardownBackend)
	e.tracker.onChange(groupFont, e.recreateFontDependentResources)
	e.tracker.onChange(groupCellCount, e.recreateCellCountDependentResources)

	return e, nil
}

// Settings returns the engine's settings for mutation by the API-facing
// caller. Mutations go through the per-group Write methods, which bump the
// group's generation; the engine observes the generations at StartPaint.
func (e *Engine) Settings() *Settings { return e.settings }

// State returns the writer-side frame state.
func (e *Engine) State() FrameState { return e.api.state }

// InvalidateRows marks the row range [from, to) for reshaping.
func (e *Engine) InvalidateRows(from, to int) {
	e.api.invalidatedRows = e.api.invalidatedRows.widen(from, to)
}

// InvalidateCursor marks the given cell area as a stale cursor region.
func (e *Engine) InvalidateCursor(area Rect) {
	e.api.invalidatedCursorArea = e.api.invalidatedCursorArea.Union(area)
}

// InvalidateScroll accumulates a vertical scroll in rows. Negative values
// move content toward row 0. Multiple calls within one frame add up and
// are applied once at StartPaint.
func (e *Engine) InvalidateScroll(delta int) {
	e.api.scrollOffset += delta
}

// InvalidateAll marks the whole grid for reshaping.
func (e *Engine) InvalidateAll() {
	e.api.invalidatedRows = rowRange{From: 0, To: e.settings.CellCount.Y}
}

// SetHyperlinkHoveredID records which hyperlink is under the pointer;
// painting text of that hyperlink forces a plain underline.
func (e *Engine) SetHyperlinkHoveredID(id int) {
	e.api.paint.hyperlinkHoveredID = id
}

// StartPaint opens a paint bracket. It observes the settings generations,
// rebuilds the dependent resources of every changed group, applies the
// accumulated scroll offset to the row store, and clears the rows that
// need reshaping. This is the writer→presenter handoff point: after
// StartPaint returns, the payload reflects this frame's dirty state.
func (e *Engine) StartPaint() error {
	if e.api.state == FrameAccumulating {
		return ErrPaintInProgress
	}

	if e.presentFailed.Swap(false) {
		e.InvalidateAll()
	}

	changed, err := e.tracker.Observe(e.settings)
	if err != nil {
		return &FrameError{Op: "StartPaint", Cause: err}
	}
	if changed {
		e.InvalidateAll()
	}

	cc := e.settings.CellCount

	// Clamp invalidation inputs into the grid.
	{
		r := &e.api.invalidatedCursorArea
		r.Left = clamp(r.Left, 0, cc.X)
		r.Top = clamp(r.Top, 0, cc.Y)
		r.Right = clamp(r.Right, r.Left, cc.X)
		r.Bottom = clamp(r.Bottom, r.Top, cc.Y)
	}
	{
		r := &e.api.invalidatedRows
		r.From = clamp(r.From, 0, cc.Y)
		r.To = clamp(r.To, r.From, cc.Y)
	}
	e.api.scrollOffset = clamp(e.api.scrollOffset, -cc.Y, cc.Y)

	// Scroll the row store and mark the newly uncovered rows invalid.
	if e.api.scrollOffset != 0 {
		e.api.invalidatedRows = applyScroll(e.p.Rows, e.api.scrollOffset, e.api.invalidatedRows)
	}

	for y := e.api.invalidatedRows.From; y < e.api.invalidatedRows.To; y++ {
		e.p.Rows[y].Clear()
	}

	e.p.ScrollOffset = e.api.scrollOffset
	e.p.DirtyRect = Rect{Left: 0, Top: e.api.invalidatedRows.From, Right: cc.X, Bottom: e.api.invalidatedRows.To}
	if e.api.scrollOffset != 0 {
		// A scroll moves every covered row on screen as well.
		e.p.DirtyRect = e.p.DirtyRect.Union(Rect{Left: 0, Top: 0, Right: cc.X, Bottom: cc.Y})
	}

	hovered := e.api.paint.hyperlinkHoveredID
	e.api.paint = paintState{hyperlinkHoveredID: hovered, lastPaintCoord: Point{X: -1, Y: -1}}
	e.api.state = FrameAccumulating
	return nil
}

// EndPaint closes the paint bracket: the pending buffer line is flushed
// through the shaping pipeline and the per-frame invalidation accumulators
// are reset.
func (e *Engine) EndPaint() error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}

	if err := e.flushBufferLine(); err != nil {
		e.api.state = FrameIdle
		return err
	}

	e.api.invalidatedCursorArea = Rect{}
	e.api.invalidatedRows = rowRange{}
	e.api.scrollOffset = 0
	e.api.state = FrameDirtyTracked
	return nil
}

// PaintBufferLine appends text clusters for one row at the given cell
// coordinate. Consecutive calls for the same row accumulate into one
// logical line; a row switch flushes the previous line first. Foreground
// and background color bitmaps are written immediately, so color state is
// current even while shaping is deferred.
func (e *Engine) PaintBufferLine(clusters []Cluster, coord Point) error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}

	cc := e.settings.CellCount
	if cc.X == 0 || cc.Y == 0 {
		return nil
	}
	y := clamp(coord.Y, 0, cc.Y-1)

	if e.api.paint.lastPaintCoord.Y != y {
		if err := e.flushBufferLine(); err != nil {
			return err
		}
	}

	x := clamp(coord.X, 0, cc.X)
	column := e.api.line.appendClusters(clusters, x)
	column = min(column, cc.X)

	for col := x; col < column; col++ {
		e.api.colorsForeground[col] = e.api.paint.fg
		e.p.ForegroundBitmap[y*cc.X+col] = e.api.paint.fg
		e.p.BackgroundBitmap[y*cc.X+col] = e.api.paint.bg
	}

	e.p.DirtyRect = e.p.DirtyRect.Union(Rect{Left: x, Top: y, Right: column, Bottom: y + 1})
	e.api.paint.lastPaintCoord = Point{X: x, Y: y}
	e.api.paint.lineWasHyperlinked = false
	return nil
}

// PaintBufferGridLines records count cells of decoration lines starting at
// the target cell. A plain underline request over hovered hyperlink text
// overrides the dotted hyperlink underline; within one flush the last
// write wins.
func (e *Engine) PaintBufferGridLines(lines CellFlags, color uint32, count int, target Point) error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}

	if !e.api.paint.lineWasHyperlinked && lines&FlagUnderline != 0 && e.api.paint.flags&FlagUnderline == 0 {
		e.api.paint.lineWasHyperlinked = true
		e.api.paint.flags = (e.api.paint.flags &^ flagAllUnderlines) | FlagUnderline
		lines = (lines &^ flagAllUnderlines) | FlagUnderline
	}

	cc := e.settings.CellCount
	if cc.X == 0 || cc.Y == 0 || count <= 0 {
		return nil
	}
	y := clamp(target.Y, 0, cc.Y-1)
	from := clamp(target.X, 0, cc.X)
	to := clamp(target.X+count, from, cc.X)
	if from == to {
		return nil
	}

	e.p.Rows[y].GridLines = append(e.p.Rows[y].GridLines, GridLineRange{
		Flags: lines,
		Color: color | 0xff000000,
		From:  from,
		To:    to,
	})
	e.p.DirtyRect = e.p.DirtyRect.Union(Rect{Left: from, Top: y, Right: to, Bottom: y + 1})
	return nil
}

// PaintSelection marks the given cell rectangle as selected. The pending
// line is flushed first so the selection lands on the row's final shape.
func (e *Engine) PaintSelection(rect Rect) error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}
	if err := e.flushBufferLine(); err != nil {
		return err
	}

	cc := e.settings.CellCount
	if cc.Y == 0 {
		return nil
	}
	row := clamp(rect.Top, 0, cc.Y-1)
	from := clamp(rect.Left, 0, max(cc.X-1, 0))
	to := clamp(rect.Right, from, cc.X)

	e.p.Rows[row].SelectionFrom = from
	e.p.Rows[row].SelectionTo = to
	e.p.DirtyRect = e.p.DirtyRect.Union(Rect{Left: from, Top: row, Right: to, Bottom: row + 1})
	return nil
}

// CursorOptions describes the cursor for PaintCursor.
type CursorOptions struct {
	// Coord is the cursor cell.
	Coord Point

	// On reports whether the cursor is visible this frame.
	On bool

	// UseColor selects Color over cell inversion.
	UseColor bool
	Color    uint32

	Shape            CursorShape
	HeightPercentage int

	// DoubleWidth widens block cursors over wide glyphs.
	DoubleWidth bool
}

// PaintCursor updates the cursor settings and dirty-tracks the old and new
// cursor areas.
func (e *Engine) PaintCursor(opts CursorOptions) error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}
	if err := e.flushBufferLine(); err != nil {
		return err
	}

	color := uint32(InvalidColor)
	if opts.UseColor {
		color = opts.Color | 0xff000000
	}
	cur := e.settings.Cursor.Get()
	if cur.Color != color || cur.Shape != opts.Shape || cur.HeightPercentage != opts.HeightPercentage {
		w := e.settings.Cursor.Write()
		w.Color = color
		w.Shape = opts.Shape
		w.HeightPercentage = opts.HeightPercentage
	}

	// Clear the previous cursor.
	if r := e.api.invalidatedCursorArea; !r.Empty() {
		e.p.CursorRect = Rect{}
		e.p.DirtyRect = e.p.DirtyRect.Union(r)
	}

	if opts.On {
		cc := e.settings.CellCount
		if cc.X == 0 || cc.Y == 0 {
			return nil
		}
		x := clamp(opts.Coord.X, 0, cc.X-1)
		y := clamp(opts.Coord.Y, 0, cc.Y-1)
		width := 1
		if opts.DoubleWidth && opts.Shape != CursorVerticalBar {
			width = 2
		}
		r := Rect{Left: x, Top: y, Right: clamp(x+width, 0, cc.X), Bottom: y + 1}
		e.p.CursorRect = r
		e.p.DirtyRect = e.p.DirtyRect.Union(r)
	}
	return nil
}

// UpdateDrawingBrushes sets the colors and attributes for subsequent paint
// calls. A bold/italic change flushes the pending line, because it selects
// a different font face. With setDefaultBrushes the call instead updates
// the default background in the misc settings group.
func (e *Engine) UpdateDrawingBrushes(fg, bg uint32, attrs TextAttributes, setDefaultBrushes bool) error {
	if e.api.state != FrameAccumulating {
		return ErrNoOpenPaint
	}

	fg |= 0xff000000
	if !e.settings.Target.Get().TransparentBackground {
		bg |= 0xff000000
	}

	if setDefaultBrushes {
		if bg != e.settings.Misc.Get().BackgroundColor {
			e.settings.Misc.Write().BackgroundColor = bg
		}
		return nil
	}

	var flags CellFlags
	if attrs.BorderLeft {
		flags |= FlagBorderLeft
	}
	if attrs.BorderTop {
		flags |= FlagBorderTop
	}
	if attrs.BorderRight {
		flags |= FlagBorderRight
	}
	if attrs.BorderBottom {
		flags |= FlagBorderBottom
	}
	if attrs.Underlined {
		flags |= FlagUnderline
	}
	if attrs.HyperlinkID != 0 {
		flags |= FlagUnderlineDotted
	}
	if attrs.DoublyUnderlined {
		flags |= FlagUnderlineDouble
	}
	if attrs.CrossedOut {
		flags |= FlagStrikethrough
	}

	if e.api.paint.hyperlinkHoveredID != 0 && e.api.paint.hyperlinkHoveredID == attrs.HyperlinkID {
		flags = (flags &^ (FlagUnderlineDotted | FlagUnderlineDouble)) | FlagUnderline
	}

	newAttrs := attrKey{bold: attrs.Bold, italic: attrs.Italic}
	if e.api.paint.attrs != newAttrs {
		if err := e.flushBufferLine(); err != nil {
			return err
		}
	}

	e.api.paint.fg = fg
	e.api.paint.bg = bg
	e.api.paint.attrs = newAttrs
	e.api.paint.flags = flags
	return nil
}

// Present rasterizes and presents the current payload. It runs on the
// presenter goroutine; the writer must not be inside a paint bracket.
//
// A transient device loss tears down the backend and returns ErrRetryFrame;
// the next StartPaint invalidates the full frame and rebuilds everything.
// Other render errors fail the frame with the same full-rebuild handshake.
func (e *Engine) Present() error {
	if e.backend == nil {
		return ErrNoBackend
	}

	e.backend.WaitUntilCanRender()

	err := e.backend.Render(&e.p)
	if err == nil {
		return nil
	}

	e.presentFailed.Store(true)

	var loss *DeviceLossError
	if errors.As(err, &loss) {
		if cerr := e.backend.Close(); cerr != nil {
			Logger().Warn("termatlas: backend teardown after device loss", "error", cerr)
		}
		Logger().Warn("termatlas: device lost, requesting frame retry", "error", err)
		return ErrRetryFrame
	}

	return &FrameError{Op: "Present", Cause: err}
}

// warn forwards a non-fatal collaborator diagnostic to the warning sink.
func (e *Engine) warn(err error) {
	Logger().Warn("termatlas: collaborator warning", "error", err)
	if e.warningSink != nil {
		e.warningSink(err)
	}
}

// teardownBackend resets the backend when the target settings change.
func (e *Engine) teardownBackend() error {
	if e.backend == nil {
		return nil
	}
	if err := e.backend.Close(); err != nil {
		return fmt.Errorf("termatlas: target change teardown: %w", err)
	}
	return nil
}

// recreateFontDependentResources rebuilds the values derived from the font
// settings group.
func (e *Engine) recreateFontDependentResources() error {
	f := e.settings.Font.Get()

	dpi := f.DPI
	if dpi <= 0 {
		dpi = 96
	}
	d := FontDependents{
		DIPPerPixel: 96.0 / float64(dpi),
		PixelPerDIP: float64(dpi) / 96.0,
	}
	d.CellSizeDIPX = float64(f.CellSize.X) * d.DIPPerPixel
	d.CellSizeDIPY = float64(f.CellSize.Y) * d.DIPPerPixel

	if len(f.AxisValues) != 0 {
		for italic := 0; italic < 2; italic++ {
			for bold := 0; bold < 2; bold++ {
				d.AxisVariants[italic][bold] = resolveAxes(f.AxisValues, f.Weight, bold == 1, italic == 1)
			}
		}
	}

	e.p.Font = d
	Logger().Debug("termatlas: rebuilt font dependents",
		"cellWidthDIP", d.CellSizeDIPX, "cellHeightDIP", d.CellSizeDIPY)
	return nil
}

// resolveAxes fills the wght/ital/slnt axes the user left unset (-1) with
// the values implied by the requested attribute combination. Bold always
// overrides the weight axis so bold text stays visible on variable fonts.
func resolveAxes(axes []FontAxis, weight int, bold, italic bool) []shape.Axis {
	if weight <= 0 {
		weight = 400
	}
	if bold {
		weight = 700
	}

	out := make([]shape.Axis, len(axes))
	for i, a := range axes {
		v := a.Value
		switch a.Tag {
		case "wght":
			if bold || v == -1 {
				v = float32(weight)
			}
		case "ital":
			if italic {
				v = 1
			} else if v == -1 {
				v = 0
			}
		case "slnt":
			if italic {
				v = -12
			} else if v == -1 {
				v = 0
			}
		}
		out[i] = shape.Axis{Tag: a.Tag, Value: v}
	}
	return out
}

// recreateCellCountDependentResources reallocates everything sized by the
// grid, discarding all shaped rows.
func (e *Engine) recreateCellCountDependentResources() error {
	cc := e.settings.CellCount

	// Guess every cell holds a surrogate-pair-sized cluster; shaping
	// output buffers follow the usual 3n/2+16 estimate.
	projectedText := max(cc.X*2, 16)
	projectedGlyphs := 3*projectedText/2 + 16

	e.api.line.chars = make([]rune, 0, projectedText)
	e.api.line.columns = make([]int, 0, projectedText+1)
	e.api.colorsForeground = make([]uint32, cc.X)
	e.api.glyphIndices = make([]shape.GlyphID, projectedGlyphs)
	e.api.clusterMap = make([]int, projectedText+1)
	e.api.glyphAdvances = make([]float64, projectedGlyphs)
	e.api.glyphOffsets = make([]shape.GlyphOffset, projectedGlyphs)

	e.p.Rows = make([]*ShapedRow, cc.Y)
	for i := range e.p.Rows {
		e.p.Rows[i] = &ShapedRow{}
	}
	e.p.BackgroundBitmap = make([]uint32, cc.X*cc.Y)
	e.p.ForegroundBitmap = make([]uint32, cc.X*cc.Y)
	e.p.CellCount = cc
	e.p.CursorRect = Rect{}

	Logger().Debug("termatlas: rebuilt cell-count dependents", "cols", cc.X, "rows", cc.Y)
	return nil
}
