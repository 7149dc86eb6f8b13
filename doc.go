// Package termatlas converts a terminal's cell grid into shaped glyph runs
// and atlas-backed rasterized glyphs ready for presentation, while reusing
// as much shaping and rasterization work as possible across frames.
//
// The engine is driven through a per-frame paint-call sequence:
//
//	eng.StartPaint()
//	eng.UpdateDrawingBrushes(...)
//	eng.PaintBufferLine(clusters, row)
//	eng.PaintSelection(...)
//	eng.PaintCursor(...)
//	eng.EndPaint()
//	// later, on the presenter goroutine:
//	eng.Present()
//
// Consecutive PaintBufferLine calls for the same row are accumulated into one
// logical line of text. On flush the line is segmented by font fallback and
// script complexity, shaped through the configured shaping collaborator, and
// the resulting glyph run is snapped to cell-grid boundaries and stored in a
// per-row cache. Vertical scrolling is applied as an in-place row shift so
// only newly uncovered rows are reshaped.
//
// Two roles may run concurrently without locks: the invalidation writer
// (StartPaint..EndPaint, under the caller's buffer lock) and the presenter
// (Present, on its own goroutine). Writer-owned state is committed to the
// presenter at the StartPaint handoff; the two sides must never touch each
// other's fields outside that handoff. See Engine for the exact contract.
package termatlas
