package termatlas

import "github.com/gogpu/termatlas/shape"

// FontMapping assigns a contiguous range of a row's glyphs to one font face
// at one size. The range [GlyphsFrom, GlyphsTo) indexes the row's parallel
// glyph arrays.
type FontMapping struct {
	Face       *shape.Face
	EmSize     float64
	GlyphsFrom int
	GlyphsTo   int
}

// GridLineRange is one run of decoration lines over the column range
// [From, To).
type GridLineRange struct {
	Flags CellFlags
	Color uint32
	From  int
	To    int
}

// ShapedRow holds one terminal row's shaped result. GlyphIndices,
// GlyphAdvances, GlyphOffsets and Colors are parallel arrays owned by the
// row. A row is cleared and rebuilt wholesale on reshape, never patched.
type ShapedRow struct {
	Mappings      []FontMapping
	GlyphIndices  []shape.GlyphID
	GlyphAdvances []float64
	GlyphOffsets  []shape.GlyphOffset
	Colors        []uint32

	GridLines []GridLineRange

	// SelectionFrom/SelectionTo is the selected column range [from, to).
	SelectionFrom int
	SelectionTo   int
}

// Clear resets the row for reshaping, keeping allocated capacity.
func (r *ShapedRow) Clear() {
	r.Mappings = r.Mappings[:0]
	r.GlyphIndices = r.GlyphIndices[:0]
	r.GlyphAdvances = r.GlyphAdvances[:0]
	r.GlyphOffsets = r.GlyphOffsets[:0]
	r.Colors = r.Colors[:0]
	r.GridLines = r.GridLines[:0]
	r.SelectionFrom = 0
	r.SelectionTo = 0
}

// GlyphCount returns the number of glyphs in the row.
func (r *ShapedRow) GlyphCount() int { return len(r.GlyphIndices) }

// applyScroll shifts rows in place by offset (negative moves content toward
// row 0) and returns the dirty range widened by the uncovered rows. The
// shift is a rotation, so uncovered rows keep their allocations; the caller
// clears every row in the returned range afterwards.
//
// offset must already be clamped to [-len(rows), len(rows)] and accumulated
// across the frame; applyScroll runs at most once per frame.
func applyScroll(rows []*ShapedRow, offset int, dirty rowRange) rowRange {
	n := len(rows)
	if offset == 0 || n == 0 {
		return dirty
	}

	if offset < 0 {
		// Content moved up: rows [-offset, n) shift to [0, n+offset);
		// the tail [n+offset, n) is uncovered.
		k := -offset
		rotateLeft(rows, k)
		dirty = dirty.widen(n-k, n)
	} else {
		// Content moved down: rows [0, n-offset) shift to [offset, n);
		// the head [0, offset) is uncovered.
		rotateRight(rows, offset)
		dirty = dirty.widen(0, offset)
	}
	return dirty
}

// rotateLeft moves rows[k:] to the front; the former head rows land at the
// tail in arbitrary relative order (they are cleared by the caller anyway).
func rotateLeft(rows []*ShapedRow, k int) {
	n := len(rows)
	tmp := make([]*ShapedRow, k)
	copy(tmp, rows[:k])
	copy(rows, rows[k:])
	copy(rows[n-k:], tmp)
}

func rotateRight(rows []*ShapedRow, k int) {
	n := len(rows)
	tmp := make([]*ShapedRow, k)
	copy(tmp, rows[n-k:])
	copy(rows[k:], rows[:n-k])
	copy(rows, tmp)
}
