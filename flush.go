package termatlas

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/termatlas/shape"
)

// shapingRetryLimit bounds the grow-and-retry loop around the shaper. Each
// retry grows the glyph buffers by half, so eight attempts cover a ~25x
// blowup over the initial estimate before the frame is declared corrupt.
const shapingRetryLimit = 8

// flushBufferLine runs the accumulated line through the shaping pipeline
// and appends the result to the target row: font fallback splits the text
// into uniform-face runs, the complexity classifier splits each run into
// spans, simple spans become cell-snapped 1:1 glyphs and complex spans go
// through the shaping engine with cluster advance correction.
func (e *Engine) flushBufferLine() error {
	if e.api.line.empty() {
		return nil
	}
	defer e.api.line.reset()

	text := e.api.line.chars
	columns := e.api.line.columns
	if len(columns) != len(text)+1 {
		panic(fmt.Sprintf("termatlas: buffer line columns out of sync: %d columns for %d chars", len(columns), len(text)))
	}

	y := e.api.paint.lastPaintCoord.Y
	if y < 0 || y >= len(e.p.Rows) {
		return nil
	}
	row := e.p.Rows[y]
	style := e.styleForAttrs(e.api.paint.attrs)

	// Backends position glyphs by accumulating advances from column 0. A
	// line painted past the row's written extent gets a blank spacer glyph
	// carrying the gap; zero alpha keeps it from being drawn.
	written := 0.0
	for _, a := range row.GlyphAdvances {
		written += a
	}
	if gap := float64(columns[0])*e.p.Font.CellSizeDIPX - written; gap > 0 {
		row.GlyphIndices = append(row.GlyphIndices, 0)
		row.GlyphAdvances = append(row.GlyphAdvances, gap)
		row.GlyphOffsets = append(row.GlyphOffsets, shape.GlyphOffset{})
		row.Colors = append(row.Colors, 0)
	}

	for idx := 0; idx < len(text); {
		mappedLen, scale, face, err := e.mapper.Map(text, idx, style)
		if err != nil {
			var warn *shape.WarningError
			if errors.As(err, &warn) {
				e.warn(err)
				mappedLen = max(mappedLen, 1)
				idx += mappedLen
				continue
			}
			return &FrameError{Op: "MapCharacters", Cause: err}
		}
		if mappedLen <= 0 {
			mappedLen = 1
		}
		mappedEnd := idx + mappedLen
		if mappedEnd > len(text) {
			mappedEnd = len(text)
		}

		if face == nil {
			// No installed font covers this run. The cells keep their
			// background; the text is skipped.
			idx = mappedEnd
			continue
		}

		if n := mappedEnd - idx; n > len(e.api.glyphIndices) {
			size := max(growBuffer(len(e.api.glyphIndices)), n)
			e.api.glyphIndices = make([]shape.GlyphID, size)
			e.api.glyphAdvances = make([]float64, size)
			e.api.glyphOffsets = make([]shape.GlyphOffset, size)
		}

		initialGlyphs := row.GlyphCount()

		for pos := idx; pos < mappedEnd; {
			simple, consumed, err := e.classifier.Classify(text[pos:mappedEnd], face, e.api.glyphIndices)
			if err != nil {
				return &FrameError{Op: "GetTextComplexity", Cause: err}
			}
			if consumed <= 0 {
				consumed = mappedEnd - pos
			}

			if simple {
				e.appendSimpleSpan(row, pos, consumed, columns)
			} else if err := e.shapeComplexSpan(row, text, pos, consumed, columns, face, scale); err != nil {
				return err
			}
			pos += consumed
		}

		if produced := row.GlyphCount(); produced > initialGlyphs {
			row.Mappings = append(row.Mappings, FontMapping{
				Face:       face,
				EmSize:     e.settings.Font.Get().SizeInDIP * scale,
				GlyphsFrom: initialGlyphs,
				GlyphsTo:   produced,
			})
		}
		idx = mappedEnd
	}

	// Decorations from the drawing attributes cover the flushed span.
	if f := e.api.paint.flags; f != 0 {
		from := columns[0]
		to := min(columns[len(columns)-1], e.settings.CellCount.X)
		if to > from {
			row.GridLines = append(row.GridLines, GridLineRange{
				Flags: f,
				Color: e.api.paint.fg,
				From:  from,
				To:    to,
			})
		}
	}
	return nil
}

// appendSimpleSpan emits one glyph per character. The glyph indices were
// already filled by the classifier; each advance is the distance in cells
// to the next distinct column, snapped to the cell width, so wide glyphs
// get their two cells and zero-width marks get none.
func (e *Engine) appendSimpleSpan(row *ShapedRow, pos, n int, columns []int) {
	cellWidth := e.p.Font.CellSizeDIPX

	for i := 0; i < n; i++ {
		col := columns[pos+i]

		// columns ends with a past-the-end entry, so the scan always
		// terminates inside the slice.
		next := pos + i + 1
		for next < len(columns)-1 && columns[next] == col {
			next++
		}
		advance := float64(columns[next]-col) * cellWidth

		row.GlyphIndices = append(row.GlyphIndices, e.api.glyphIndices[i])
		row.GlyphAdvances = append(row.GlyphAdvances, advance)
		row.GlyphOffsets = append(row.GlyphOffsets, shape.GlyphOffset{})
		row.Colors = append(row.Colors, e.foregroundAt(col))
	}
}

// shapeComplexSpan shapes text[pos:pos+n] with the shaping engine and
// appends the output. Advances are corrected per cluster: whatever the
// font's metrics produced, each cluster must occupy exactly the cells the
// terminal assigned to it, so the difference is added to the cluster's
// last glyph.
func (e *Engine) shapeComplexSpan(row *ShapedRow, text []rune, pos, n int, columns []int, face *shape.Face, scale float64) error {
	span := text[pos : pos+n]
	script := shape.DetectScript(span)
	rtl := spanIsRTL(span)
	emSize := e.settings.Font.Get().SizeInDIP * scale

	if len(e.api.clusterMap) < n+1 {
		e.api.clusterMap = make([]int, n+1)
	}

	bufs := &shape.Buffers{
		GlyphIndices: e.api.glyphIndices,
		Advances:     e.api.glyphAdvances,
		Offsets:      e.api.glyphOffsets,
		ClusterMap:   e.api.clusterMap,
	}

	var glyphCount int
	for attempt := 1; ; attempt++ {
		gc, err := e.shaper.Shape(span, face, emSize, script, rtl, bufs)
		if err == nil {
			glyphCount = gc
			break
		}
		if errors.Is(err, shape.ErrInsufficientBuffer) {
			if attempt >= shapingRetryLimit {
				return &FrameError{Op: "GetGlyphs", Cause: fmt.Errorf("glyph buffers still insufficient after %d attempts: %w", attempt, err)}
			}
			e.growGlyphBuffers(bufs)
			continue
		}
		var warn *shape.WarningError
		if errors.As(err, &warn) {
			e.warn(err)
			glyphCount = gc
			break
		}
		return &FrameError{Op: "GetGlyphs", Cause: err}
	}

	if glyphCount == 0 {
		return nil
	}

	cm := e.api.clusterMap
	advances := e.api.glyphAdvances
	cellWidth := e.p.Font.CellSizeDIPX

	// Walk cluster boundaries; cm[n] holds the glyph count, closing the
	// final cluster.
	clusterGlyph := cm[0]
	clusterPos := 0
	for i := 1; i <= n; i++ {
		if cm[i] == clusterGlyph {
			continue
		}

		col := columns[pos+clusterPos]
		nextCol := columns[pos+i]
		expected := float64(nextCol-col) * cellWidth
		actual := 0.0
		for g := clusterGlyph; g < cm[i]; g++ {
			actual += advances[g]
		}
		advances[cm[i]-1] += expected - actual

		fg := e.foregroundAt(col)
		for g := clusterGlyph; g < cm[i]; g++ {
			row.Colors = append(row.Colors, fg)
		}

		clusterGlyph = cm[i]
		clusterPos = i
	}

	row.GlyphIndices = append(row.GlyphIndices, e.api.glyphIndices[:glyphCount]...)
	row.GlyphAdvances = append(row.GlyphAdvances, advances[:glyphCount]...)
	row.GlyphOffsets = append(row.GlyphOffsets, e.api.glyphOffsets[:glyphCount]...)
	return nil
}

// growGlyphBuffers reallocates the shaping scratch buffers half again as
// large after an insufficient-buffer shaping attempt.
func (e *Engine) growGlyphBuffers(bufs *shape.Buffers) {
	size := growBuffer(len(e.api.glyphIndices))
	e.api.glyphIndices = make([]shape.GlyphID, size)
	e.api.glyphAdvances = make([]float64, size)
	e.api.glyphOffsets = make([]shape.GlyphOffset, size)
	bufs.GlyphIndices = e.api.glyphIndices
	bufs.Advances = e.api.glyphAdvances
	bufs.Offsets = e.api.glyphOffsets
}

// growBuffer returns n grown by half, panicking on overflow. Reaching the
// overflow point means gigabytes of glyph scratch, which only a broken
// shaper can request.
func growBuffer(n int) int {
	if n < 16 {
		return 16
	}
	grown := n + n/2
	if grown <= n {
		panic("termatlas: glyph buffer size overflow")
	}
	return grown
}

// foregroundAt reads the sRGB foreground recorded for a cell column. The
// past-the-end column of a line painted at the right edge falls back to
// the current brush.
func (e *Engine) foregroundAt(col int) uint32 {
	if col >= 0 && col < len(e.api.colorsForeground) {
		return e.api.colorsForeground[col]
	}
	return e.api.paint.fg
}

// styleForAttrs translates the bold/italic attribute pair into the font
// style used for fallback mapping and face interning.
func (e *Engine) styleForAttrs(a attrKey) shape.Style {
	f := e.settings.Font.Get()
	weight := f.Weight
	if weight <= 0 {
		weight = 400
	}
	if a.bold {
		weight = 700
	}

	italicIdx, boldIdx := 0, 0
	if a.italic {
		italicIdx = 1
	}
	if a.bold {
		boldIdx = 1
	}

	return shape.Style{
		Weight: weight,
		Italic: a.italic,
		Axes:   e.p.Font.AxisVariants[italicIdx][boldIdx],
	}
}

// spanIsRTL reports whether the span's first bidi run is right-to-left.
// Runs of mixed direction inside one complex span resolve to the leading
// run's direction; the terminal feeds lines in logical order either way.
func spanIsRTL(span []rune) bool {
	var p bidi.Paragraph
	p.SetString(string(span))
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return false
	}
	run := ordering.Run(0)
	return run.Direction() == bidi.RightToLeft
}
