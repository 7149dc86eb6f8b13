package shape

import (
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// GoTextShaper implements Shaper on go-text/typesetting's HarfBuzz port.
// It supports ligatures, kerning, contextual alternates, right-to-left text
// and complex scripts.
//
// GoTextShaper is safe for concurrent use. HarfbuzzShaper instances carry
// internal mutable state and are pooled; font.Face values are created per
// call from the thread-safe parsed font.
type GoTextShaper struct {
	pool sync.Pool
}

// NewGoTextShaper creates a shaper backed by go-text/typesetting.
func NewGoTextShaper() *GoTextShaper {
	return &GoTextShaper{
		pool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
	}
}

// Shape implements Shaper.
func (s *GoTextShaper) Shape(text []rune, face *Face, emSize float64, script language.Script, rtl bool, bufs *Buffers) (int, error) {
	if len(text) == 0 {
		return 0, nil
	}
	if len(bufs.ClusterMap) < len(text)+1 {
		return 0, ErrInsufficientBuffer
	}

	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}

	input := shaping.Input{
		Text:      text,
		RunStart:  0,
		RunEnd:    len(text),
		Direction: dir,
		Face:      face.shapingFace(),
		Size:      fixed.Int26_6(emSize * 64),
		Script:    script,
		Language:  language.NewLanguage("en"),
	}

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.pool.Put(hb)

	glyphs := output.Glyphs
	if len(glyphs) > bufs.GlyphCap() {
		return 0, ErrInsufficientBuffer
	}

	// HarfBuzz emits RTL glyphs in visual order; flip them back to logical
	// order so cluster indices ascend and the cluster map stays monotonic.
	if rtl {
		for i, j := 0, len(glyphs)-1; i < j; i, j = i+1, j-1 {
			glyphs[i], glyphs[j] = glyphs[j], glyphs[i]
		}
	}

	for i, g := range glyphs {
		bufs.GlyphIndices[i] = GlyphID(g.GlyphID)
		bufs.Advances[i] = fixedToFloat(g.Advance)
		bufs.Offsets[i] = GlyphOffset{
			X: fixedToFloat(g.XOffset),
			Y: fixedToFloat(g.YOffset),
		}
	}

	buildClusterMap(glyphs, len(text), bufs.ClusterMap)
	return len(glyphs), nil
}

// buildClusterMap fills cm[0:textLen+1] so that cm[i] is the index of the
// first glyph of the cluster containing rune i, and cm[textLen] is the
// glyph count. Glyphs must be in logical order.
func buildClusterMap(glyphs []shaping.Glyph, textLen int, cm []int) {
	for i := 0; i <= textLen; i++ {
		cm[i] = len(glyphs)
	}
	for gi := 0; gi < len(glyphs); {
		c := glyphs[gi].TextIndex()
		gj := gi + 1
		for gj < len(glyphs) && glyphs[gj].TextIndex() == c {
			gj++
		}
		nextC := textLen
		if gj < len(glyphs) {
			nextC = glyphs[gj].TextIndex()
		}
		for r := c; r < nextC && r < textLen; r++ {
			cm[r] = gi
		}
		gi = gj
	}
	// Runes before the first reported cluster map to the first glyph.
	for i := 0; i < textLen && cm[i] == len(glyphs); i++ {
		cm[i] = 0
	}
}

// fixedToFloat converts a fixed.Int26_6 value to float64.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
