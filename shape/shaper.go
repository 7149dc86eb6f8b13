package shape

import "github.com/go-text/typesetting/language"

// GlyphOffset is a glyph's positional adjustment relative to the pen, in
// device-independent pixels.
type GlyphOffset struct {
	// X shifts the glyph along the run direction.
	X float64
	// Y shifts the glyph above the baseline (positive is up).
	Y float64
}

// Buffers holds the caller-owned output buffers for one Shape call.
// Shapers write into them without reallocating; when a run produces more
// glyphs than the buffers hold, Shape fails with ErrInsufficientBuffer and
// the caller grows the buffers geometrically before retrying.
type Buffers struct {
	// GlyphIndices, Advances and Offsets are parallel per-glyph arrays.
	GlyphIndices []GlyphID
	Advances     []float64
	Offsets      []GlyphOffset

	// ClusterMap maps each input rune to the index of the first glyph of
	// its cluster. It needs room for len(text)+1 entries; Shape writes the
	// produced glyph count into ClusterMap[len(text)].
	ClusterMap []int
}

// GlyphCap returns the per-glyph capacity of the buffers.
func (b *Buffers) GlyphCap() int { return len(b.GlyphIndices) }

// Shaper is the shaping-engine collaborator. It converts one
// uniformly-mapped text span into glyphs with advances and offsets.
//
// Glyphs are produced in logical (reading) order regardless of direction;
// for RTL spans implementations reorder their output accordingly. The
// cluster map is non-decreasing.
type Shaper interface {
	// Shape shapes text with the given face at emSize device-independent
	// pixels. It returns the number of glyphs written, or
	// ErrInsufficientBuffer when bufs cannot hold the output.
	Shape(text []rune, face *Face, emSize float64, script language.Script, rtl bool, bufs *Buffers) (int, error)
}

// Classifier is the text-complexity collaborator. It decides whether the
// leading portion of a text span can use 1:1 character-to-glyph mapping.
type Classifier interface {
	// Classify examines text and returns whether the leading run is simple
	// and how many runes it spans. For simple runs it also writes the
	// nominal glyph of each rune into glyphs, which must hold at least
	// len(text) entries.
	Classify(text []rune, face *Face, glyphs []GlyphID) (simple bool, consumed int, err error)
}

// Mapper is the font-fallback collaborator. It maps the next unmapped
// character range to a concrete font face.
type Mapper interface {
	// Map inspects text starting at pos and returns the length of the
	// contiguous range it could map, a scale factor to apply to the font
	// size for degraded substitutions, and the mapped face. A nil face with
	// a non-zero length means the range has no coverage anywhere and should
	// be skipped.
	Map(text []rune, pos int, style Style) (mappedLength int, scale float64, face *Face, err error)
}
