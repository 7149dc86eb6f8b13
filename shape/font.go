package shape

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/sfnt"
)

// GlyphID is a glyph index within a font. Assigned by the font file.
type GlyphID uint16

// faceID is a process-wide counter handing out stable face identities.
var faceID atomic.Uint64

// FontSource is a loaded font file. One FontSource hands out Face values;
// faces for equal styles are interned so their pointer identity is stable
// for the lifetime of the source, which is what glyph caches key on.
//
// FontSource is heavyweight and should be shared across the application.
// It is safe for concurrent use and must not be copied after creation.
type FontSource struct {
	// addr is used for copy protection. It must point to the FontSource itself.
	addr *FontSource

	data []byte
	otf  *font.Font // parsed font for shaping; read-only and concurrency-safe
	meta *font.Face // unscaled face for cmap queries; never mutated
	sf   *sfnt.Font // parsed font for software glyph rasterization
	name string
	upem int

	mu    sync.Mutex
	faces map[styleKey]*Face
}

// NewFontSource parses font data (TTF or OTF). The data slice is copied
// internally and can be reused after this call.
func NewFontSource(data []byte) (*FontSource, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	otFace, err := font.ParseTTF(bytes.NewReader(dataCopy))
	if err != nil {
		return nil, fmt.Errorf("shape: parsing font: %w", err)
	}

	sfFont, err := sfnt.Parse(dataCopy)
	if err != nil {
		return nil, fmt.Errorf("shape: parsing font outlines: %w", err)
	}

	s := &FontSource{
		data:  dataCopy,
		otf:   otFace.Font,
		meta:  otFace,
		sf:    sfFont,
		upem:  int(otFace.Upem()),
		faces: make(map[styleKey]*Face),
	}
	s.addr = s

	if name, err := sfFont.Name(nil, sfnt.NameIDFamily); err == nil {
		s.name = name
	}

	return s, nil
}

// NewFontSourceFromFile loads a FontSource from a font file path.
func NewFontSourceFromFile(path string) (*FontSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shape: reading font file: %w", err)
	}
	return NewFontSource(data)
}

// Name returns the font family name.
func (s *FontSource) Name() string {
	s.copyCheck()
	return s.name
}

// Upem returns the font's design units per em.
func (s *FontSource) Upem() int {
	s.copyCheck()
	return s.upem
}

// HasGlyph reports whether the font has a glyph for the given rune.
func (s *FontSource) HasGlyph(r rune) bool {
	s.copyCheck()
	_, ok := s.meta.NominalGlyph(r)
	return ok
}

// Face returns the face of this source for the given style. Calling Face
// twice with an equal style returns the same *Face, so the pointer can be
// used as a cache key with a lifetime tied to the source.
func (s *FontSource) Face(style Style) *Face {
	if s == nil {
		panic("shape: FontSource is nil")
	}
	s.copyCheck()

	key := style.key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.faces[key]; ok {
		return f
	}
	f := &Face{
		id:     faceID.Add(1),
		source: s,
		style:  style,
	}
	s.faces[key] = f
	return f
}

// copyCheck panics if FontSource was copied by value.
func (s *FontSource) copyCheck() {
	if s.addr != s {
		panic("shape: FontSource must not be copied by value")
	}
}

// Style carries the attributes a face is resolved for.
type Style struct {
	// Weight is a CSS-style font weight (400 regular, 700 bold).
	Weight int

	// Italic requests an italic or obliqued face.
	Italic bool

	// Axes are variable-font axis values. They participate in face
	// identity; mappers use them to pick among registered font variants.
	Axes []Axis
}

// Axis is one variable-font axis value.
type Axis struct {
	Tag   string
	Value float32
}

// styleKey is a comparable digest of a Style for face interning.
type styleKey struct {
	weight int
	italic bool
	axes   string
}

func (st Style) key() styleKey {
	k := styleKey{weight: st.Weight, italic: st.Italic}
	for _, a := range st.Axes {
		k.axes += a.Tag + ":" + fmt.Sprintf("%g", a.Value) + ";"
	}
	return k
}

// Face is a font face handle with a stable identity. Faces are interned by
// their FontSource; two lookups with the same source and style yield the
// same pointer. Glyph caches hold the pointer, which keeps the source alive
// for as long as the cache entry exists.
type Face struct {
	id     uint64
	source *FontSource
	style  Style
}

// ID returns the face's unique identity, suitable for hashing.
func (f *Face) ID() uint64 { return f.id }

// Source returns the FontSource this face belongs to.
func (f *Face) Source() *FontSource { return f.source }

// Style returns the style the face was resolved for.
func (f *Face) Style() Style { return f.style }

// NominalGlyph returns the glyph for a rune, if the font covers it.
func (f *Face) NominalGlyph(r rune) (GlyphID, bool) {
	gid, ok := f.source.meta.NominalGlyph(r)
	return GlyphID(gid), ok
}

// shapingFace returns a fresh go-text font.Face for one shaping call.
// font.Face is not safe for concurrent use, so it is never shared; wrapping
// the thread-safe *font.Font is cheap.
func (f *Face) shapingFace() *font.Face {
	return font.NewFace(f.source.otf)
}

// SfntFont returns the parsed outline font for software rasterization.
func (f *Face) SfntFont() *sfnt.Font { return f.source.sf }
