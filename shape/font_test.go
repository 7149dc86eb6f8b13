package shape

import (
	"errors"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// testSource creates a font source from the embedded Go Regular font.
func testSource(t *testing.T) *FontSource {
	t.Helper()

	source, err := NewFontSource(goregular.TTF)
	if err != nil {
		t.Fatalf("failed to create font source: %v", err)
	}
	return source
}

// TestNewFontSourceEmpty tests that empty font data is rejected.
func TestNewFontSourceEmpty(t *testing.T) {
	if _, err := NewFontSource(nil); !errors.Is(err, ErrEmptyFontData) {
		t.Errorf("NewFontSource(nil) error = %v, want ErrEmptyFontData", err)
	}
}

// TestNewFontSourceGarbage tests that non-font data is rejected.
func TestNewFontSourceGarbage(t *testing.T) {
	if _, err := NewFontSource([]byte("not a font")); err == nil {
		t.Error("NewFontSource(garbage) succeeded, want error")
	}
}

// TestFontSourceName tests that the family name is read from the font.
func TestFontSourceName(t *testing.T) {
	source := testSource(t)
	if source.Name() == "" {
		t.Error("Name() is empty")
	}
}

// TestFontSourceUpem tests the units-per-em value.
func TestFontSourceUpem(t *testing.T) {
	source := testSource(t)
	if upem := source.Upem(); upem <= 0 {
		t.Errorf("Upem() = %d, want > 0", upem)
	}
}

// TestHasGlyph tests glyph coverage queries.
func TestHasGlyph(t *testing.T) {
	source := testSource(t)

	if !source.HasGlyph('A') {
		t.Error("HasGlyph('A') = false, want true")
	}
	if source.HasGlyph('一') {
		t.Error("HasGlyph(U+4E00) = true, want false for Go Regular")
	}
}

// TestFaceInterning tests that equal styles return the identical face and
// distinct styles return distinct faces.
func TestFaceInterning(t *testing.T) {
	source := testSource(t)

	a := source.Face(Style{Weight: 400})
	b := source.Face(Style{Weight: 400})
	if a != b {
		t.Error("same style returned distinct faces")
	}

	c := source.Face(Style{Weight: 700})
	if a == c {
		t.Error("distinct weights returned the same face")
	}
	if a.ID() == c.ID() {
		t.Error("distinct faces share an ID")
	}
}

// TestFaceNominalGlyph tests nominal glyph lookup through a face.
func TestFaceNominalGlyph(t *testing.T) {
	face := testSource(t).Face(Style{Weight: 400})

	gid, ok := face.NominalGlyph('A')
	if !ok {
		t.Fatal("NominalGlyph('A') not found")
	}
	if gid == 0 {
		t.Error("NominalGlyph('A') = 0, want non-zero")
	}

	if _, ok := face.NominalGlyph('一'); ok {
		t.Error("NominalGlyph(U+4E00) found, want missing")
	}
}
