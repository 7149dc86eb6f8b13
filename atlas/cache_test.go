package atlas

import (
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/termatlas/shape"
)

func testFace(t *testing.T) *shape.Face {
	t.Helper()

	source, err := shape.NewFontSource(goregular.TTF)
	if err != nil {
		t.Fatalf("failed to create font source: %v", err)
	}
	return source.Face(shape.Style{Weight: 400})
}

// TestMapFindOrInsert tests that a key is inserted once and found after.
func TestMapFindOrInsert(t *testing.T) {
	m := NewMap()
	face := testFace(t)

	e1, inserted := m.FindOrInsert(face, 42)
	if !inserted {
		t.Fatal("first lookup did not insert")
	}
	if e1.Rasterized() {
		t.Error("fresh entry reports rasterized")
	}
	e1.W, e1.H = 3, 5

	e2, inserted := m.FindOrInsert(face, 42)
	if inserted {
		t.Fatal("second lookup inserted again")
	}
	if e2 != e1 {
		t.Error("second lookup returned a different entry")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

// TestMapDistinctKeys tests that faces and glyph indices both participate
// in the key.
func TestMapDistinctKeys(t *testing.T) {
	m := NewMap()
	source, err := shape.NewFontSource(goregular.TTF)
	if err != nil {
		t.Fatalf("failed to create font source: %v", err)
	}
	regular := source.Face(shape.Style{Weight: 400})
	bold := source.Face(shape.Style{Weight: 700})

	m.FindOrInsert(regular, 1)
	if _, inserted := m.FindOrInsert(regular, 2); !inserted {
		t.Error("distinct glyph index found existing entry")
	}
	if _, inserted := m.FindOrInsert(bold, 1); !inserted {
		t.Error("distinct face found existing entry")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

// TestMapGrowthKeepsEntries tests that exceeding the load threshold grows
// the table without losing any entry or its rasterization data.
func TestMapGrowthKeepsEntries(t *testing.T) {
	m := NewMap()
	face := testFace(t)

	const count = 300 // well past the initial 128-entry threshold
	for i := 0; i < count; i++ {
		e, inserted := m.FindOrInsert(face, shape.GlyphID(i))
		if !inserted {
			t.Fatalf("glyph %d not inserted", i)
		}
		e.W = uint16(i + 1)
	}

	if m.Len() != count {
		t.Fatalf("Len() = %d, want %d", m.Len(), count)
	}
	for i := 0; i < count; i++ {
		e, inserted := m.FindOrInsert(face, shape.GlyphID(i))
		if inserted {
			t.Fatalf("glyph %d reinserted after growth", i)
		}
		if e.W != uint16(i+1) {
			t.Fatalf("glyph %d lost its data: W = %d, want %d", i, e.W, i+1)
		}
	}
}

// TestMapClear tests that Clear empties the table.
func TestMapClear(t *testing.T) {
	m := NewMap()
	face := testFace(t)

	m.FindOrInsert(face, 7)
	m.Clear()

	if m.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", m.Len())
	}
	if _, inserted := m.FindOrInsert(face, 7); !inserted {
		t.Error("key survived Clear")
	}
}
