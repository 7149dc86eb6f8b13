package atlas

import (
	"github.com/gogpu/termatlas/shape"
)

// Entry is one cached glyph rasterization. X/Y/W/H locate the glyph's
// pixels in the atlas; Offset positions the rectangle relative to the
// glyph's baseline origin.
//
// A fresh entry has zero metrics; the rasterization backend fills them in
// after packing and drawing the glyph.
type Entry struct {
	face       *shape.Face
	glyphIndex shape.GlyphID

	X, Y, W, H       uint16
	OffsetX, OffsetY int16
	ColorGlyph       bool
}

// Face returns the font face of the entry's key. The map holds the face
// pointer, keeping the font source alive for as long as the entry exists.
func (e *Entry) Face() *shape.Face { return e.face }

// GlyphIndex returns the glyph index of the entry's key.
func (e *Entry) GlyphIndex() shape.GlyphID { return e.glyphIndex }

// Rasterized reports whether the entry's metrics have been filled in.
func (e *Entry) Rasterized() bool { return e.W != 0 || e.H != 0 || e.ColorGlyph }

// initialMapSize is the initial table size. Must be a power of two.
const initialMapSize = 256

// Map is an open-addressing hash map from (font face, glyph index) to
// atlas entries, probed linearly over a power-of-two table. It resizes at
// ~50% load by rehashing every entry into a table twice the size; entries
// are never dropped.
//
// Entry pointers are stable between resizes: repeated lookups of a live key
// return the same *Entry until a resize rebuilds the table. Callers that
// hold entry pointers across inserts must account for that.
//
// Map is confined to the presenter; it is not safe for concurrent use.
type Map struct {
	entries  []Entry
	mask     uint64
	capacity int
	size     int
}

// NewMap returns an empty map with the default initial table size.
func NewMap() *Map {
	m := &Map{}
	m.init(initialMapSize)
	return m
}

func (m *Map) init(tableSize int) {
	m.entries = make([]Entry, tableSize)
	m.mask = uint64(tableSize - 1)
	m.capacity = tableSize / 2
	m.size = 0
}

// Len returns the number of live entries.
func (m *Map) Len() int { return m.size }

// FindOrInsert returns the entry for the key, inserting an unrasterized
// placeholder if the key is new. The second result reports whether an
// insert happened.
func (m *Map) FindOrInsert(face *shape.Face, glyphIndex shape.GlyphID) (*Entry, bool) {
	hash := hashKey(face, glyphIndex)

	for i := hash; ; i++ {
		entry := &m.entries[i&m.mask]
		if entry.face == face && entry.glyphIndex == glyphIndex {
			return entry, false
		}
		if entry.face == nil {
			return m.insert(face, glyphIndex, hash), true
		}
	}
}

func (m *Map) insert(face *shape.Face, glyphIndex shape.GlyphID, hash uint64) *Entry {
	if m.size >= m.capacity {
		m.grow()
	}
	m.size++

	for i := hash; ; i++ {
		entry := &m.entries[i&m.mask]
		if entry.face == nil {
			entry.face = face
			entry.glyphIndex = glyphIndex
			return entry
		}
	}
}

// grow doubles the table and reinserts every entry at its recomputed slot.
func (m *Map) grow() {
	newSize := len(m.entries) << 1
	if newSize <= 0 || newSize >= 1<<31 {
		panic("atlas: glyph cache table size overflow")
	}
	newMask := uint64(newSize - 1)
	newEntries := make([]Entry, newSize)

	for i := range m.entries {
		old := &m.entries[i]
		if old.face == nil {
			continue
		}
		hash := hashKey(old.face, old.glyphIndex)
		for j := hash; ; j++ {
			slot := &newEntries[j&newMask]
			if slot.face == nil {
				*slot = *old
				break
			}
		}
	}

	m.entries = newEntries
	m.mask = newMask
	m.capacity = newSize / 2
}

// Clear releases all held font-face references and empties the table.
// Invoked only on catastrophic backend loss or an atlas rebuild, never
// during normal operation.
func (m *Map) Clear() {
	m.init(initialMapSize)
}

// hashKey mixes the face identity and glyph index. The face's uint64 ID is
// stable for its lifetime, unlike its pointer, so rehashing after a GC
// cycle stays consistent.
func hashKey(face *shape.Face, glyphIndex shape.GlyphID) uint64 {
	h := face.ID()*0x9E3779B97F4A7C15 + uint64(glyphIndex)
	h ^= h >> 32
	h *= 0xD6E8FEB86659FD93
	h ^= h >> 32
	return h
}
