// Package atlas deduplicates glyph rasterizations. A Map associates
// (font face, glyph index) keys with packed atlas rectangles using open
// addressing, and a ShelfPacker allocates the rectangles inside a growable
// single-channel atlas image.
package atlas
