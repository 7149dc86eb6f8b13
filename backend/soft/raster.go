package soft

import (
	"errors"
	"image"
	"image/draw"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gogpu/termatlas"
	"github.com/gogpu/termatlas/atlas"
)

// rasterizeGlyph loads the glyph outline, scan-converts it into an alpha
// mask and packs the mask into the atlas, filling in the entry's placement
// fields. Whitespace and other empty glyphs leave the entry at zero size.
func (b *Backend) rasterizeGlyph(e *atlas.Entry, emSizePx float64, aa termatlas.AntialiasingMode) error {
	f := e.Face().SfntFont()
	ppem := fixed.Int26_6(emSizePx*64 + 0.5)

	segments, err := f.LoadGlyph(&b.sfntBuf, sfnt.GlyphIndex(e.GlyphIndex()), ppem, nil)
	if err != nil {
		if errors.Is(err, sfnt.ErrNotFound) {
			return nil
		}
		return err
	}
	if len(segments) == 0 {
		return nil
	}

	minX, minY, maxX, maxY := segmentBounds(segments)
	w := maxX - minX
	h := maxY - minY
	if w <= 0 || h <= 0 {
		return nil
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	dx := float32(minX)
	dy := float32(minY)
	for _, seg := range segments {
		p0 := segPoint(seg.Args[0], dx, dy)
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			z.MoveTo(p0[0], p0[1])
		case sfnt.SegmentOpLineTo:
			z.LineTo(p0[0], p0[1])
		case sfnt.SegmentOpQuadTo:
			p1 := segPoint(seg.Args[1], dx, dy)
			z.QuadTo(p0[0], p0[1], p1[0], p1[1])
		case sfnt.SegmentOpCubeTo:
			p1 := segPoint(seg.Args[1], dx, dy)
			p2 := segPoint(seg.Args[2], dx, dy)
			z.CubeTo(p0[0], p0[1], p1[0], p1[1], p2[0], p2[1])
		}
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	if aa == termatlas.AntialiasNone {
		for i, v := range mask.Pix {
			if v >= 0x80 {
				mask.Pix[i] = 0xff
			} else {
				mask.Pix[i] = 0
			}
		}
	}

	x, y, ok := b.atlas.Pack(w, h)
	if !ok {
		return errAtlasFull
	}
	b.atlas.Blit(x, y, w, h, mask.Pix, mask.Stride)

	e.X = uint16(x)
	e.Y = uint16(y)
	e.W = uint16(w)
	e.H = uint16(h)
	e.OffsetX = int16(minX)
	e.OffsetY = int16(minY)
	return nil
}

// segmentBounds returns the integer pixel bounding box of the outline,
// conservatively including curve control points.
func segmentBounds(segments sfnt.Segments) (minX, minY, maxX, maxY int) {
	first := true
	var lo, hi fixed.Point26_6
	for _, seg := range segments {
		argCount := 1
		switch seg.Op {
		case sfnt.SegmentOpQuadTo:
			argCount = 2
		case sfnt.SegmentOpCubeTo:
			argCount = 3
		}
		for i := 0; i < argCount; i++ {
			p := seg.Args[i]
			if first {
				lo, hi = p, p
				first = false
				continue
			}
			lo.X = min(lo.X, p.X)
			lo.Y = min(lo.Y, p.Y)
			hi.X = max(hi.X, p.X)
			hi.Y = max(hi.Y, p.Y)
		}
	}
	return int(lo.X >> 6), int(lo.Y >> 6), int(hi.X+63) >> 6, int(hi.Y+63) >> 6
}

// segPoint converts a fixed-point segment argument to rasterizer
// coordinates, translated so the bounding box starts at the origin.
func segPoint(p fixed.Point26_6, dx, dy float32) [2]float32 {
	return [2]float32{float32(p.X)/64 - dx, float32(p.Y)/64 - dy}
}

// fillRect writes an opaque color into the backbuffer, clipped to it.
func (b *Backend) fillRect(x, y, w, h int, color uint32) {
	x0, y0, x1, y1 := b.clip(x, y, w, h)
	cr := byte(color)
	cg := byte(color >> 8)
	cb := byte(color >> 16)
	for py := y0; py < y1; py++ {
		i := (py*b.size.X + x0) * 4
		for px := x0; px < x1; px++ {
			b.buf[i+0] = cb
			b.buf[i+1] = cg
			b.buf[i+2] = cr
			b.buf[i+3] = 0xff
			i += 4
		}
	}
}

// blendRect alpha-blends a translucent color over the backbuffer.
func (b *Backend) blendRect(x, y, w, h int, color uint32) {
	x0, y0, x1, y1 := b.clip(x, y, w, h)
	a := color >> 24
	if a == 0 {
		return
	}
	cr := color & 0xff
	cg := (color >> 8) & 0xff
	cb := (color >> 16) & 0xff
	for py := y0; py < y1; py++ {
		i := (py*b.size.X + x0) * 4
		for px := x0; px < x1; px++ {
			b.buf[i+0] = blend8(b.buf[i+0], byte(cb), a)
			b.buf[i+1] = blend8(b.buf[i+1], byte(cg), a)
			b.buf[i+2] = blend8(b.buf[i+2], byte(cr), a)
			b.buf[i+3] = 0xff
			i += 4
		}
	}
}

// blendGlyph composites an atlas alpha mask at (x, y) with the given text
// color.
func (b *Backend) blendGlyph(e *atlas.Entry, x, y int, color uint32) {
	x0, y0, x1, y1 := b.clip(x, y, int(e.W), int(e.H))
	cr := byte(color)
	cg := byte(color >> 8)
	cb := byte(color >> 16)
	ca := color >> 24
	pix := b.atlas.Pixels()
	stride := b.atlas.Size()

	for py := y0; py < y1; py++ {
		src := (int(e.Y)+py-y)*stride + int(e.X) + (x0 - x)
		i := (py*b.size.X + x0) * 4
		for px := x0; px < x1; px++ {
			cov := uint32(pix[src]) * ca / 0xff
			if cov != 0 {
				b.buf[i+0] = blend8(b.buf[i+0], cb, cov)
				b.buf[i+1] = blend8(b.buf[i+1], cg, cov)
				b.buf[i+2] = blend8(b.buf[i+2], cr, cov)
				b.buf[i+3] = 0xff
			}
			src++
			i += 4
		}
	}
}

// invertRect inverts the color channels under the cursor.
func (b *Backend) invertRect(x, y, w, h int) {
	x0, y0, x1, y1 := b.clip(x, y, w, h)
	for py := y0; py < y1; py++ {
		i := (py*b.size.X + x0) * 4
		for px := x0; px < x1; px++ {
			b.buf[i+0] ^= 0xff
			b.buf[i+1] ^= 0xff
			b.buf[i+2] ^= 0xff
			i += 4
		}
	}
}

// clip intersects a rectangle with the backbuffer bounds.
func (b *Backend) clip(x, y, w, h int) (x0, y0, x1, y1 int) {
	x0 = max(x, 0)
	y0 = max(y, 0)
	x1 = min(x+w, b.size.X)
	y1 = min(y+h, b.size.Y)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return
}

// blend8 blends src over dst with 8-bit alpha.
func blend8(dst, src byte, alpha uint32) byte {
	return byte((uint32(src)*alpha + uint32(dst)*(0xff-alpha)) / 0xff)
}
