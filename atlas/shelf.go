package atlas

// ShelfPacker packs rectangles into horizontal shelves. Each shelf has a
// fixed height set by the tallest item placed on it; new items go
// left-to-right on an existing shelf with enough height, or open a new
// shelf below. Simple and fast for glyph-sized rectangles of similar
// heights.
type ShelfPacker struct {
	width   int
	height  int
	padding int
	shelves []shelf
	used    int
}

type shelf struct {
	y      int // top of the shelf
	height int // tallest item so far
	x      int // next free slot
}

// NewShelfPacker creates a packer for the given atlas dimensions.
func NewShelfPacker(width, height, padding int) *ShelfPacker {
	return &ShelfPacker{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]shelf, 0, 16),
	}
}

// Pack finds space for a w×h rectangle and returns its position. ok is
// false when the atlas is exhausted; growing the atlas and retrying is the
// caller's responsibility.
func (p *ShelfPacker) Pack(w, h int) (x, y int, ok bool) {
	paddedW := w + p.padding
	paddedH := h + p.padding

	for i := range p.shelves {
		s := &p.shelves[i]

		if s.x+paddedW > p.width {
			continue
		}

		if h > s.height {
			// Taller than the shelf. The last shelf may still be extended
			// downward if there is room below it.
			if i == len(p.shelves)-1 && s.y+paddedH <= p.height {
				s.height = h
				x, y = s.x, s.y
				s.x += paddedW
				p.used += w * h
				return x, y, true
			}
			continue
		}

		x, y = s.x, s.y
		s.x += paddedW
		p.used += w * h
		return x, y, true
	}

	newY := 0
	if len(p.shelves) > 0 {
		last := p.shelves[len(p.shelves)-1]
		newY = last.y + last.height + p.padding
	}
	if newY+paddedH > p.height {
		return -1, -1, false
	}

	p.shelves = append(p.shelves, shelf{y: newY, height: h, x: paddedW})
	p.used += w * h
	return 0, newY, true
}

// Reset clears all allocations, keeping capacity.
func (p *ShelfPacker) Reset() {
	p.shelves = p.shelves[:0]
	p.used = 0
}

// Resize resets the packer for a new atlas size.
func (p *ShelfPacker) Resize(width, height int) {
	p.width = width
	p.height = height
	p.Reset()
}

// Utilization returns the fraction of atlas area in use (0 to 1).
func (p *ShelfPacker) Utilization() float64 {
	if p.width <= 0 || p.height <= 0 {
		return 0
	}
	return float64(p.used) / float64(p.width*p.height)
}
