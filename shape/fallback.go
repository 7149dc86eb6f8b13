package shape

import "unicode"

// SourceVariant registers one font file as a styled variant of a family,
// e.g. the bold or italic cut.
type SourceVariant struct {
	Source *FontSource

	// Weight and Italic describe the cut. The mapper picks the variant
	// closest to the requested style.
	Weight int
	Italic bool
}

// ListMapper implements Mapper over an ordered font list: a base family
// (possibly with styled variants) followed by fallback fonts. For each
// unmapped position it picks the first font covering the rune and extends
// the mapping while that font keeps covering and no higher-priority font
// takes over.
//
// ListMapper is safe for concurrent use after construction.
type ListMapper struct {
	base      []SourceVariant
	fallbacks []*FontSource
}

// NewListMapper builds a mapper from the base family variants and fallback
// fonts, in priority order.
func NewListMapper(base []SourceVariant, fallbacks ...*FontSource) (*ListMapper, error) {
	if len(base) == 0 {
		return nil, ErrNoFaces
	}
	return &ListMapper{base: base, fallbacks: fallbacks}, nil
}

// Map implements Mapper.
func (m *ListMapper) Map(text []rune, pos int, style Style) (int, float64, *Face, error) {
	if pos >= len(text) {
		return 0, 1, nil, nil
	}

	src, scale := m.sourceFor(text[pos], style)
	if src == nil {
		// No coverage anywhere. Consume the whole uncovered run so the
		// caller can skip it in one step.
		n := 1
		for pos+n < len(text) {
			if s, _ := m.sourceFor(text[pos+n], style); s != nil {
				break
			}
			n++
		}
		return n, 1, nil, nil
	}

	n := 1
	for pos+n < len(text) {
		r := text[pos+n]
		next, _ := m.sourceFor(r, style)
		if next != src && !attachesToPrevious(r) {
			break
		}
		n++
	}
	return n, scale, src.Face(style), nil
}

// sourceFor returns the highest-priority source covering r, with the scale
// factor for degraded substitution metrics. Fallback fonts whose units per
// em differ from the base are used at scale 1; metric correction happens at
// the cell grid anyway.
func (m *ListMapper) sourceFor(r rune, style Style) (*FontSource, float64) {
	base := m.pickVariant(style)
	if base.HasGlyph(r) {
		return base, 1
	}
	// Whitespace renders as empty cells with any font.
	if unicode.IsSpace(r) {
		return base, 1
	}
	for _, fb := range m.fallbacks {
		if fb.HasGlyph(r) {
			return fb, 1
		}
	}
	return nil, 1
}

// pickVariant chooses the base variant closest to the requested style.
// Italic match outranks weight distance, mirroring common fallback rules.
func (m *ListMapper) pickVariant(style Style) *FontSource {
	best := m.base[0]
	bestCost := variantCost(best, style)
	for _, v := range m.base[1:] {
		if c := variantCost(v, style); c < bestCost {
			best, bestCost = v, c
		}
	}
	return best.Source
}

func variantCost(v SourceVariant, style Style) int {
	cost := v.Weight - style.Weight
	if cost < 0 {
		cost = -cost
	}
	if v.Italic != style.Italic {
		cost += 10000
	}
	return cost
}

// attachesToPrevious reports whether r must stay in the previous font's
// mapping because it shapes as part of the preceding cluster.
func attachesToPrevious(r rune) bool {
	return unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) ||
		r == 0x200C || r == 0x200D || (r >= 0xFE00 && r <= 0xFE0F)
}
