package termatlas

// Size is a width/height pair in cells or pixels, depending on context.
type Size struct {
	X int
	Y int
}

// Point is a cell or pixel coordinate.
type Point struct {
	X int
	Y int
}

// Rect is a half-open rectangle [Left,Right) x [Top,Bottom).
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Empty reports whether the rectangle contains no cells.
func (r Rect) Empty() bool {
	return r.Left >= r.Right || r.Top >= r.Bottom
}

// Union returns the smallest rectangle containing both r and o.
// An empty rectangle acts as the identity.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max(r.Left, o.Left),
		Top:    max(r.Top, o.Top),
		Right:  min(r.Right, o.Right),
		Bottom: min(r.Bottom, o.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// rowRange is a half-open range of row indices [From, To).
type rowRange struct {
	From int
	To   int
}

func (r rowRange) empty() bool { return r.From >= r.To }

// widen extends the range to include [from, to). An empty range is replaced.
func (r rowRange) widen(from, to int) rowRange {
	if r.empty() {
		return rowRange{From: from, To: to}
	}
	return rowRange{From: min(r.From, from), To: max(r.To, to)}
}
