package termatlas

import "testing"

// TestRectEmpty tests emptiness of degenerate rectangles.
func TestRectEmpty(t *testing.T) {
	tests := []struct {
		name string
		r    Rect
		want bool
	}{
		{"zero", Rect{}, true},
		{"line", Rect{Left: 0, Top: 2, Right: 5, Bottom: 2}, true},
		{"inverted", Rect{Left: 5, Top: 0, Right: 2, Bottom: 3}, true},
		{"cell", Rect{Left: 1, Top: 1, Right: 2, Bottom: 2}, false},
	}
	for _, tt := range tests {
		if got := tt.r.Empty(); got != tt.want {
			t.Errorf("%s: Empty() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// TestRectUnion tests that union treats empty rectangles as identity.
func TestRectUnion(t *testing.T) {
	a := Rect{Left: 1, Top: 1, Right: 3, Bottom: 3}
	b := Rect{Left: 2, Top: 0, Right: 5, Bottom: 2}

	if got := a.Union(b); got != (Rect{Left: 1, Top: 0, Right: 5, Bottom: 3}) {
		t.Errorf("Union = %+v", got)
	}
	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty.Union(a) = %+v, want a", got)
	}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("a.Union(empty) = %+v, want a", got)
	}
}

// TestRectIntersect tests intersection including the disjoint case.
func TestRectIntersect(t *testing.T) {
	a := Rect{Left: 0, Top: 0, Right: 4, Bottom: 4}
	b := Rect{Left: 2, Top: 2, Right: 6, Bottom: 6}

	if got := a.Intersect(b); got != (Rect{Left: 2, Top: 2, Right: 4, Bottom: 4}) {
		t.Errorf("Intersect = %+v", got)
	}

	c := Rect{Left: 10, Top: 10, Right: 12, Bottom: 12}
	if got := a.Intersect(c); got != (Rect{}) {
		t.Errorf("disjoint Intersect = %+v, want zero", got)
	}
}

// TestClamp tests clamping at both bounds.
func TestClamp(t *testing.T) {
	if got := clamp(-1, 0, 10); got != 0 {
		t.Errorf("clamp(-1) = %d", got)
	}
	if got := clamp(11, 0, 10); got != 10 {
		t.Errorf("clamp(11) = %d", got)
	}
	if got := clamp(5, 0, 10); got != 5 {
		t.Errorf("clamp(5) = %d", got)
	}
}

// TestRowRangeWiden tests that widening an empty range replaces it.
func TestRowRangeWiden(t *testing.T) {
	r := rowRange{}
	r = r.widen(3, 5)
	if r != (rowRange{From: 3, To: 5}) {
		t.Fatalf("widen on empty = %+v", r)
	}
	r = r.widen(1, 4)
	if r != (rowRange{From: 1, To: 5}) {
		t.Fatalf("widen = %+v", r)
	}
	r = r.widen(4, 9)
	if r != (rowRange{From: 1, To: 9}) {
		t.Fatalf("widen = %+v", r)
	}
}
