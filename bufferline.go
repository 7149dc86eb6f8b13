package termatlas

// CellFlags carries per-cell text decorations and borders.
type CellFlags uint16

const (
	FlagUnderline CellFlags = 1 << iota
	FlagUnderlineDotted
	FlagUnderlineDouble
	FlagStrikethrough
	FlagBorderLeft
	FlagBorderTop
	FlagBorderRight
	FlagBorderBottom
)

// flagAllUnderlines masks every underline style bit.
const flagAllUnderlines = FlagUnderline | FlagUnderlineDotted | FlagUnderlineDouble

// TextAttributes is the styling state supplied with UpdateDrawingBrushes.
type TextAttributes struct {
	Bold             bool
	Italic           bool
	Underlined       bool
	DoublyUnderlined bool
	CrossedOut       bool

	// HyperlinkID is non-zero while painting hyperlink text.
	HyperlinkID int

	BorderLeft   bool
	BorderTop    bool
	BorderRight  bool
	BorderBottom bool
}

// attrKey is the subset of attributes that forces a flush when it changes,
// because it selects a different font face.
type attrKey struct {
	bold   bool
	italic bool
}

// paintState is the frame-scoped paint accumulator. It lives for exactly
// one StartPaint/EndPaint bracket and collects the state that successive
// paint calls mutate: current colors, attributes, flags, and the last
// painted coordinate.
type paintState struct {
	fg    uint32
	bg    uint32
	attrs attrKey
	flags CellFlags

	lastPaintCoord Point

	// hyperlinkHoveredID is the hyperlink currently under the pointer.
	hyperlinkHoveredID int

	// lineWasHyperlinked records that the hyperlink-underline override
	// already fired for the pending line.
	lineWasHyperlinked bool
}

// bufferLine accumulates one row's pending text between the first paint
// call for the row and its flush. columns carries one entry per character
// plus a past-the-end column, so len(columns) == len(chars)+1 whenever the
// line is non-empty and sealed.
type bufferLine struct {
	chars   []rune
	columns []int
}

// appendClusters adds the characters of the given clusters starting at
// column x. Characters of a multi-cell cluster all record the cluster's
// starting column; the width is recovered later by scanning to the next
// distinct column. Returns the first column after the appended text.
func (b *bufferLine) appendClusters(clusters []Cluster, x int) int {
	// Drop the previous past-the-end column; it is re-appended below.
	if len(b.columns) > 0 {
		b.columns = b.columns[:len(b.columns)-1]
	}

	column := x
	for _, cl := range clusters {
		for _, ch := range cl.Text {
			b.chars = append(b.chars, ch)
			b.columns = append(b.columns, column)
		}
		column += cl.Columns
	}
	b.columns = append(b.columns, column)
	return column
}

func (b *bufferLine) reset() {
	b.chars = b.chars[:0]
	b.columns = b.columns[:0]
}

func (b *bufferLine) empty() bool { return len(b.chars) == 0 }
