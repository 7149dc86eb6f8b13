package termatlas

import "github.com/rivo/uniseg"

// Cluster is one text cluster occupying Columns terminal cells. Clusters
// are the unit the terminal hands to PaintBufferLine: a grapheme cluster
// with its display width.
type Cluster struct {
	Text    string
	Columns int
}

// Clusters splits s into grapheme clusters with their terminal cell
// widths. It is a convenience for drivers that hold plain strings; callers
// with their own cell bookkeeping can construct Cluster values directly.
func Clusters(s string) []Cluster {
	if s == "" {
		return nil
	}
	out := make([]Cluster, 0, len(s))
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if w < 1 {
			// Zero-width clusters ride along in the cell of their
			// predecessor; the terminal model has no zero-width cells.
			if n := len(out); n > 0 {
				out[n-1].Text += g.Str()
				continue
			}
			w = 1
		}
		out = append(out, Cluster{Text: g.Str(), Columns: w})
	}
	return out
}
