package termatlas

import "testing"

// TestClusters tests grapheme splitting with terminal widths.
func TestClusters(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Cluster
	}{
		{"empty", "", nil},
		{"ascii", "Hi", []Cluster{{"H", 1}, {"i", 1}}},
		{"wide", "中", []Cluster{{"中", 2}}},
		{"mixed", "a中b", []Cluster{{"a", 1}, {"中", 2}, {"b", 1}}},
		{"combining mark", "éx", []Cluster{{"é", 1}, {"x", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clusters(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Clusters(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cluster %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestClustersZeroWidthMerges tests that zero-width clusters ride in the
// preceding cluster's cell.
func TestClustersZeroWidthMerges(t *testing.T) {
	got := Clusters("a​")
	if len(got) != 1 {
		t.Fatalf("Clusters = %v, want single cluster", got)
	}
	if got[0].Text != "a​" || got[0].Columns != 1 {
		t.Errorf("cluster = %+v, want {a+ZWSP 1}", got[0])
	}
}

// TestClustersLeadingZeroWidth tests that a zero-width cluster with no
// predecessor still gets a cell.
func TestClustersLeadingZeroWidth(t *testing.T) {
	got := Clusters("​")
	if len(got) != 1 || got[0].Columns != 1 {
		t.Fatalf("Clusters(ZWSP) = %v, want one single-cell cluster", got)
	}
}
