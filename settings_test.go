package termatlas

import (
	"errors"
	"testing"
)

// TestGenerationalWrite tests that Write bumps the generation and Get does
// not.
func TestGenerationalWrite(t *testing.T) {
	var g Generational[FontSettings]

	if g.Generation() != 0 {
		t.Fatalf("fresh generation = %d, want 0", g.Generation())
	}
	g.Write().DPI = 144
	if g.Generation() != 1 {
		t.Errorf("generation after Write = %d, want 1", g.Generation())
	}
	if g.Get().DPI != 144 {
		t.Errorf("DPI = %d, want 144", g.Get().DPI)
	}
	_ = g.Get()
	if g.Generation() != 1 {
		t.Errorf("Get bumped generation to %d", g.Generation())
	}
}

// trackerCounts registers a counting callback per settings group.
func trackerCounts(tr *Tracker) *[numSettingsGroups]int {
	var counts [numSettingsGroups]int
	for g := settingsGroup(0); g < numSettingsGroups; g++ {
		g := g
		tr.onChange(g, func() error {
			counts[g]++
			return nil
		})
	}
	return &counts
}

// TestTrackerFirstObserve tests that fresh settings trigger every
// generational group exactly once.
func TestTrackerFirstObserve(t *testing.T) {
	s := NewSettings()
	var tr Tracker
	counts := trackerCounts(&tr)

	changed, err := tr.Observe(s)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if !changed {
		t.Error("first Observe reported no change")
	}
	for _, g := range []settingsGroup{groupTarget, groupFont, groupCursor, groupMisc} {
		if counts[g] != 1 {
			t.Errorf("group %d fired %d times, want 1", g, counts[g])
		}
	}
	if counts[groupCellCount] != 0 {
		t.Errorf("cell count fired %d times for zero grid, want 0", counts[groupCellCount])
	}
}

// TestTrackerExactGroups tests that only the written group's callbacks run.
func TestTrackerExactGroups(t *testing.T) {
	s := NewSettings()
	var tr Tracker
	counts := trackerCounts(&tr)
	tr.Observe(s)

	s.Font.Write().SizeInDIP = 14
	changed, err := tr.Observe(s)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if !changed {
		t.Error("font write reported no change")
	}
	if counts[groupFont] != 2 {
		t.Errorf("font fired %d times, want 2", counts[groupFont])
	}
	if counts[groupTarget] != 1 || counts[groupCursor] != 1 || counts[groupMisc] != 1 {
		t.Error("unrelated group fired on font write")
	}

	changed, _ = tr.Observe(s)
	if changed {
		t.Error("steady-state Observe reported change")
	}
}

// TestTrackerCellCountByValue tests that the grid size is compared by
// value, not by generation.
func TestTrackerCellCountByValue(t *testing.T) {
	s := NewSettings()
	var tr Tracker
	counts := trackerCounts(&tr)
	tr.Observe(s)

	s.CellCount = Size{X: 80, Y: 25}
	if changed, _ := tr.Observe(s); !changed {
		t.Error("cell count change not observed")
	}
	if counts[groupCellCount] != 1 {
		t.Errorf("cell count fired %d times, want 1", counts[groupCellCount])
	}

	s.CellCount = Size{X: 80, Y: 25}
	if changed, _ := tr.Observe(s); changed {
		t.Error("identical cell count reported as change")
	}
}

// TestTrackerCallbackErrorRetries tests that a failing callback leaves its
// group unobserved so the next Observe retries it.
func TestTrackerCallbackErrorRetries(t *testing.T) {
	s := NewSettings()
	var tr Tracker

	fail := errors.New("rebuild failed")
	calls := 0
	tr.onChange(groupFont, func() error {
		calls++
		if calls == 1 {
			return fail
		}
		return nil
	})

	if _, err := tr.Observe(s); !errors.Is(err, fail) {
		t.Fatalf("Observe error = %v, want %v", err, fail)
	}
	if _, err := tr.Observe(s); err != nil {
		t.Fatalf("retry Observe failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

// TestNewSettingsDefaults tests the documented defaults.
func TestNewSettingsDefaults(t *testing.T) {
	s := NewSettings()

	if s.Font.Get().DPI != 96 {
		t.Errorf("DPI = %d, want 96", s.Font.Get().DPI)
	}
	if s.Cursor.Get().HeightPercentage != 20 {
		t.Errorf("HeightPercentage = %d, want 20", s.Cursor.Get().HeightPercentage)
	}
	if s.Misc.Get().SelectionColor != 0x7fffffff {
		t.Errorf("SelectionColor = %#x", s.Misc.Get().SelectionColor)
	}
	if s.Target.Generation() == 0 {
		t.Error("target generation = 0, want bumped")
	}
}
