package termatlas

import "github.com/gogpu/gputypes"

// Generation is a monotonically increasing version counter identifying
// whether a logical settings group has changed since last observed.
// Generations are compared by inequality only; their numeric value carries
// no meaning beyond ordering.
type Generation uint32

// Generational wraps a settings group with a generation counter.
// Reads go through Get; every mutation must go through Write, which bumps
// the generation. Comparing two generations is the O(1) substitute for deep
// structural comparison of the group's contents.
type Generational[T any] struct {
	gen Generation
	val T
}

// Get returns the current value for reading. Callers must not mutate it.
func (g *Generational[T]) Get() *T { return &g.val }

// Write bumps the generation and returns the value for mutation.
func (g *Generational[T]) Write() *T {
	g.gen++
	return &g.val
}

// Generation returns the current generation counter.
func (g *Generational[T]) Generation() Generation { return g.gen }

// TargetSettings describes the presentation target.
type TargetSettings struct {
	// Surface is the presentation surface glyphs are presented to.
	Surface PresentationSurface

	// TransparentBackground enables an alpha-blended backbuffer.
	TransparentBackground bool

	// SoftwareRendering forces the software rasterization path.
	SoftwareRendering bool
}

// FontAxis is one variable-font axis value, e.g. {"wght", 700}.
type FontAxis struct {
	Tag   string
	Value float32
}

// FontSettings describes the terminal font and its cell metrics.
type FontSettings struct {
	// Family is the base font family name.
	Family string

	// SizeInDIP is the font size in device-independent pixels.
	SizeInDIP float64

	// Weight is the base font weight (400 regular, 700 bold).
	Weight int

	// AxisValues are user-supplied variable-font axis values. A value of -1
	// for the wght/ital/slnt axes means "unset"; the engine fills those per
	// bold/italic attribute combination.
	AxisValues []FontAxis

	// CellSize is the size of one terminal cell in pixels.
	CellSize Size

	// BaselineInDIP is the distance from the cell top to the text baseline.
	BaselineInDIP float64

	// UnderlinePos and UnderlineWidth position the underline in pixels
	// below the baseline.
	UnderlinePos   int
	UnderlineWidth int

	// StrikethroughPos and StrikethroughWidth position the strikethrough.
	StrikethroughPos   int
	StrikethroughWidth int

	// DPI of the target. 96 means one pixel per DIP.
	DPI int
}

// CursorShape selects how the cursor cell is drawn.
type CursorShape int

const (
	CursorBlock CursorShape = iota
	CursorUnderscore
	CursorVerticalBar
	CursorEmptyBox
)

// CursorSettings describes the cursor appearance.
type CursorSettings struct {
	// Color is the cursor color as packed 0xAABBGGRR. InvalidColor means
	// "invert the cell underneath".
	Color uint32

	// Shape selects the cursor glyph.
	Shape CursorShape

	// HeightPercentage scales partial-height cursor shapes (1-100).
	HeightPercentage int
}

// InvalidColor marks a color slot as unset.
const InvalidColor = 0xffffffff

// AntialiasingMode selects how glyphs are antialiased.
type AntialiasingMode int

const (
	AntialiasGrayscale AntialiasingMode = iota
	AntialiasNone
)

// MiscSettings holds the remaining render settings.
type MiscSettings struct {
	// BackgroundColor is the default background as packed 0xAABBGGRR.
	BackgroundColor uint32

	// SelectionColor is blended over selected cells.
	SelectionColor uint32

	// Antialiasing selects the glyph antialiasing mode.
	Antialiasing AntialiasingMode

	// CustomShaderPath optionally names a post-processing shader for
	// backends that support one. The software backend ignores it.
	CustomShaderPath string
}

// Settings groups all engine settings. Each group is independently
// versioned; a generation bump in a group triggers exactly the
// dependent-resource rebuilds that read that group (see Tracker).
//
// Settings are created once, mutated by the API-facing caller through the
// Write methods, and observed by the engine once per frame at StartPaint.
type Settings struct {
	Target Generational[TargetSettings]
	Font   Generational[FontSettings]
	Cursor Generational[CursorSettings]
	Misc   Generational[MiscSettings]

	// TargetSize is the presentation target size in pixels.
	TargetSize Size

	// CellCount is the terminal grid size in cells.
	CellCount Size
}

// NewSettings returns settings with every group at generation 1 so that the
// first observation treats everything as changed.
func NewSettings() *Settings {
	s := &Settings{}
	s.Target.Write()
	s.Font.Write().DPI = 96
	s.Cursor.Write().HeightPercentage = 20
	s.Misc.Write().SelectionColor = 0x7fffffff
	return s
}

// DefaultSurfaceFormat is the pixel format produced by the engine's
// software backend and expected from presentation surfaces.
const DefaultSurfaceFormat = gputypes.TextureFormatBGRA8Unorm

// settingsGroup identifies one independently versioned settings group for
// rebuild-callback registration.
type settingsGroup int

const (
	groupTarget settingsGroup = iota
	groupFont
	groupCursor
	groupMisc
	groupCellCount
	numSettingsGroups
)

// Tracker compares settings snapshots by per-group generation counters and
// invokes the dependent-resource rebuild callbacks registered for each group
// that changed. Comparison is O(1) per group; contents are never inspected.
type Tracker struct {
	seen      [numSettingsGroups]Generation
	cellCount Size
	callbacks [numSettingsGroups][]func() error
}

// OnChange registers a rebuild callback for one settings group. Callbacks
// run in registration order during Observe.
func (t *Tracker) onChange(g settingsGroup, fn func() error) {
	t.callbacks[g] = append(t.callbacks[g], fn)
}

// Observe diffs the settings against the previously observed generations,
// runs the callbacks of every changed group, and records the new
// generations. The first error aborts the walk; the generations of groups
// whose callbacks did not all run are left unobserved so the next Observe
// retries them.
func (t *Tracker) Observe(s *Settings) (changed bool, err error) {
	gens := [numSettingsGroups]Generation{
		groupTarget: s.Target.Generation(),
		groupFont:   s.Font.Generation(),
		groupCursor: s.Cursor.Generation(),
		groupMisc:   s.Misc.Generation(),
	}

	for g := settingsGroup(0); g < numSettingsGroups; g++ {
		dirty := gens[g] != t.seen[g]
		if g == groupCellCount {
			dirty = s.CellCount != t.cellCount
		}
		if !dirty {
			continue
		}
		changed = true
		for _, fn := range t.callbacks[g] {
			if err := fn(); err != nil {
				return true, err
			}
		}
		t.seen[g] = gens[g]
		if g == groupCellCount {
			t.cellCount = s.CellCount
		}
	}
	return changed, nil
}
