package atlas

// Config holds atlas configuration.
type Config struct {
	// Size is the initial atlas texture size (width = height).
	// Must be a power of 2. Default: 1024.
	Size int

	// MaxSize caps atlas growth. Default: 8192.
	MaxSize int

	// Padding between glyphs to prevent sampling bleed. Default: 1.
	Padding int
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		Size:    1024,
		MaxSize: 8192,
		Padding: 1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Size < 64 {
		return &ConfigError{Field: "Size", Reason: "must be at least 64"}
	}
	if c.Size&(c.Size-1) != 0 {
		return &ConfigError{Field: "Size", Reason: "must be a power of 2"}
	}
	if c.MaxSize < c.Size {
		return &ConfigError{Field: "MaxSize", Reason: "must be at least Size"}
	}
	if c.MaxSize&(c.MaxSize-1) != 0 {
		return &ConfigError{Field: "MaxSize", Reason: "must be a power of 2"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	return nil
}

// ConfigError reports an invalid atlas configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}

// Atlas is a growable single-channel (alpha) glyph atlas image backed by a
// shelf packer. Pixels are row-major, one byte per pixel.
//
// Atlas is confined to the presenter; it is not safe for concurrent use.
type Atlas struct {
	pixels  []byte
	size    int
	maxSize int
	packer  *ShelfPacker
}

// New creates an atlas, or returns a ConfigError for invalid configuration.
func New(cfg Config) (*Atlas, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Atlas{
		pixels:  make([]byte, cfg.Size*cfg.Size),
		size:    cfg.Size,
		maxSize: cfg.MaxSize,
		packer:  NewShelfPacker(cfg.Size, cfg.Size, cfg.Padding),
	}, nil
}

// Size returns the current atlas edge length in pixels.
func (a *Atlas) Size() int { return a.size }

// Pixels returns the backing pixel buffer.
func (a *Atlas) Pixels() []byte { return a.pixels }

// Pack allocates a w×h rectangle. ok is false when the atlas is full.
func (a *Atlas) Pack(w, h int) (x, y int, ok bool) {
	return a.packer.Pack(w, h)
}

// Grow doubles the atlas size, discarding all packed content. The caller
// must clear any cache that references atlas coordinates and re-rasterize.
// Returns false when the atlas is already at its maximum size.
func (a *Atlas) Grow() bool {
	if a.size >= a.maxSize {
		return false
	}
	a.size <<= 1
	a.pixels = make([]byte, a.size*a.size)
	a.packer.Resize(a.size, a.size)
	return true
}

// Reset discards all packed content without changing the size.
func (a *Atlas) Reset() {
	clear(a.pixels)
	a.packer.Reset()
}

// Blit copies a w×h alpha mask into the atlas at (x, y). src is row-major
// with the given stride.
func (a *Atlas) Blit(x, y, w, h int, src []byte, stride int) {
	for row := 0; row < h; row++ {
		dst := a.pixels[(y+row)*a.size+x:]
		copy(dst[:w], src[row*stride:row*stride+w])
	}
}
