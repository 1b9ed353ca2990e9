package layout

import (
	"math"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Default values, matching the pin grid the engine was built for.
const (
	DefaultColumnWidth    = 236.0
	DefaultGutter         = 16.0
	DefaultCaptionOffset  = 40.0
	DefaultDepth          = 1.0
	DefaultViewportWidth  = 1280.0
	DefaultViewportHeight = 800.0
)

// Config holds the geometry for one layout pass.
type Config struct {
	// ColumnWidth is the fixed width shared by every column.
	ColumnWidth float64 `json:"column_width" toml:"column_width" bson:"column_width"`
	// Gutter separates columns and stacked tiles.
	Gutter float64 `json:"gutter" toml:"gutter" bson:"gutter"`
	// CaptionOffset is extra space reserved below each caption block.
	CaptionOffset float64 `json:"caption_offset" toml:"caption_offset" bson:"caption_offset"`
	// ViewportWidth and ViewportHeight are read from the render surface.
	ViewportWidth  float64 `json:"viewport_width" toml:"viewport_width" bson:"viewport_width"`
	ViewportHeight float64 `json:"viewport_height" toml:"viewport_height" bson:"viewport_height"`
	// Depth is the rendering plane shared by all tiles.
	Depth float64 `json:"depth" toml:"depth" bson:"depth"`
}

// DefaultConfig returns the stock pin grid geometry.
func DefaultConfig() Config {
	return Config{
		ColumnWidth:    DefaultColumnWidth,
		Gutter:         DefaultGutter,
		CaptionOffset:  DefaultCaptionOffset,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		Depth:          DefaultDepth,
	}
}

// Validate checks that the configuration can produce a layout. A zero or
// negative viewport width is allowed; it collapses to a single column.
func (c Config) Validate() error {
	if math.IsNaN(c.ColumnWidth) || math.IsInf(c.ColumnWidth, 0) || c.ColumnWidth <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "column width must be > 0, got %v", c.ColumnWidth)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"gutter", c.Gutter},
		{"caption offset", c.CaptionOffset},
	} {
		if err := errors.ValidateNonNegative(f.name, f.v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid layout config")
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"viewport width", c.ViewportWidth},
		{"viewport height", c.ViewportHeight},
		{"depth", c.Depth},
	} {
		if err := errors.ValidateFinite(f.name, f.v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid layout config")
		}
	}
	return nil
}

// stride is the horizontal distance between column origins.
func (c Config) stride() float64 { return c.ColumnWidth + c.Gutter }

// ColumnCount returns how many columns fit in the viewport, never less than 1.
func (c Config) ColumnCount() int {
	n := math.Floor((c.ViewportWidth + c.Gutter) / c.stride())
	if math.IsNaN(n) || n < 1 {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// CenterOffset returns the left margin that centers the column block in
// the viewport. It is never negative.
func (c Config) CenterOffset() float64 {
	n := float64(c.ColumnCount())
	off := math.Floor((c.ViewportWidth - c.stride()*n + c.Gutter) / 2)
	if math.IsNaN(off) || off < 0 {
		return 0
	}
	return off
}
