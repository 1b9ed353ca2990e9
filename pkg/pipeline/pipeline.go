// Package pipeline provides the batch layout pipeline for masonry.
//
// This package implements the complete load → measure → layout → encode
// pipeline used by the CLI and the HTTP server. By centralizing this logic,
// every entry point applies the same defaults and caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read the item catalog from a file, a board API, or MongoDB
//  2. Layout: Measure captions through an async probe and run the engine
//     until it is positioned
//  3. Encode: Serialize the snapshot as JSON or CBOR
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Input = "wall.yaml"
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(result.Output)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/engine"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/fonts"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultProbeTimeout bounds how long a caption measurement may take
	// before the fallback height is used.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultRepeat is how many times the loaded catalog is laid out.
	DefaultRepeat = 1

	// DefaultFormat is the default snapshot encoding.
	DefaultFormat = layout.FormatJSON
)

// Source kinds.
const (
	SourceFile  = "file"
	SourceBoard = "board"
	SourceMongo = "mongo"
)

// ValidSources is the set of supported catalog sources.
var ValidSources = map[string]bool{
	SourceFile:  true,
	SourceBoard: true,
	SourceMongo: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the layout pipeline.
// This struct supports TOML for the config file and JSON for API requests.
type Options struct {
	// Load options
	Source      string              `json:"source,omitempty" toml:"source"`
	Input       string              `json:"input,omitempty" toml:"input"`
	InputFormat string              `json:"input_format,omitempty" toml:"input_format"`
	Board       source.BoardOptions `json:"-" toml:"board"`
	Mongo       source.MongoOptions `json:"-" toml:"mongo"`
	Repeat      int                 `json:"repeat,omitempty" toml:"repeat"`

	// Layout options
	Layout         layout.Config `json:"layout" toml:"layout"`
	CaptionPadding float64       `json:"caption_padding" toml:"caption_padding"`

	// Measure options
	Font           string        `json:"font,omitempty" toml:"font"`
	FontSize       float64       `json:"font_size,omitempty" toml:"font_size"`
	LineHeight     float64       `json:"line_height,omitempty" toml:"line_height"`
	MaxLines       int           `json:"max_lines,omitempty" toml:"max_lines"` // negative disables the clamp
	ProbeTimeout   time.Duration `json:"probe_timeout,omitempty" toml:"probe_timeout"`
	FallbackHeight float64       `json:"fallback_height,omitempty" toml:"fallback_height"`
	Workers        int           `json:"workers,omitempty" toml:"workers"`

	// Encode options
	Format string `json:"format,omitempty" toml:"format"`

	// Runtime options (not serialized)
	Logger  *log.Logger `json:"-" toml:"-"`
	Refresh bool        `json:"-" toml:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the computed layout.
	Snapshot *layout.Snapshot

	// Output is the encoded snapshot.
	Output []byte

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ItemCount  int
	Columns    int
	Extent     float64
	Fallbacks  int
	LoadTime   time.Duration
	LayoutTime time.Duration
}

// DefaultOptions returns options with every default applied.
func DefaultOptions() Options {
	o := Options{
		Layout:         layout.DefaultConfig(),
		CaptionPadding: measure.DefaultCaptionPadding,
		ProbeTimeout:   DefaultProbeTimeout,
	}
	o.SetLoadDefaults()
	o.SetMeasureDefaults()
	o.SetEncodeDefaults()
	return o
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateSource checks that a source kind is valid.
func ValidateSource(kind string) error {
	if !ValidSources[kind] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid source: %q (must be one of: file, board, mongo)", kind)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetLoadDefaults sets default values for catalog loading.
func (o *Options) SetLoadDefaults() {
	if o.Source == "" {
		o.Source = SourceFile
	}
	if o.Repeat < 1 {
		o.Repeat = DefaultRepeat
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLoad validates and sets defaults for catalog loading.
func (o *Options) ValidateForLoad() error {
	o.SetLoadDefaults()
	if err := ValidateSource(o.Source); err != nil {
		return err
	}
	if o.Repeat > catalog.MaxRepeat {
		return errors.New(errors.ErrCodeInvalidInput, "repeat must be <= %d, got %d", catalog.MaxRepeat, o.Repeat)
	}
	switch o.Source {
	case SourceFile:
		if o.Input == "" {
			return errors.New(errors.ErrCodeInvalidInput, "input file is required")
		}
	case SourceBoard:
		if o.Board.BoardID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "board id is required")
		}
	case SourceMongo:
		if o.Mongo.URI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "mongo uri is required")
		}
	}
	return nil
}

// SetMeasureDefaults sets default values for caption measurement.
func (o *Options) SetMeasureDefaults() {
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	if o.Layout.ColumnWidth == 0 {
		o.Layout.ColumnWidth = layout.DefaultColumnWidth
	}
	if o.Font == "" {
		o.Font = fonts.DefaultFamily
	}
	if o.FontSize == 0 {
		o.FontSize = fonts.DefaultSize
	}
	if o.MaxLines == 0 {
		o.MaxLines = measure.DefaultMaxLines
	}
	if o.FallbackHeight == 0 {
		o.FallbackHeight = measure.DefaultFallbackHeight
	}
	if o.Workers <= 0 {
		o.Workers = measure.DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for measurement and layout.
func (o *Options) ValidateForLayout() error {
	o.SetMeasureDefaults()
	if err := o.Layout.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateNonNegative("caption padding", o.CaptionPadding); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid options")
	}
	if o.ProbeTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "probe timeout must be >= 0, got %s", o.ProbeTimeout)
	}
	return nil
}

// SetEncodeDefaults sets default values for encoding.
func (o *Options) SetEncodeDefaults() {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
}

// ValidateForEncode validates and sets defaults for encoding.
func (o *Options) ValidateForEncode() error {
	o.SetEncodeDefaults()
	return layout.ValidateFormat(o.Format)
}

// FontOptions returns the caption typography.
func (o *Options) FontOptions() measure.FontOptions {
	maxLines := o.MaxLines
	if maxLines < 0 {
		maxLines = 0
	}
	return measure.FontOptions{
		Family:     o.Font,
		Size:       o.FontSize,
		LineHeight: o.LineHeight,
		MaxLines:   maxLines,
	}
}

// EngineOptions returns the controller configuration.
func (o *Options) EngineOptions() engine.Options {
	return engine.Options{
		Layout:         o.Layout,
		CaptionPadding: o.CaptionPadding,
		ProbeTimeout:   o.ProbeTimeout,
		FallbackHeight: o.FallbackHeight,
		Logger:         o.Logger,
	}
}
