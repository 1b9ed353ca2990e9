package measure

import (
	"context"

	"github.com/matzehuels/masonry/pkg/catalog"
)

// Request asks a probe for the rendered height of one caption.
type Request struct {
	ID    string
	Text  string
	Width float64
	// Seq is unique per issued request. Reports must carry it back.
	Seq uint64
}

// Probe is the caption rendering capability. Request must return promptly;
// the measured height is reported later, as a [catalog.Report], through
// whatever channel the implementation exposes. Reports may arrive in any
// order, may be duplicated, and may never arrive at all.
type Probe interface {
	Request(req Request)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(req Request)

// Request calls f(req).
func (f ProbeFunc) Request(req Request) { f(req) }

// Measurer measures caption text synchronously.
type Measurer interface {
	// MeasureCaption returns the height of text wrapped at width.
	MeasureCaption(ctx context.Context, text string, width float64) (float64, error)
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(ctx context.Context, text string, width float64) (float64, error)

// MeasureCaption calls f.
func (f MeasurerFunc) MeasureCaption(ctx context.Context, text string, width float64) (float64, error) {
	return f(ctx, text, width)
}

// Report builds the probe report for req.
func (req Request) Report(height float64) catalog.Report {
	return catalog.Report{ID: req.ID, Height: height, Seq: req.Seq}
}

// variant returns a stable description of how m shapes text, for cache
// keys. Measurers that do not describe themselves share the empty variant.
func variant(m Measurer) string {
	if v, ok := m.(interface{ Variant() string }); ok {
		return v.Variant()
	}
	return ""
}
