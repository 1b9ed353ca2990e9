package catalog

import (
	"fmt"
	"math"

	"github.com/matzehuels/masonry/pkg/errors"
)

// CaptionState is the measurement state of an item's caption block.
type CaptionState uint8

const (
	// Unmeasured items have not been handed to a probe yet.
	Unmeasured CaptionState = iota
	// Pending items have an outstanding probe request.
	Pending
	// Resolved items carry a final caption height.
	Resolved
)

// String returns the lower-case state name.
func (s CaptionState) String() string {
	switch s {
	case Unmeasured:
		return "unmeasured"
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("CaptionState(%d)", uint8(s))
	}
}

// Item is a single image-plus-caption tile.
//
// NaturalWidth and NaturalHeight are the source image dimensions; they are
// only used to derive the display height at a fixed column width.
type Item struct {
	ID            string  `json:"id" yaml:"id" toml:"id" bson:"id"`
	Caption       string  `json:"caption,omitempty" yaml:"caption,omitempty" toml:"caption" bson:"caption,omitempty"`
	NaturalWidth  float64 `json:"natural_width" yaml:"natural_width" toml:"natural_width" bson:"natural_width"`
	NaturalHeight float64 `json:"natural_height" yaml:"natural_height" toml:"natural_height" bson:"natural_height"`
	ImageURL      string  `json:"image_url,omitempty" yaml:"image_url,omitempty" toml:"image_url" bson:"image_url,omitempty"`

	// Caption measurement state. Not part of the ingestion format.
	State         CaptionState `json:"-" yaml:"-" toml:"-" bson:"-"`
	CaptionHeight float64      `json:"-" yaml:"-" toml:"-" bson:"-"`
}

// IsResolved reports whether the caption height is final.
func (it Item) IsResolved() bool { return it.State == Resolved }

// ImageHeight returns the display height of the image when scaled to
// columnWidth. A non-positive natural width, or a scaled height that is not
// finite, is treated as a square image.
func (it Item) ImageHeight(columnWidth float64) float64 {
	if it.NaturalWidth <= 0 || math.IsNaN(it.NaturalWidth) {
		return columnWidth
	}
	h := it.NaturalHeight * columnWidth / it.NaturalWidth
	if math.IsInf(h, 0) || math.IsNaN(h) {
		return columnWidth
	}
	return h
}

// Resolve returns a copy of it with the caption height fixed to h.
func (it Item) Resolve(h float64) Item {
	it.State = Resolved
	it.CaptionHeight = h
	return it
}

// Validate checks the ingestion contract for a single item.
func Validate(it Item) error {
	if err := errors.ValidateItemID(it.ID); err != nil {
		return err
	}
	if math.IsNaN(it.NaturalHeight) || math.IsInf(it.NaturalHeight, 0) || it.NaturalHeight <= 0 {
		return errors.New(errors.ErrCodeInvalidItem, "item %q: natural height must be > 0, got %v", it.ID, it.NaturalHeight)
	}
	if math.IsInf(it.NaturalWidth, 0) {
		return errors.New(errors.ErrCodeInvalidItem, "item %q: natural width must be finite", it.ID)
	}
	if it.NaturalWidth > 0 && math.IsInf(it.NaturalHeight/it.NaturalWidth, 0) {
		return errors.New(errors.ErrCodeInvalidItem, "item %q: aspect ratio %v/%v is not finite", it.ID, it.NaturalHeight, it.NaturalWidth)
	}
	return nil
}
