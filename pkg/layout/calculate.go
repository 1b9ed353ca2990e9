package layout

import (
	"math"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
)

// TileHeight returns how far placing it advances its column, capped at
// math.MaxFloat64.
func (c Config) TileHeight(it catalog.Item) float64 {
	h := it.ImageHeight(c.ColumnWidth) + it.CaptionHeight + 2*c.Gutter + c.CaptionOffset
	return math.Min(h, math.MaxFloat64)
}

// Calculate places items, in order, into the shortest column and returns
// the resulting snapshot. Every item must have a resolved caption height;
// otherwise no snapshot is produced.
func Calculate(items []catalog.Item, cfg Config) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, it := range items {
		if !it.IsResolved() {
			return nil, errors.New(errors.ErrCodeUnresolved, "item %q caption is %s", it.ID, it.State)
		}
	}

	cols := NewAllocator(cfg.ColumnCount())
	stride := cfg.stride()
	offset := cfg.CenterOffset() - cfg.ViewportWidth/2
	placements := make([]Placement, 0, len(items))

	for _, it := range items {
		col := cols.Shortest()
		placements = append(placements, Placement{
			ID:     it.ID,
			Column: col,
			Position: Position{
				Left:  float64(col)*stride + offset,
				Top:   cfg.ViewportHeight/2 - cols.Height(col),
				Depth: cfg.Depth,
			},
			ImageHeight:   it.ImageHeight(cfg.ColumnWidth),
			CaptionHeight: it.CaptionHeight,
		})
		cols.Advance(col, cfg.TileHeight(it))
	}

	return newSnapshot(cfg, cols, placements), nil
}
