package layout

import "slices"

// Position is a tile's anchor in the centered, y-up render space. Left/Top
// is the tile's top-left corner.
type Position struct {
	Left  float64 `json:"left" cbor:"1,keyasint" bson:"left"`
	Top   float64 `json:"top" cbor:"2,keyasint" bson:"top"`
	Depth float64 `json:"depth" cbor:"3,keyasint" bson:"depth"`
}

// Placement is the layout result for one item.
type Placement struct {
	ID       string   `json:"id" cbor:"1,keyasint" bson:"id"`
	Column   int      `json:"column" cbor:"2,keyasint" bson:"column"`
	Position Position `json:"position" cbor:"3,keyasint" bson:"position"`

	// ImageHeight and CaptionHeight are the resolved block heights, so a
	// render surface can size the sprite and caption without re-deriving them.
	ImageHeight   float64 `json:"image_height" cbor:"4,keyasint" bson:"image_height"`
	CaptionHeight float64 `json:"caption_height" cbor:"5,keyasint" bson:"caption_height"`
}

// Snapshot is the immutable result of one layout pass. Callers must treat
// it as read-only; a new pass produces a new Snapshot.
type Snapshot struct {
	// PassID identifies the pass that produced this snapshot. It is stamped
	// by the engine and ignored by Equal.
	PassID string `json:"pass_id,omitempty" cbor:"1,keyasint,omitempty" bson:"pass_id,omitempty"`

	Config        Config      `json:"config" cbor:"2,keyasint" bson:"config"`
	Columns       int         `json:"columns" cbor:"3,keyasint" bson:"columns"`
	ColumnHeights []float64   `json:"column_heights" cbor:"4,keyasint" bson:"column_heights"`
	Extent        float64     `json:"extent" cbor:"5,keyasint" bson:"extent"`
	Placements    []Placement `json:"placements" cbor:"6,keyasint" bson:"placements"`

	index map[string]int
}

// Empty returns the snapshot of an empty catalog under cfg.
func Empty(cfg Config) *Snapshot {
	return newSnapshot(cfg, NewAllocator(cfg.ColumnCount()), nil)
}

func newSnapshot(cfg Config, cols *Allocator, placements []Placement) *Snapshot {
	if placements == nil {
		placements = []Placement{}
	}
	s := &Snapshot{
		Config:        cfg,
		Columns:       cols.Len(),
		ColumnHeights: cols.Heights(),
		Extent:        cols.Max(),
		Placements:    placements,
	}
	s.reindex()
	return s
}

func (s *Snapshot) reindex() {
	s.index = make(map[string]int, len(s.Placements))
	for i, p := range s.Placements {
		s.index[p.ID] = i
	}
}

// Len returns the number of placed items.
func (s *Snapshot) Len() int { return len(s.Placements) }

// Placement returns the placement for id.
func (s *Snapshot) Placement(id string) (Placement, bool) {
	if s.index == nil {
		for _, p := range s.Placements {
			if p.ID == id {
				return p, true
			}
		}
		return Placement{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Placement{}, false
	}
	return s.Placements[i], true
}

// Position returns the position for id.
func (s *Snapshot) Position(id string) (Position, bool) {
	p, ok := s.Placement(id)
	return p.Position, ok
}

// Positions returns a fresh id → position map.
func (s *Snapshot) Positions() map[string]Position {
	out := make(map[string]Position, len(s.Placements))
	for _, p := range s.Placements {
		out[p.ID] = p.Position
	}
	return out
}

// WithPassID returns a shallow copy of s stamped with id.
func (s *Snapshot) WithPassID(id string) *Snapshot {
	c := *s
	c.PassID = id
	return &c
}

// Equal reports whether two snapshots describe the same layout. PassID is
// not compared.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Config == o.Config &&
		s.Columns == o.Columns &&
		s.Extent == o.Extent &&
		slices.Equal(s.ColumnHeights, o.ColumnHeights) &&
		slices.Equal(s.Placements, o.Placements)
}
