// Package layout implements the masonry position calculator.
//
// Items are placed one at a time, in catalog order, into the currently
// shortest column. The [Allocator] tracks the accumulated height of every
// column; ties go to the lowest column index, which makes placement a pure
// function of (item order, item dimensions, [Config]).
//
// # Coordinates
//
// Positions are expressed in a y-up space centered on the viewport midpoint,
// so a render surface can place tiles symmetrically around an origin:
//
//	left = col*(columnWidth+gutter) + centerOffset - viewportWidth/2
//	top  = viewportHeight/2 - accumulatedHeight[col]
//
// Each placed tile then advances its column by
//
//	imageHeight + captionHeight + 2*gutter + captionOffset
//
// where imageHeight scales the natural image size to the column width.
//
// # Snapshots
//
// [Calculate] requires every item to have a resolved caption height and
// returns a [Snapshot]: one [Placement] per item plus the per-column heights
// and the total scroll extent. Running it twice on the same input yields
// equal snapshots. Snapshots serialize to JSON and deterministic CBOR via
// [MarshalSnapshot].
package layout
