// Package catalog holds the ordered set of tiles the masonry engine lays out.
//
// A [Catalog] owns every [Item] in insertion order together with an id index.
// Insertion order is layout order: the position calculator walks items exactly
// as they were appended.
//
// # Caption lifecycle
//
// Each item's caption height moves through three states exactly once:
//
//	Unmeasured → Pending → Resolved(h)
//
// The only mutation an item ever sees after ingestion is this transition.
// Probe reports are applied with [ApplyReport], a pure function that replaces
// the single matching item if, and only if, it is still Pending. Reports for
// removed ids and duplicate reports for resolved ids are dropped, which makes
// report delivery order irrelevant across items.
//
// # Ingestion
//
// Catalog files are decoded with [ReadFile] or [Decode] from JSON, YAML or
// TOML. Items are validated on the way in ([Validate]): a missing id, a
// duplicate id or a non-positive natural height are rejected here, so the
// layout engine never sees malformed data. Captions are normalized with
// [Normalize] (NFC, trimmed).
package catalog
