package catalog

import (
	"github.com/matzehuels/masonry/pkg/errors"
)

// Catalog is the ordered, id-indexed set of items being laid out.
//
// Catalog is not safe for concurrent use. The engine drives it from a single
// goroutine; probe results reach it as [Report] values.
type Catalog struct {
	items []Item
	index map[string]int
}

// Counts tallies items by caption state.
type Counts struct {
	Unmeasured int
	Pending    int
	Resolved   int
}

// Total returns the number of items counted.
func (c Counts) Total() int { return c.Unmeasured + c.Pending + c.Resolved }

// New creates a catalog from items in order. Every item is validated and ids
// must be unique; the first offending item aborts construction.
func New(items ...Item) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(items))}
	if err := c.Append(items...); err != nil {
		return nil, err
	}
	return c, nil
}

// Append validates items and adds them to the end of the catalog. It is
// all-or-nothing: if any item is invalid or collides with an existing id,
// the catalog is left untouched.
func (c *Catalog) Append(items ...Item) error {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if err := Validate(it); err != nil {
			return errors.New(errors.GetCode(err), "item %d: %s", i, errors.UserMessage(err))
		}
		if _, dup := c.index[it.ID]; dup {
			return errors.New(errors.ErrCodeDuplicateItem, "item %d: id %q already in catalog", i, it.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return errors.New(errors.ErrCodeDuplicateItem, "item %d: id %q appears twice", i, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	for _, it := range items {
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return nil
}

// Remove deletes the item with the given id. It reports whether an item was
// removed. Any probe still in flight for id becomes stale.
func (c *Catalog) Remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
	return true
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Item returns the item with the given id.
func (c *Catalog) Item(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns a copy of the items in catalog order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Counts returns the number of items in each caption state.
func (c *Catalog) Counts() Counts {
	var n Counts
	for _, it := range c.items {
		switch it.State {
		case Unmeasured:
			n.Unmeasured++
		case Pending:
			n.Pending++
		case Resolved:
			n.Resolved++
		}
	}
	return n
}

// AllResolved reports whether every item has a final caption height. It is
// vacuously true for an empty catalog.
func (c *Catalog) AllResolved() bool {
	for _, it := range c.items {
		if it.State != Resolved {
			return false
		}
	}
	return true
}

// MarkPending moves an Unmeasured item to Pending. It reports whether the
// transition happened.
func (c *Catalog) MarkPending(id string) bool {
	i, ok := c.index[id]
	if !ok || c.items[i].State != Unmeasured {
		return false
	}
	c.items[i].State = Pending
	return true
}

// ResolveUnmeasured resolves an Unmeasured item directly, skipping the probe.
// Used for empty captions and unusable probe widths.
func (c *Catalog) ResolveUnmeasured(id string, h float64) bool {
	i, ok := c.index[id]
	if !ok || c.items[i].State != Unmeasured {
		return false
	}
	c.items[i] = c.items[i].Resolve(h)
	return true
}

// Apply applies a probe report in place. Only the matching Pending item is
// replaced; every other item is left untouched. See [ApplyReport].
func (c *Catalog) Apply(r Report) Outcome {
	i, ok := c.index[r.ID]
	if !ok {
		return Unknown
	}
	it, out := transition(c.items[i], r)
	if out == Applied {
		c.items[i] = it
	}
	return out
}
