package catalog

import "math"

// Report is a probe result: the rendered caption height of one item.
type Report struct {
	ID     string  `json:"id"`
	Height float64 `json:"height"`
	// Seq echoes the sequence number of the request being answered.
	Seq uint64 `json:"seq,omitempty"`
}

// Outcome describes what applying a report did.
type Outcome uint8

const (
	// Applied means the report resolved a pending item.
	Applied Outcome = iota
	// Unknown means no item with the report's id exists (removed or never added).
	Unknown
	// AlreadyResolved means the item was resolved earlier; first write wins.
	AlreadyResolved
	// NotPending means the item has no outstanding probe.
	NotPending
	// Stale means the report answers a superseded request, for example one
	// issued before the item was removed and added again.
	Stale
)

// String returns a short description used in log lines.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unknown:
		return "unknown item"
	case AlreadyResolved:
		return "already resolved"
	case NotPending:
		return "not pending"
	case Stale:
		return "stale report"
	default:
		return "invalid"
	}
}

// ApplyReport is the pure catalog transition for one probe report.
//
// It returns a new slice in which only the item matching r.ID is replaced,
// and only when that item is Pending. In every other case items is returned
// unchanged. The input slice is never written to.
func ApplyReport(items []Item, r Report) ([]Item, Outcome) {
	i := indexOf(items, r.ID)
	if i < 0 {
		return items, Unknown
	}
	it, out := transition(items[i], r)
	if out != Applied {
		return items, out
	}
	next := make([]Item, len(items))
	copy(next, items)
	next[i] = it
	return next, Applied
}

// transition resolves a pending item from r. Negative and NaN heights are
// clamped to zero.
func transition(it Item, r Report) (Item, Outcome) {
	switch it.State {
	case Resolved:
		return it, AlreadyResolved
	case Unmeasured:
		return it, NotPending
	}
	h := r.Height
	if !(h > 0) || math.IsInf(h, 0) {
		h = 0
	}
	return it.Resolve(h), Applied
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
