package measure

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/masonry/pkg/catalog"
)

// DefaultFallbackHeight is one caption line at the stock font size.
const DefaultFallbackHeight = 20.0

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Width is the caption width handed to the probe. A width <= 0 skips
	// probing entirely and resolves every caption to 0.
	Width float64

	// Timeout bounds how long a probe may stay unanswered. Zero disables
	// the fallback and pending captions wait forever.
	Timeout time.Duration

	// FallbackHeight is assigned to captions whose probe timed out.
	FallbackHeight float64

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// Coordinator manages the Unmeasured → Pending → Resolved transition of
// caption heights. It is not safe for concurrent use; it is driven from the
// goroutine that owns the catalog.
type Coordinator struct {
	probe  Probe
	opts   CoordinatorOptions
	issued map[string]ticket
	seq    uint64
}

// ticket records the outstanding request for one item.
type ticket struct {
	seq uint64
	at  time.Time
}

// Issued describes the effect of one Issue call.
type Issued struct {
	// Probed lists items that moved to Pending, in catalog order.
	Probed []string
	// Resolved lists items resolved to 0 without a probe.
	Resolved []string
}

// NewCoordinator returns a coordinator that sends requests to p.
func NewCoordinator(p Probe, opts CoordinatorOptions) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FallbackHeight < 0 || math.IsNaN(opts.FallbackHeight) {
		opts.FallbackHeight = 0
	}
	return &Coordinator{
		probe:  p,
		opts:   opts,
		issued: make(map[string]ticket),
	}
}

// Width returns the probe width.
func (c *Coordinator) Width() float64 { return c.opts.Width }

// Issue requests a measurement for every Unmeasured item in cat. Items with
// an empty caption, or any item when the probe width is not positive, are
// resolved to height 0 immediately and no request is sent for them.
func (c *Coordinator) Issue(cat *catalog.Catalog) Issued {
	var out Issued
	now := c.opts.Clock()
	for _, it := range cat.Items() {
		if it.State != catalog.Unmeasured {
			continue
		}
		text := strings.TrimSpace(it.Caption)
		if text == "" || !(c.opts.Width > 0) {
			cat.ResolveUnmeasured(it.ID, 0)
			out.Resolved = append(out.Resolved, it.ID)
			continue
		}
		cat.MarkPending(it.ID)
		c.seq++
		c.issued[it.ID] = ticket{seq: c.seq, at: now}
		out.Probed = append(out.Probed, it.ID)
		c.probe.Request(Request{ID: it.ID, Text: text, Width: c.opts.Width, Seq: c.seq})
	}
	return out
}

// Deliver applies a probe report to cat. Reports for removed items, for
// items that are already resolved, and reports whose sequence number does
// not match the outstanding request change nothing.
func (c *Coordinator) Deliver(cat *catalog.Catalog, r catalog.Report) catalog.Outcome {
	if t, ok := c.issued[r.ID]; ok && t.seq != r.Seq {
		return catalog.Stale
	}
	out := cat.Apply(r)
	if out == catalog.Applied || out == catalog.Unknown {
		delete(c.issued, r.ID)
	}
	return out
}

// Expire resolves every pending item whose probe has been outstanding for
// at least the configured timeout to the fallback height. It returns the
// ids it resolved, sorted. With no timeout configured it does nothing.
func (c *Coordinator) Expire(cat *catalog.Catalog) []string {
	if c.opts.Timeout <= 0 || len(c.issued) == 0 {
		return nil
	}
	now := c.opts.Clock()
	var expired []string
	for id, t := range c.issued {
		if now.Sub(t.at) < c.opts.Timeout {
			continue
		}
		delete(c.issued, id)
		if cat.Apply(catalog.Report{ID: id, Height: c.opts.FallbackHeight}) == catalog.Applied {
			expired = append(expired, id)
		}
	}
	slices.Sort(expired)
	return expired
}

// Waited returns how long the probe for id has been outstanding.
func (c *Coordinator) Waited(id string) (time.Duration, bool) {
	t, ok := c.issued[id]
	if !ok {
		return 0, false
	}
	return c.opts.Clock().Sub(t.at), true
}

// Forget stops tracking the probe for id. Call it when the item is removed
// from the catalog; a late report for id is then dropped by Deliver, even
// after an item with the same id is added again.
func (c *Coordinator) Forget(id string) {
	delete(c.issued, id)
}

// InFlight returns the number of unanswered probes.
func (c *Coordinator) InFlight() int { return len(c.issued) }

// NextDeadline returns when the oldest outstanding probe times out. It
// reports false when there is no timeout or nothing is in flight.
func (c *Coordinator) NextDeadline() (time.Time, bool) {
	if c.opts.Timeout <= 0 || len(c.issued) == 0 {
		return time.Time{}, false
	}
	var oldest time.Time
	for _, t := range c.issued {
		if oldest.IsZero() || t.at.Before(oldest) {
			oldest = t.at
		}
	}
	return oldest.Add(c.opts.Timeout), true
}
