// Package engine drives a catalog from raw items to a published layout.
//
// A [Controller] owns the catalog and a [measure.Coordinator]. It is in one
// of two phases: Measuring, while any caption height is unknown, and
// Positioned, once every caption is resolved and a layout pass has produced
// a [layout.Snapshot]. Any change to the catalog (append, remove, resize)
// recomputes the whole layout.
//
// The controller is not safe for concurrent use. It never blocks: probe
// reports are handed to it through [Controller.Deliver], typically from a
// host loop such as [Controller.Wait] or a bubbletea update function.
package engine

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/observability"
)

// Phase is the controller's layout phase.
type Phase uint8

const (
	// Measuring means at least one caption is unresolved; no snapshot is
	// published.
	Measuring Phase = iota
	// Positioned means every caption is resolved and a snapshot is published.
	Positioned
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	if p == Positioned {
		return "positioned"
	}
	return "measuring"
}

// Options configures a Controller.
type Options struct {
	Layout layout.Config

	// CaptionPadding is the horizontal padding on each side of a caption.
	// The probe width is Layout.ColumnWidth minus twice this value.
	CaptionPadding float64

	// ProbeTimeout and FallbackHeight configure the bounded wait for
	// probes that never answer. A zero timeout waits forever.
	ProbeTimeout   time.Duration
	FallbackHeight float64

	Logger *log.Logger
	Clock  func() time.Time
}

// DefaultOptions returns the stock geometry with no probe timeout.
func DefaultOptions() Options {
	return Options{
		Layout:         layout.DefaultConfig(),
		CaptionPadding: measure.DefaultCaptionPadding,
		FallbackHeight: measure.DefaultFallbackHeight,
	}
}

// ProbeWidth returns the caption width handed to the probe.
func (o Options) ProbeWidth() float64 {
	return o.Layout.ColumnWidth - 2*o.CaptionPadding
}

// Controller owns a catalog and publishes its layout.
type Controller struct {
	opts   Options
	logger *log.Logger
	hooks  observability.EngineHooks

	cat   *catalog.Catalog
	coord *measure.Coordinator
	phase Phase
	snap  *layout.Snapshot

	extent    float64
	passes    int
	fallbacks int
}

// New returns a controller with an empty catalog. An empty catalog is
// vacuously resolved, so the controller starts Positioned with an empty
// snapshot.
func New(p measure.Probe, opts Options) (*Controller, error) {
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}
	if err := errors.ValidateNonNegative("caption padding", opts.CaptionPadding); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid engine options")
	}
	if opts.ProbeTimeout < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "probe timeout must be >= 0, got %s", opts.ProbeTimeout)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	c := &Controller{
		opts:   opts,
		logger: opts.Logger,
		hooks:  observability.Engine(),
		cat:    new(catalog.Catalog),
		coord: measure.NewCoordinator(p, measure.CoordinatorOptions{
			Width:          opts.ProbeWidth(),
			Timeout:        opts.ProbeTimeout,
			FallbackHeight: opts.FallbackHeight,
			Clock:          opts.Clock,
		}),
		phase: Measuring,
	}
	c.settle()
	return c, nil
}

// Append adds items to the end of the catalog and returns to Measuring.
// Items are validated as a batch; on error nothing changes.
func (c *Controller) Append(items ...catalog.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := c.cat.Append(items...); err != nil {
		return err
	}
	c.logger.Debug("items appended", "count", len(items), "total", c.cat.Len())
	c.invalidate()
	return nil
}

// Remove deletes the item with the given id. Any probe in flight for it is
// cancelled: its report will be dropped. It reports whether an item was
// removed.
func (c *Controller) Remove(id string) bool {
	if !c.cat.Remove(id) {
		return false
	}
	c.coord.Forget(id)
	c.logger.Debug("item removed", "id", id, "total", c.cat.Len())
	c.invalidate()
	return true
}

// Deliver applies one probe report. Reports for removed items, for captions
// that are already resolved and for superseded requests are ignored. Build
// reports with [measure.Request.Report] so they carry the request's Seq.
func (c *Controller) Deliver(r catalog.Report) catalog.Outcome {
	out := c.coord.Deliver(c.cat, r)
	c.hooks.OnReport(r.ID, out.String())
	if out != catalog.Applied {
		c.logger.Debug("report discarded", "id", r.ID, "reason", out)
		return out
	}
	c.logger.Debug("report applied", "id", r.ID, "height", r.Height)
	c.settle()
	return out
}

// Expire resolves captions whose probe has timed out to the fallback
// height and returns their ids.
func (c *Controller) Expire() []string {
	waited := make(map[string]time.Duration)
	for _, id := range c.pendingIDs() {
		if w, ok := c.coord.Waited(id); ok {
			waited[id] = w
		}
	}
	ids := c.coord.Expire(c.cat)
	if len(ids) == 0 {
		return nil
	}
	c.fallbacks += len(ids)
	for _, id := range ids {
		c.logger.Warn("caption probe timed out", "id", id, "waited", waited[id], "fallback", c.opts.FallbackHeight)
		c.hooks.OnFallback(id, waited[id])
	}
	c.settle()
	return ids
}

// Resize changes the viewport. When Positioned, the layout is recomputed
// immediately; otherwise the new viewport is used by the next pass.
func (c *Controller) Resize(width, height float64) error {
	cfg := c.opts.Layout
	cfg.ViewportWidth = width
	cfg.ViewportHeight = height
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg == c.opts.Layout {
		return nil
	}
	c.opts.Layout = cfg
	c.logger.Debug("viewport resized", "width", width, "height", height, "columns", cfg.ColumnCount())
	if c.phase == Positioned {
		c.phase = Measuring
		c.settle()
	}
	return nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// Snapshot returns the published layout. It reports false while Measuring.
func (c *Controller) Snapshot() (*layout.Snapshot, bool) {
	if c.phase != Positioned {
		return nil, false
	}
	return c.snap, true
}

// ScrollExtent returns the tallest column height from the last completed
// pass. It keeps its value while a new pass is being measured.
func (c *Controller) ScrollExtent() float64 { return c.extent }

// Items returns a copy of the catalog in order.
func (c *Controller) Items() []catalog.Item { return c.cat.Items() }

// Counts returns the number of items in each caption state.
func (c *Controller) Counts() catalog.Counts { return c.cat.Counts() }

// InFlight returns the number of unanswered probes.
func (c *Controller) InFlight() int { return c.coord.InFlight() }

// Passes returns how many layout passes have run.
func (c *Controller) Passes() int { return c.passes }

// Fallbacks returns how many captions were resolved by timeout.
func (c *Controller) Fallbacks() int { return c.fallbacks }

// Config returns the current layout configuration.
func (c *Controller) Config() layout.Config { return c.opts.Layout }

// invalidate drops the published snapshot and re-measures.
func (c *Controller) invalidate() {
	c.phase = Measuring
	c.snap = nil
	c.settle()
}

// settle issues probes for unmeasured items and runs a layout pass once
// everything is resolved.
func (c *Controller) settle() {
	issued := c.coord.Issue(c.cat)
	for _, id := range issued.Probed {
		c.hooks.OnProbeIssued(id)
	}
	if n := len(issued.Probed); n > 0 {
		c.logger.Debug("probes issued", "count", n, "in_flight", c.coord.InFlight())
	}
	if c.phase == Measuring && c.cat.AllResolved() {
		c.pass()
	}
}

func (c *Controller) pass() {
	start := time.Now()
	items := c.cat.Items()
	snap, err := layout.Calculate(items, c.opts.Layout)
	if err != nil {
		// Config is validated on every change and all items are resolved.
		panic(err)
	}
	c.passes++
	c.snap = snap.WithPassID(uuid.NewString())
	c.extent = snap.Extent
	c.phase = Positioned

	d := time.Since(start)
	c.logger.Debug("layout pass",
		"pass", c.snap.PassID,
		"items", len(items),
		"columns", snap.Columns,
		"extent", snap.Extent,
		"duration", d)
	c.hooks.OnLayoutPass(c.snap.PassID, len(items), snap.Extent, d)
}

func (c *Controller) pendingIDs() []string {
	var ids []string
	for _, it := range c.cat.Items() {
		if it.State == catalog.Pending {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
