package engine

import (
	"context"
	"time"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
)

// Wait runs a host loop until the controller is Positioned. It delivers
// every report received on reports and, when a probe timeout is
// configured, expires stale probes as their deadlines pass.
//
// Wait returns ctx.Err() if ctx ends first, and an UNRESOLVED_CAPTION error
// if reports is closed while captions are still pending and no timeout can
// resolve them.
func (c *Controller) Wait(ctx context.Context, reports <-chan catalog.Report) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for c.phase != Positioned {
		var deadline <-chan time.Time
		if at, ok := c.coord.NextDeadline(); ok {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(time.Until(at))
			deadline = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-reports:
			if !ok {
				reports = nil
				if deadline == nil {
					n := c.cat.Counts()
					return errors.New(errors.ErrCodeUnresolved,
						"probe stopped with %d caption(s) pending", n.Pending+n.Unmeasured)
				}
				continue
			}
			c.Deliver(r)
		case <-deadline:
			c.Expire()
		}
	}
	return nil
}
