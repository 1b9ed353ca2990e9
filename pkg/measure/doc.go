// Package measure resolves caption heights.
//
// Caption height is the one tile dimension that is unknown until the caption
// text has been shaped at the column's fixed width. This package splits that
// work into two halves:
//
//   - [Coordinator] drives each catalog item from Unmeasured to Resolved. It
//     issues one [Request] per item to a [Probe], applies the reports that
//     come back, and optionally resolves probes that never answer to a
//     fallback height after a timeout.
//
//   - [Probe] implementations do the actual shaping. [AsyncProbe] runs a
//     [Measurer] on a bounded pool of goroutines and publishes results on a
//     channel in completion order. [FontMeasurer] shapes text with an
//     embedded Go font, and [CachedMeasurer] memoizes any Measurer through
//     a [cache.Cache].
//
// The coordinator never blocks and never locks; all concurrency lives on
// the probe side of the boundary.
package measure
