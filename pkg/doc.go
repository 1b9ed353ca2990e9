// Package pkg provides the core libraries for masonry, a pin wall layout
// engine.
//
// # Overview
//
// Masonry places a catalog of captioned images into fixed-width columns. Each
// tile goes into the currently shortest column, so its height must be known
// before it is placed. Image heights follow from the aspect ratio; caption
// heights depend on text wrapping and are measured asynchronously. The engine
// holds every tile back until all captions have reported, then publishes one
// consistent snapshot of positions.
//
// # Architecture
//
// The typical data flow:
//
//	file / board API / MongoDB
//	         ↓
//	    [source] (load items)
//	         ↓
//	    [catalog] (validated, id-indexed items with caption state)
//	         ↓
//	    [engine] ←→ [measure] (probe captions, apply reports)
//	         ↓
//	    [layout] (shortest-column placement)
//	         ↓
//	    JSON / CBOR snapshot
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Input = "wall.yaml"
//	result, err := runner.Execute(ctx, opts)
//
// Drive the engine directly when captions are measured elsewhere, for
// example by a render surface:
//
//	ctrl, _ := engine.New(probe, engine.DefaultOptions())
//	_ = ctrl.Append(items...)
//	// later, for each answered measure.Request:
//	ctrl.Deliver(req.Report(h))
//	if snap, ok := ctrl.Snapshot(); ok {
//	    draw(snap)
//	}
//
// # Main Packages
//
// [catalog] - Items, caption states and the pure report transition.
//
// [layout] - Column allocator, geometry and snapshot encoding.
//
// [measure] - Probe coordination, font-based caption measurement, caching
// and the async worker probe.
//
// [engine] - The controller that sequences measuring and positioning.
//
// [source] - Catalog sources: files, the board API and MongoDB.
//
// [pipeline] - Load, layout and encode with shared defaults, used by the CLI
// and the HTTP server.
//
// [server] - HTTP layout service.
//
// [cache] - File, Redis and null byte caches with retry helpers.
//
// [observability] - Hook registry for metrics and tracing.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	MASONRY_REDIS_URL=redis://localhost:6379 go test ./pkg/cache
//	MASONRY_MONGO_URI=mongodb://localhost go test ./pkg/source
package pkg
