package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/engine"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/source"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating wiring.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → encode pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForEncode(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	items, err := r.LoadCatalog(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.ItemCount = len(items)

	r.Logger.Info("loaded catalog",
		"source", opts.Source,
		"items", len(items),
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	snap, fallbacks, err := r.layout(ctx, items, opts)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Columns = snap.Columns
	result.Stats.Extent = snap.Extent
	result.Stats.Fallbacks = fallbacks

	r.Logger.Info("computed layout",
		"columns", snap.Columns,
		"extent", snap.Extent,
		"fallbacks", fallbacks,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Encode
	out, err := r.Encode(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	result.Output = out
	return result, nil
}

// Source builds the catalog source described by opts. The returned close
// function releases any connection the source holds.
func (r *Runner) Source(ctx context.Context, opts Options) (source.Source, func(), error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, err
	}
	noop := func() {}

	switch opts.Source {
	case SourceBoard:
		board := opts.Board
		board.Refresh = board.Refresh || opts.Refresh
		src, err := source.NewBoardSource(board, r.Cache, r.Keyer, opts.Logger)
		if err != nil {
			return nil, nil, err
		}
		return src, noop, nil
	case SourceMongo:
		src, err := source.NewMongoSource(ctx, opts.Mongo, opts.Logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close(context.Background()) }, nil
	default:
		return source.FileSource{Path: opts.Input, Format: opts.InputFormat}, noop, nil
	}
}

// LoadCatalog loads the items described by opts and applies Repeat.
func (r *Runner) LoadCatalog(ctx context.Context, opts Options) ([]catalog.Item, error) {
	r.applyLogger(&opts)
	src, closeSrc, err := r.Source(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, src.Name())
	start := time.Now()

	items, err := src.Load(ctx)
	hooks.OnLoadComplete(ctx, src.Name(), len(items), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if opts.Repeat > 1 {
		items = catalog.Repeat(items, opts.Repeat)
	}
	return items, nil
}

// Measurer returns the caption measurer for opts, backed by the runner's
// cache.
func (r *Runner) Measurer(opts Options) (measure.Measurer, error) {
	opts.SetMeasureDefaults()
	fm, err := measure.NewFontMeasurer(opts.FontOptions())
	if err != nil {
		return nil, err
	}
	return measure.NewCachedMeasurer(fm, r.Cache, r.Keyer, r.Logger), nil
}

// Layout measures every caption and returns the positioned snapshot.
func (r *Runner) Layout(ctx context.Context, items []catalog.Item, opts Options) (*layout.Snapshot, error) {
	snap, _, err := r.layout(ctx, items, opts)
	return snap, err
}

func (r *Runner) layout(ctx context.Context, items []catalog.Item, opts Options) (*layout.Snapshot, int, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, 0, err
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, len(items))
	start := time.Now()

	snap, fallbacks, err := r.run(ctx, items, opts)
	hooks.OnLayoutComplete(ctx, len(items), time.Since(start), err)
	return snap, fallbacks, err
}

func (r *Runner) run(ctx context.Context, items []catalog.Item, opts Options) (*layout.Snapshot, int, error) {
	m, err := r.Measurer(opts)
	if err != nil {
		return nil, 0, err
	}
	probe := measure.NewAsyncProbe(ctx, m, measure.AsyncOptions{
		Workers: opts.Workers,
		Buffer:  len(items),
		Logger:  opts.Logger,
	})
	defer probe.Close()

	ctrl, err := engine.New(probe, opts.EngineOptions())
	if err != nil {
		return nil, 0, err
	}
	if err := ctrl.Append(items...); err != nil {
		return nil, 0, err
	}
	if err := ctrl.Wait(ctx, probe.Reports()); err != nil {
		if ctx.Err() != nil {
			return nil, 0, errors.Wrap(errors.ErrCodeTimeout, err, "layout cancelled with %d caption(s) in flight", ctrl.InFlight())
		}
		return nil, 0, err
	}

	snap, ok := ctrl.Snapshot()
	if !ok {
		return nil, 0, errors.New(errors.ErrCodeInternal, "engine settled without a snapshot")
	}
	return snap, ctrl.Fallbacks(), nil
}

// Encode serializes snap in opts.Format.
func (r *Runner) Encode(ctx context.Context, snap *layout.Snapshot, opts Options) ([]byte, error) {
	if err := opts.ValidateForEncode(); err != nil {
		return nil, err
	}
	data, err := layout.MarshalSnapshot(snap, opts.Format)
	observability.Pipeline().OnEncodeComplete(ctx, opts.Format, len(data), err)
	return data, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
