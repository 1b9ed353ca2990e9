package measure

import (
	"context"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/observability"
)

// CachedMeasurer memoizes caption heights. Keys cover the text, the width,
// and the inner measurer's variant, so changing the font invalidates them.
type CachedMeasurer struct {
	inner  Measurer
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
}

// NewCachedMeasurer wraps inner with c. A nil keyer selects the default.
func NewCachedMeasurer(inner Measurer, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *CachedMeasurer {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &CachedMeasurer{inner: inner, cache: c, keyer: keyer, logger: logger}
}

// Variant forwards the inner measurer's variant.
func (m *CachedMeasurer) Variant() string { return variant(m.inner) }

// MeasureCaption returns the cached height or measures and stores it.
// Cache failures are logged and never fail the measurement.
func (m *CachedMeasurer) MeasureCaption(ctx context.Context, text string, width float64) (float64, error) {
	key := m.keyer.CaptionKey(text, width, variant(m.inner))

	data, hit, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Debug("caption cache read failed", "error", err)
	}
	if hit {
		if h, perr := strconv.ParseFloat(string(data), 64); perr == nil {
			observability.Cache().OnCacheHit(ctx, "caption")
			return h, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "caption")

	h, err := m.inner.MeasureCaption(ctx, text, width)
	if err != nil {
		return 0, err
	}

	val := []byte(strconv.FormatFloat(h, 'g', -1, 64))
	if err := m.cache.Set(ctx, key, val, cache.TTLCaption); err != nil {
		m.logger.Debug("caption cache write failed", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "caption", len(val))
	}
	return h, nil
}
