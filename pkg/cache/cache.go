// Package cache provides pluggable byte caches for caption measurements and
// catalog source responses.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry, used by the CLI (~/.cache/masonry)
//   - [RedisCache]: shared cache for the layout service
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that every component agrees on namespacing.
// Layout snapshots themselves are never cached: every layout pass recomputes
// positions from the current catalog.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	// TTLCaption is long: a caption's rendered height only changes when the
	// font or width changes, and both are part of the key.
	TTLCaption = 30 * 24 * time.Hour

	// TTLHTTP bounds how stale a fetched board page may get.
	TTLHTTP = 24 * time.Hour
)

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey keys a catalog source response.
	HTTPKey(namespace, key string) string
	// CaptionKey keys a caption measurement. variant identifies the text
	// shaper (font, size, line clamp).
	CaptionKey(text string, width float64, variant string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// CaptionKey returns "caption:<sha256>" over the text, width and variant.
func (DefaultKeyer) CaptionKey(text string, width float64, variant string) string {
	return hashKey("caption", variant, strconv.FormatFloat(width, 'g', -1, 64), text)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}
