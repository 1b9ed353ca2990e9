// Package source loads item catalogs.
//
// A [Source] produces the ordered item list that seeds the layout engine.
// Three sources are provided:
//
//   - [FileSource] reads a JSON, YAML, or TOML catalog file.
//   - [BoardSource] fetches a pin board from a board HTTP API and maps its
//     pins to items.
//   - [MongoSource] reads items from a MongoDB collection.
//
// Every source normalizes its output with [catalog.Normalize]; validation
// happens when the items are appended to a catalog.
package source

import (
	"context"
	"os"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
)

// Source produces an ordered item list.
type Source interface {
	// Name describes the source for logs and hooks.
	Name() string
	// Load fetches the items.
	Load(ctx context.Context) ([]catalog.Item, error)
}

// FileSource reads a catalog file. An empty Format is inferred from the
// file extension. Path "-" reads standard input.
type FileSource struct {
	Path   string
	Format string
}

// Name returns "file".
func (s FileSource) Name() string { return "file" }

// Load reads and decodes the file.
func (s FileSource) Load(ctx context.Context) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Path == "-" {
		format := s.Format
		if format == "" {
			format = catalog.FormatJSON
		}
		return catalog.Decode(os.Stdin, format)
	}
	if s.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "catalog path is required")
	}
	if s.Format != "" {
		f, err := os.Open(s.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeNotFound, err, "catalog %s", s.Path)
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open catalog %s", s.Path)
		}
		defer f.Close()
		return catalog.Decode(f, s.Format)
	}
	return catalog.ReadFile(s.Path)
}

// Static is a Source over a fixed item list.
type Static []catalog.Item

// Name returns "static".
func (Static) Name() string { return "static" }

// Load returns a normalized copy of the items.
func (s Static) Load(ctx context.Context) ([]catalog.Item, error) {
	return catalog.Normalize(s), ctx.Err()
}
