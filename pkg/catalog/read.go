package catalog

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Supported catalog file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// file is the document shape shared by all formats. JSON additionally
// accepts a bare top-level array.
type file struct {
	Items []Item `json:"items" yaml:"items" toml:"items"`
}

// FormatFromPath infers the catalog format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported catalog file %q (want .json, .yaml or .toml)", path)
	}
}

// ReadFile reads and normalizes a catalog file. The format is chosen from the
// file extension.
func ReadFile(path string) ([]Item, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "catalog %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads items in the given format and normalizes them. Items are not
// validated here; [New] and [Catalog.Append] do that.
func Decode(r io.Reader, format string) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var doc file
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &doc.Items)
		} else {
			err = json.Unmarshal(trimmed, &doc)
		}
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		_, err = toml.Decode(string(data), &doc)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode %s catalog", format)
	}
	return Normalize(doc.Items), nil
}

// Encode writes items as a JSON catalog document.
func Encode(w io.Writer, items []Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file{Items: items})
}
