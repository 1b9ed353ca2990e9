// Package fonts provides the embedded faces used to measure captions.
//
// The faces come from the Go font family bundled with golang.org/x/image,
// so measurement works without any system fonts installed.
package fonts

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Family names accepted by [Face].
const (
	Bold    = "gobold"
	Regular = "goregular"
)

// DefaultFamily matches the bold caption style of the board UI.
const DefaultFamily = Bold

// DefaultSize is the caption font size in points (rendered at 72 DPI, so
// points equal pixels).
const DefaultSize = 14.0

var (
	parsed   = map[string]*opentype.Font{}
	parsedMu sync.Mutex
)

func load(family string) (*opentype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[family]; ok {
		return f, nil
	}

	var data []byte
	switch strings.ToLower(family) {
	case Bold, "":
		data = gobold.TTF
	case Regular:
		data = goregular.TTF
	default:
		return nil, fmt.Errorf("unknown font family %q (want %s or %s)", family, Bold, Regular)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", family, err)
	}
	parsed[family] = f
	return f, nil
}

// Face returns a new face for family at size points. Faces are not safe for
// concurrent use; callers own the returned face and must Close it.
func Face(family string, size float64) (font.Face, error) {
	if size <= 0 {
		size = DefaultSize
	}
	f, err := load(family)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Families lists the accepted family names.
func Families() []string {
	return []string{Bold, Regular}
}
