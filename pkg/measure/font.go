package measure

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/fonts"
)

// Caption typography defaults.
const (
	DefaultMaxLines       = 2
	DefaultCaptionPadding = 6.0
)

// FontOptions configures a FontMeasurer.
type FontOptions struct {
	Family string  // fonts.Bold or fonts.Regular
	Size   float64 // points; 0 selects fonts.DefaultSize

	// LineHeight overrides the face's line height. Zero uses the face metrics.
	LineHeight float64

	// MaxLines clamps the caption block. Zero means unlimited.
	MaxLines int
}

// FontMeasurer shapes captions with an embedded font and greedy word
// wrapping. Words wider than the line are broken between runes.
type FontMeasurer struct {
	mu         sync.Mutex
	face       font.Face
	lineHeight float64
	opts       FontOptions
}

// NewFontMeasurer loads the face described by opts.
func NewFontMeasurer(opts FontOptions) (*FontMeasurer, error) {
	if opts.Family == "" {
		opts.Family = fonts.DefaultFamily
	}
	if opts.Size <= 0 {
		opts.Size = fonts.DefaultSize
	}
	if opts.MaxLines < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "max lines must be >= 0, got %d", opts.MaxLines)
	}
	face, err := fonts.Face(opts.Family, opts.Size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load caption font")
	}
	lh := opts.LineHeight
	if lh <= 0 {
		lh = toFloat(face.Metrics().Height)
	}
	return &FontMeasurer{face: face, lineHeight: lh, opts: opts}, nil
}

// Variant identifies the typography, for cache keys.
func (m *FontMeasurer) Variant() string {
	return fmt.Sprintf("%s-%g-%g-%d", m.opts.Family, m.opts.Size, m.lineHeight, m.opts.MaxLines)
}

// LineHeight returns the height of one caption line.
func (m *FontMeasurer) LineHeight() float64 { return m.lineHeight }

// MeasureCaption returns the height of text wrapped at width, after the
// line clamp.
func (m *FontMeasurer) MeasureCaption(ctx context.Context, text string, width float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := len(m.Lines(text, width))
	if m.opts.MaxLines > 0 && n > m.opts.MaxLines {
		n = m.opts.MaxLines
	}
	return float64(n) * m.lineHeight, nil
}

// Lines wraps text at width and returns the unclamped lines.
func (m *FontMeasurer) Lines(text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	limit := toFixed(width)

	m.mu.Lock()
	defer m.mu.Unlock()

	var lines []string
	cur := ""
	for _, w := range words {
		switch {
		case cur == "":
			cur = w
		case font.MeasureString(m.face, cur+" "+w) <= limit:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
		for font.MeasureString(m.face, cur) > limit && utf8.RuneCountInString(cur) > 1 {
			head := m.fit(cur, limit)
			lines = append(lines, head)
			cur = cur[len(head):]
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// Close releases the face.
func (m *FontMeasurer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.face.Close()
}

// fit returns the longest rune prefix of s no wider than limit, and at
// least one rune.
func (m *FontMeasurer) fit(s string, limit fixed.Int26_6) string {
	_, size := utf8.DecodeRuneInString(s)
	end := size
	for end < len(s) {
		_, size = utf8.DecodeRuneInString(s[end:])
		if font.MeasureString(m.face, s[:end+size]) > limit {
			break
		}
		end += size
	}
	return s[:end]
}

func toFixed(v float64) fixed.Int26_6 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1<<24 {
		v = 1 << 24
	}
	return fixed.Int26_6(math.Round(v * 64))
}

func toFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
