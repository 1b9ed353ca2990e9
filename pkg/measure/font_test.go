package measure

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/masonry/pkg/fonts"
)

func newFontMeasurer(t *testing.T, maxLines int) *FontMeasurer {
	t.Helper()
	m, err := NewFontMeasurer(FontOptions{Family: fonts.Bold, Size: 14, MaxLines: maxLines})
	if err != nil {
		t.Fatalf("NewFontMeasurer: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestFontMeasurerLines(t *testing.T) {
	m := newFontMeasurer(t, 0)

	tests := []struct {
		name  string
		text  string
		width float64
		want  int
	}{
		{"empty", "", 224, 0},
		{"blank", "   ", 224, 0},
		{"short", "Lake", 224, 1},
		{"wraps", strings.Repeat("word ", 40), 224, 0},
		{"long word", strings.Repeat("x", 200), 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := m.Lines(tt.text, tt.width)
			if tt.want > 0 && len(lines) != tt.want {
				t.Errorf("lines = %d, want %d", len(lines), tt.want)
			}
			if tt.want == 0 && strings.TrimSpace(tt.text) != "" && len(lines) < 2 {
				t.Errorf("lines = %d, want wrapping", len(lines))
			}
			for _, l := range lines {
				if l == "" {
					t.Error("empty line produced")
				}
			}
		})
	}
}

func TestFontMeasurerPreservesText(t *testing.T) {
	m := newFontMeasurer(t, 0)
	text := "Autumn colours along the old canal towpath near the lock keeper's cottage"
	lines := m.Lines(text, 120)
	if got := strings.Join(lines, " "); got != text {
		t.Errorf("joined lines = %q, want %q", got, text)
	}
}

func TestFontMeasurerNarrowerMeansTaller(t *testing.T) {
	m := newFontMeasurer(t, 0)
	ctx := context.Background()
	text := strings.Repeat("mountain trail ", 10)

	wide, err := m.MeasureCaption(ctx, text, 400)
	if err != nil {
		t.Fatal(err)
	}
	narrow, err := m.MeasureCaption(ctx, text, 100)
	if err != nil {
		t.Fatal(err)
	}
	if narrow <= wide {
		t.Errorf("narrow %v should exceed wide %v", narrow, wide)
	}
}

func TestFontMeasurerClamp(t *testing.T) {
	m := newFontMeasurer(t, DefaultMaxLines)
	h, err := m.MeasureCaption(context.Background(), strings.Repeat("word ", 80), 100)
	if err != nil {
		t.Fatal(err)
	}
	if want := DefaultMaxLines * m.LineHeight(); h != want {
		t.Errorf("height = %v, want clamp %v", h, want)
	}

	h, _ = m.MeasureCaption(context.Background(), "", 100)
	if h != 0 {
		t.Errorf("empty caption height = %v, want 0", h)
	}
}

func TestFontMeasurerLineHeightOverride(t *testing.T) {
	m, err := NewFontMeasurer(FontOptions{LineHeight: 20})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	h, _ := m.MeasureCaption(context.Background(), "one", 200)
	if h != 20 {
		t.Errorf("height = %v, want 20", h)
	}
	if !strings.HasPrefix(m.Variant(), fonts.DefaultFamily) {
		t.Errorf("Variant = %q", m.Variant())
	}
}

func TestFontMeasurerCancelled(t *testing.T) {
	m := newFontMeasurer(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.MeasureCaption(ctx, "x", 100); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewFontMeasurerErrors(t *testing.T) {
	if _, err := NewFontMeasurer(FontOptions{Family: "comic"}); err == nil {
		t.Error("expected error for unknown family")
	}
	if _, err := NewFontMeasurer(FontOptions{MaxLines: -1}); err == nil {
		t.Error("expected error for negative max lines")
	}
}
