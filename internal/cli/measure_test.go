package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/fonts"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

func TestMeasureCaptions(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := pipeline.NewRunner(fc, nil, nil)

	fm, err := measure.NewFontMeasurer(measure.FontOptions{Family: fonts.Bold, Size: fonts.DefaultSize, MaxLines: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer fm.Close()
	cm := measure.NewCachedMeasurer(fm, runner.Cache, runner.Keyer, nil)

	items := []catalog.Item{
		{ID: "short", Caption: "Dunes", NaturalWidth: 1, NaturalHeight: 1},
		{ID: "long", Caption: strings.Repeat("sandstone ", 40), NaturalWidth: 1, NaturalHeight: 1},
		{ID: "blank", Caption: "   ", NaturalWidth: 1, NaturalHeight: 1},
	}

	rows, err := measureCaptions(ctx, items, fm, cm, runner, 224)
	if err != nil {
		t.Fatalf("measureCaptions: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	lh := fm.LineHeight()
	if rows[0].lines != 1 || rows[0].height != lh {
		t.Errorf("short: lines=%d height=%v, want 1 and %v", rows[0].lines, rows[0].height, lh)
	}
	if rows[1].lines <= 2 || rows[1].height != 2*lh {
		t.Errorf("long: lines=%d height=%v, want >2 lines clamped to %v", rows[1].lines, rows[1].height, 2*lh)
	}
	if rows[2].lines != 0 || rows[2].height != 0 {
		t.Errorf("blank: lines=%d height=%v, want zero", rows[2].lines, rows[2].height)
	}
	for _, r := range rows {
		if r.cached {
			t.Errorf("%s: first run should not be cached", r.id)
		}
	}

	rows, err = measureCaptions(ctx, items, fm, cm, runner, 224)
	if err != nil {
		t.Fatal(err)
	}
	if !rows[0].cached || !rows[1].cached {
		t.Error("second run should hit the caption cache")
	}

	out := renderCaptionTable(rows, 2)
	for _, want := range []string{"short", "long", "Dunes", iconCached} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trun…"},
		{"ünïcödé", 4, "ünï…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
