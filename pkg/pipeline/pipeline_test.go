package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/masonry/pkg/cache"
	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/layout"
)

func quietLogger() *log.Logger {
	l := log.New(os.Stderr)
	l.SetLevel(log.ErrorLevel)
	return l
}

func writeCatalog(t *testing.T, items []catalog.Item) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wall.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := catalog.Encode(f, items); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleItems() []catalog.Item {
	return []catalog.Item{
		{ID: "a", Caption: "Golden retriever puppy asleep on a porch swing", NaturalWidth: 236, NaturalHeight: 354},
		{ID: "b", Caption: "", NaturalWidth: 236, NaturalHeight: 200},
		{ID: "c", Caption: "Fog", NaturalWidth: 500, NaturalHeight: 500},
		{ID: "d", Caption: "Lighthouse", NaturalWidth: 0, NaturalHeight: 10},
	}
}

func TestValidateSource(t *testing.T) {
	tests := []struct {
		kind    string
		wantErr bool
	}{
		{"file", false},
		{"board", false},
		{"mongo", false},
		{"FILE", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateSource(tt.kind)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSource(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.Layout != layout.DefaultConfig() {
		t.Errorf("Layout = %+v", o.Layout)
	}
	if o.CaptionPadding != 6 || o.MaxLines != 2 || o.FontSize != 14 {
		t.Errorf("typography defaults = %v %v %v", o.CaptionPadding, o.MaxLines, o.FontSize)
	}
	if o.ProbeTimeout != DefaultProbeTimeout || o.FallbackHeight != 20 {
		t.Errorf("fallback defaults = %v %v", o.ProbeTimeout, o.FallbackHeight)
	}
	if o.Source != SourceFile || o.Format != layout.FormatJSON || o.Repeat != 1 {
		t.Errorf("defaults = %q %q %d", o.Source, o.Format, o.Repeat)
	}
	if e := o.EngineOptions(); e.ProbeWidth() != 224 {
		t.Errorf("probe width = %v, want 224", e.ProbeWidth())
	}
}

func TestValidateForLoad(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"file without input", Options{Source: SourceFile}, errors.ErrCodeInvalidInput},
		{"board without id", Options{Source: SourceBoard}, errors.ErrCodeInvalidInput},
		{"mongo without uri", Options{Source: SourceMongo}, errors.ErrCodeInvalidInput},
		{"unknown source", Options{Source: "ftp"}, errors.ErrCodeInvalidInput},
		{"repeat too large", Options{Source: SourceFile, Input: "wall.yaml", Repeat: 100000000}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateForLoad()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateForLayout(t *testing.T) {
	o := DefaultOptions()
	o.ProbeTimeout = -time.Second
	if err := o.ValidateForLayout(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative timeout: %v", err)
	}
	o = DefaultOptions()
	o.Layout.Gutter = -1
	if err := o.ValidateForLayout(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative gutter: %v", err)
	}
}

func TestExecute(t *testing.T) {
	opts := DefaultOptions()
	opts.Input = writeCatalog(t, sampleItems())
	opts.Logger = quietLogger()

	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Snapshot.Len() != 4 || res.Stats.ItemCount != 4 {
		t.Errorf("placed %d of %d items", res.Snapshot.Len(), res.Stats.ItemCount)
	}
	if res.Stats.Columns != 5 {
		t.Errorf("columns = %d, want 5 at 1280px", res.Stats.Columns)
	}

	b, _ := res.Snapshot.Placement("b")
	if b.CaptionHeight != 0 {
		t.Errorf("empty caption height = %v", b.CaptionHeight)
	}
	a, _ := res.Snapshot.Placement("a")
	c, _ := res.Snapshot.Placement("c")
	if a.CaptionHeight <= c.CaptionHeight {
		t.Errorf("long caption %v should be taller than short %v", a.CaptionHeight, c.CaptionHeight)
	}
	d, _ := res.Snapshot.Placement("d")
	if d.ImageHeight != layout.DefaultColumnWidth {
		t.Errorf("zero-width image height = %v, want square", d.ImageHeight)
	}

	var decoded map[string]any
	if err := json.Unmarshal(res.Output, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Input = writeCatalog(t, sampleItems())
	opts.Format = layout.FormatCBOR
	opts.Repeat = 3

	r := NewRunner(nil, nil, quietLogger())
	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Snapshot.Equal(second.Snapshot) {
		t.Error("two runs over the same catalog should produce equal snapshots")
	}
	if first.Snapshot.Len() != 12 {
		t.Errorf("repeat 3 placed %d items, want 12", first.Snapshot.Len())
	}
	decoded, err := layout.UnmarshalSnapshot(first.Output, layout.FormatCBOR)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(first.Snapshot) {
		t.Error("CBOR output does not round trip")
	}
}

func TestExecuteRejectsDuplicates(t *testing.T) {
	items := sampleItems()
	items[1].ID = "a"
	opts := DefaultOptions()
	opts.Input = writeCatalog(t, items)

	_, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeDuplicateItem) {
		t.Errorf("err = %v, want duplicate item", err)
	}
}

func TestLayoutUsesCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	opts := DefaultOptions()
	ctx := context.Background()

	first, err := r.Layout(ctx, sampleItems(), opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Layout(ctx, sampleItems(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Error("cached measurements should reproduce the layout")
	}
	entries, _ := os.ReadDir(fc.(*cache.FileCache).Dir())
	if len(entries) == 0 {
		t.Error("expected caption measurements in the cache")
	}
}

func TestLoadCatalogBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"9","type":"pin","title":"Tide pools",
			"image_medium_url":"https://i.example.com/x.jpg",
			"image_medium_size_pixels":{"width":100,"height":150}}]}`))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Source = SourceBoard
	opts.Board.BaseURL = srv.URL
	opts.Board.BoardID = "9"
	opts.Repeat = 6

	items, err := NewRunner(nil, nil, quietLogger()).LoadCatalog(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 6 || items[5].ID != "9#6" {
		t.Errorf("items = %d, last id = %q", len(items), items[len(items)-1].ID)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := strings.Join([]string{
		`source = "board"`,
		`repeat = 6`,
		`probe_timeout = "2s"`,
		`max_lines = 3`,
		`format = "cbor"`,
		``,
		`[layout]`,
		`column_width = 200`,
		`gutter = 10`,
		``,
		`[board]`,
		`board_id = "207024982809674537"`,
		`page_size = 50`,
	}, "\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if opts.Source != SourceBoard || opts.Repeat != 6 || opts.Format != "cbor" {
		t.Errorf("top-level = %q %d %q", opts.Source, opts.Repeat, opts.Format)
	}
	if opts.ProbeTimeout != 2*time.Second || opts.MaxLines != 3 {
		t.Errorf("measure = %v %d", opts.ProbeTimeout, opts.MaxLines)
	}
	if opts.Layout.ColumnWidth != 200 || opts.Layout.Gutter != 10 {
		t.Errorf("layout = %+v", opts.Layout)
	}
	if opts.Layout.CaptionOffset != layout.DefaultCaptionOffset {
		t.Errorf("unset keys should keep defaults: %+v", opts.Layout)
	}
	if opts.Board.BoardID != "207024982809674537" || opts.Board.PageSize != 50 {
		t.Errorf("board = %+v", opts.Board)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing explicit config: %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("colum_width = 3\n"), 0644)
	if _, err := LoadConfig(bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key: %v", err)
	}

	broken := filepath.Join(dir, "broken.toml")
	os.WriteFile(broken, []byte("source = \n"), 0644)
	if _, err := LoadConfig(broken); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("syntax error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBoardToken, "tok")
	t.Setenv(EnvMongoURI, "mongodb://localhost")

	o := DefaultOptions()
	o.ApplyEnv()
	if o.Board.Token != "tok" || o.Mongo.URI != "mongodb://localhost" {
		t.Errorf("env not applied: %+v %+v", o.Board, o.Mongo)
	}

	o.Board.Token = "flag"
	o.ApplyEnv()
	if o.Board.Token != "flag" {
		t.Error("explicit value should win over env")
	}
}
