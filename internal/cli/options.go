package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/pipeline"
)

// optionFlags are the pipeline flags shared by layout, measure, fetch and
// preview. Only flags the user actually set override the config file.
type optionFlags struct {
	config      string
	source      string
	inputFormat string
	board       string
	repeat      int
	viewport    string
	columnWidth float64
	gutter      float64
	font        string
	fontSize    float64
	maxLines    int
	timeout     time.Duration
	workers     int
	refresh     bool
}

func (f *optionFlags) register(cmd *cobra.Command) {
	d := pipeline.DefaultOptions()
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "config file (default: "+pipeline.DefaultConfigPath()+")")
	fs.StringVar(&f.source, "source", d.Source, "catalog source: file, board, mongo")
	fs.StringVar(&f.inputFormat, "input-format", "", "catalog format: json, yaml, toml (default: from extension)")
	fs.StringVar(&f.board, "board", "", "board id (implies --source board)")
	fs.IntVar(&f.repeat, "repeat", d.Repeat, "lay the catalog out this many times")
	fs.StringVar(&f.viewport, "viewport", "", "viewport size as WIDTHxHEIGHT (default: 1280x800)")
	fs.Float64Var(&f.columnWidth, "column-width", d.Layout.ColumnWidth, "column width")
	fs.Float64Var(&f.gutter, "gutter", d.Layout.Gutter, "gutter between columns and tiles")
	fs.StringVar(&f.font, "font", d.Font, "caption font: gobold, goregular")
	fs.Float64Var(&f.fontSize, "font-size", d.FontSize, "caption font size in points")
	fs.IntVar(&f.maxLines, "max-lines", d.MaxLines, "caption line clamp (negative for none)")
	fs.DurationVar(&f.timeout, "timeout", d.ProbeTimeout, "caption probe timeout before the fallback height is used (0 waits forever)")
	fs.IntVar(&f.workers, "workers", d.Workers, "concurrent caption measurements")
	fs.BoolVar(&f.refresh, "refresh", false, "bypass cached board responses")
}

// resolve loads the config file and applies every changed flag on top.
func (f *optionFlags) resolve(cmd *cobra.Command, input string, logger *log.Logger) (pipeline.Options, error) {
	opts, err := pipeline.LoadConfig(f.config)
	if err != nil {
		return opts, err
	}
	changed := cmd.Flags().Changed

	if input != "" {
		opts.Source = pipeline.SourceFile
		opts.Input = input
	}
	if f.board != "" {
		opts.Source = pipeline.SourceBoard
		opts.Board.BoardID = f.board
	}
	if changed("source") {
		opts.Source = f.source
	}
	if changed("input-format") {
		opts.InputFormat = f.inputFormat
	}
	if changed("repeat") {
		opts.Repeat = f.repeat
	}
	if f.viewport != "" {
		w, h, err := parseViewport(f.viewport)
		if err != nil {
			return opts, err
		}
		opts.Layout.ViewportWidth = w
		opts.Layout.ViewportHeight = h
	}
	if changed("column-width") {
		opts.Layout.ColumnWidth = f.columnWidth
	}
	if changed("gutter") {
		opts.Layout.Gutter = f.gutter
	}
	if changed("font") {
		opts.Font = f.font
	}
	if changed("font-size") {
		opts.FontSize = f.fontSize
	}
	if changed("max-lines") {
		opts.MaxLines = f.maxLines
	}
	if changed("timeout") {
		opts.ProbeTimeout = f.timeout
	}
	if changed("workers") {
		opts.Workers = f.workers
	}

	opts.Refresh = f.refresh
	opts.Logger = logger
	opts.ApplyEnv()
	return opts, nil
}

// parseViewport parses "1280x800".
func parseViewport(s string) (float64, float64, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid viewport %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(ws), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport width %q: %w", ws, err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid viewport height %q: %w", hs, err)
	}
	if w < 0 || h < 0 {
		return 0, 0, fmt.Errorf("invalid viewport %q: dimensions must be >= 0", s)
	}
	return w, h, nil
}
