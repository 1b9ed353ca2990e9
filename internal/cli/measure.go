package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// maxCaptionColumn truncates captions in the measure table.
const maxCaptionColumn = 48

// captionRow is one measured caption.
type captionRow struct {
	id     string
	text   string
	lines  int
	height float64
	cached bool
}

// measureCommand creates the measure command that prints caption heights.
func (c *CLI) measureCommand() *cobra.Command {
	var (
		flags   optionFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "measure [catalog]",
		Short: "Measure caption heights without laying out",
		Long: `Measure caption heights without laying out.

Each caption is wrapped at the probe width (column width minus caption
padding) with the configured font, clamped to the line limit, and printed
with its height. Heights are stored in the caption cache, so a following
'layout' run reuses them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			}
			opts, err := flags.resolve(cmd, input, loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}
			return c.runMeasure(cmd.Context(), opts, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runMeasure(ctx context.Context, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(opts.Logger)
	items, err := runner.LoadCatalog(ctx, opts)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	prog.done(fmt.Sprintf("Loaded %d items", len(items)))

	if err := opts.ValidateForLayout(); err != nil {
		return err
	}
	fm, err := measure.NewFontMeasurer(opts.FontOptions())
	if err != nil {
		return err
	}
	defer fm.Close()
	cm := measure.NewCachedMeasurer(fm, runner.Cache, runner.Keyer, opts.Logger)
	width := opts.EngineOptions().ProbeWidth()

	rows, err := measureCaptions(ctx, items, fm, cm, runner, width)
	if err != nil {
		return err
	}

	fmt.Println(renderCaptionTable(rows, opts.MaxLines))
	printKeyValue("Probe width", strconv.FormatFloat(width, 'f', -1, 64))
	printKeyValue("Font", fm.Variant())
	return nil
}

// measureCaptions measures every caption through cm. Line counts come from
// fm so the table shows the unclamped wrap.
func measureCaptions(ctx context.Context, items []catalog.Item, fm *measure.FontMeasurer, cm *measure.CachedMeasurer, runner *pipeline.Runner, width float64) ([]captionRow, error) {
	rows := make([]captionRow, 0, len(items))
	for _, it := range items {
		text := strings.TrimSpace(it.Caption)
		row := captionRow{id: it.ID, text: text}
		if text != "" {
			_, hit, _ := runner.Cache.Get(ctx, runner.Keyer.CaptionKey(text, width, cm.Variant()))
			h, err := cm.MeasureCaption(ctx, text, width)
			if err != nil {
				return nil, fmt.Errorf("measure %s: %w", it.ID, err)
			}
			row.height = h
			row.lines = len(fm.Lines(text, width))
			row.cached = hit
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func renderCaptionTable(rows []captionRow, maxLines int) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		status := ""
		if r.text != "" {
			status = iconFresh
			if r.cached {
				status = iconCached
			}
		}
		data[i] = []string{
			r.id,
			truncate(r.text, maxCaptionColumn),
			strconv.Itoa(r.lines),
			strconv.FormatFloat(r.height, 'f', -1, 64),
			status,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Caption", "Lines", "Height", "").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			r := rows[row]
			switch col {
			case 2:
				if maxLines > 0 && r.lines > maxLines {
					return StyleWarning
				}
				return StyleNumber
			case 3:
				return StyleNumber
			case 4:
				if r.cached {
					return styleCached
				}
				return styleComputed
			}
			if r.text == "" {
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}

// truncate shortens s to n runes with a trailing ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
