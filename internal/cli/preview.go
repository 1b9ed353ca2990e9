package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/engine"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/measure"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// Terminal cell size in layout pixels.
const (
	cellWidth  = 8.0
	cellHeight = 16.0

	// chrome is the number of terminal rows used by the header and footer.
	chrome     = 3
	scrollStep = 3
)

var (
	tileStyle    = lipgloss.NewStyle().Foreground(colorGray)
	previewTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// previewCommand creates the interactive preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		flags   optionFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "preview [catalog]",
		Short: "Show the pin wall in the terminal",
		Long: `Show the pin wall in the terminal.

Captions are measured in the background; the wall appears once every caption
has a height. Resizing the terminal re-runs the layout with the new column
count. Scroll with the arrow keys, j/k, page up/down, g/G. Quit with q.`,
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
			return c.runPreview(cmd.Context(), opts, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Loading catalog...")
	spinner.Start()
	items, err := runner.LoadCatalog(ctx, opts)
	if err != nil {
		spinner.StopWithError("Load failed")
		return err
	}
	spinner.Stop()

	if err := opts.ValidateForLayout(); err != nil {
		return err
	}
	m, err := runner.Measurer(opts)
	if err != nil {
		return err
	}

	// The program owns the terminal; engine logs would corrupt the screen.
	opts.Logger = nil
	opts.SetMeasureDefaults()
	model, err := newPreviewModel(ctx, items, m, opts.EngineOptions())
	if err != nil {
		return err
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}

	pm := final.(previewModel)
	if pm.err != nil {
		return pm.err
	}
	printSuccess("Previewed %d items in %d layout passes", len(items), pm.ctrl.Passes())
	if pm.failed > 0 {
		printWarning("%d caption(s) could not be measured", pm.failed)
	}
	return nil
}

// =============================================================================
// Probe bridge
// =============================================================================

// probeQueue collects probe requests issued by the controller during an
// Update so they can be returned as commands.
type probeQueue struct {
	reqs []measure.Request
}

func (q *probeQueue) Request(req measure.Request) { q.reqs = append(q.reqs, req) }

func (q *probeQueue) drain() []measure.Request {
	reqs := q.reqs
	q.reqs = nil
	return reqs
}

type reportMsg struct{ report catalog.Report }

type probeErrMsg struct {
	id  string
	err error
}

type expireMsg struct{}

// =============================================================================
// Model
// =============================================================================

// previewModel renders the controller's snapshot. The controller is only
// touched from Update, so it needs no locking.
type previewModel struct {
	ctx      context.Context
	ctrl     *engine.Controller
	queue    *probeQueue
	measurer measure.Measurer
	timeout  time.Duration
	captions map[string]string

	width, height int
	scroll        float64
	failed        int
	err           error
}

func newPreviewModel(ctx context.Context, items []catalog.Item, m measure.Measurer, opts engine.Options) (previewModel, error) {
	q := &probeQueue{}
	ctrl, err := engine.New(q, opts)
	if err != nil {
		return previewModel{}, err
	}
	if err := ctrl.Append(items...); err != nil {
		return previewModel{}, err
	}
	captions := make(map[string]string, len(items))
	for _, it := range ctrl.Items() {
		captions[it.ID] = it.Caption
	}
	return previewModel{
		ctx:      ctx,
		ctrl:     ctrl,
		queue:    q,
		measurer: m,
		timeout:  opts.ProbeTimeout,
		captions: captions,
	}, nil
}

func (m previewModel) Init() tea.Cmd {
	return m.flush()
}

// flush turns queued probe requests into measurement commands.
func (m previewModel) flush() tea.Cmd {
	reqs := m.queue.drain()
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs)+1)
	for _, req := range reqs {
		cmds = append(cmds, measureCmd(m.ctx, m.measurer, req))
	}
	if m.timeout > 0 {
		cmds = append(cmds, tea.Tick(m.timeout, func(time.Time) tea.Msg { return expireMsg{} }))
	}
	return tea.Batch(cmds...)
}

func measureCmd(ctx context.Context, ms measure.Measurer, req measure.Request) tea.Cmd {
	return func() tea.Msg {
		h, err := ms.MeasureCaption(ctx, req.Text, req.Width)
		if err != nil {
			return probeErrMsg{id: req.ID, err: err}
		}
		return reportMsg{report: req.Report(h)}
	}
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "down", "j":
			m.scrollBy(scrollStep * cellHeight)
		case "up", "k":
			m.scrollBy(-scrollStep * cellHeight)
		case "pgdown", " ":
			m.scrollBy(float64(m.bodyRows()) * cellHeight)
		case "pgup":
			m.scrollBy(-float64(m.bodyRows()) * cellHeight)
		case "home", "g":
			m.scroll = 0
		case "end", "G":
			m.scrollBy(math.Inf(1))
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if err := m.ctrl.Resize(float64(m.width)*cellWidth, float64(m.bodyRows())*cellHeight); err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.scrollBy(0)
		return m, m.flush()
	case reportMsg:
		m.ctrl.Deliver(msg.report)
		m.scrollBy(0)
		return m, m.flush()
	case probeErrMsg:
		m.failed++
	case expireMsg:
		if len(m.ctrl.Expire()) > 0 {
			m.scrollBy(0)
		}
	}
	return m, nil
}

// scrollBy moves the scroll offset and clamps it to the scroll extent.
func (m *previewModel) scrollBy(delta float64) {
	limit := m.ctrl.ScrollExtent() - float64(m.bodyRows())*cellHeight
	m.scroll = math.Max(0, math.Min(m.scroll+delta, math.Max(limit, 0)))
}

func (m previewModel) bodyRows() int {
	return max(m.height-chrome, 1)
}

func (m previewModel) View() string {
	var b strings.Builder

	counts := m.ctrl.Counts()
	b.WriteString(previewTitle.Render(appName))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · %d/%d captions · %d in flight",
		m.ctrl.Phase(), counts.Resolved, counts.Total(), m.ctrl.InFlight())))
	b.WriteString("\n")

	if snap, ok := m.ctrl.Snapshot(); ok {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%d columns · scroll %.0f/%.0f",
			snap.Columns, m.scroll, m.ctrl.ScrollExtent())))
		b.WriteString("\n")
		b.WriteString(tileStyle.Render(m.renderWall(snap.Placements)))
	} else {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("Measuring captions..."))
	}
	b.WriteString("\n")
	if m.failed > 0 {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("%d failed  ", m.failed)))
	}
	b.WriteString(StyleDim.Render("↑/↓ scroll  g/G top/bottom  q quit"))
	return b.String()
}

// renderWall draws the visible tiles as boxes on a character canvas.
func (m previewModel) renderWall(placements []layout.Placement) string {
	rows, cols := m.bodyRows(), max(m.width, 1)
	canvas := make([][]rune, rows)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", cols))
	}

	cfg := m.ctrl.Config()
	w := int(cfg.ColumnWidth / cellWidth)
	for _, p := range placements {
		x := int(math.Floor((p.Position.Left + cfg.ViewportWidth/2) / cellWidth))
		y := int(math.Floor((cfg.ViewportHeight/2 - p.Position.Top - m.scroll) / cellHeight))
		h := max(int((p.ImageHeight+p.CaptionHeight)/cellHeight), 2)
		if y >= rows || y+h <= 0 {
			continue
		}
		drawBox(canvas, x, y, w, h)
		drawText(canvas, x+1, y+1, w-2, p.ID)
		drawText(canvas, x+1, y+h-2, w-2, m.captions[p.ID])
	}

	lines := make([]string, rows)
	for i, r := range canvas {
		lines[i] = string(r)
	}
	return strings.Join(lines, "\n")
}

func drawBox(canvas [][]rune, x, y, w, h int) {
	for r := y; r < y+h; r++ {
		for c := x; c < x+w; c++ {
			var ch rune
			switch {
			case r == y && c == x:
				ch = '╭'
			case r == y && c == x+w-1:
				ch = '╮'
			case r == y+h-1 && c == x:
				ch = '╰'
			case r == y+h-1 && c == x+w-1:
				ch = '╯'
			case r == y || r == y+h-1:
				ch = '─'
			case c == x || c == x+w-1:
				ch = '│'
			default:
				continue
			}
			set(canvas, r, c, ch)
		}
	}
}

func drawText(canvas [][]rune, x, y, w int, s string) {
	if w <= 0 {
		return
	}
	for i, ch := range []rune(truncate(s, w)) {
		set(canvas, y, x+i, ch)
	}
}

func set(canvas [][]rune, r, c int, ch rune) {
	if r < 0 || r >= len(canvas) || c < 0 || c >= len(canvas[r]) {
		return
	}
	canvas[r][c] = ch
}
