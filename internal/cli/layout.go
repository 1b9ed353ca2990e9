package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/observability"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// layoutCommand creates the layout command for computing tile positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags   optionFlags
		output  string
		format  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "layout [catalog]",
		Short: "Compute tile positions for an image catalog",
		Long: `Compute tile positions for an image catalog.

The catalog is read from a JSON, YAML or TOML file (or "-" for JSON on stdin),
from a board (--board), or from MongoDB (--source mongo). Every caption is
measured before any tile is placed, so the output is a single consistent
snapshot of left/top positions in viewport-centered coordinates.

Caption measurements are cached locally for faster subsequent runs.`,
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
			if cmd.Flags().Changed("format") {
				opts.Format = format
			}
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <input>.layout.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.DefaultFormat, "snapshot encoding: json, cbor")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runLayout runs the pipeline and writes the encoded snapshot.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	toStdout := output == "-"
	spinner := newSpinnerWithContext(ctx, "Measuring captions...")
	if !toStdout {
		spinner.Start()
		prev := observability.Engine()
		observability.SetEngineHooks(&captionProgress{spinner: spinner})
		defer observability.SetEngineHooks(prev)
	}

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		if !toStdout {
			spinner.StopWithError("Layout failed")
		}
		return fmt.Errorf("compute layout: %w", err)
	}
	if !toStdout {
		spinner.Stop()
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if toStdout {
		_, err := os.Stdout.Write(result.Output)
		return err
	}

	outputPath := output
	if outputPath == "" {
		outputPath = defaultOutputPath(opts, "layout."+opts.Format)
	}
	if err := os.WriteFile(outputPath, result.Output, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(result.Stats)
	if result.Stats.Fallbacks > 0 {
		printWarning("%d caption(s) timed out and used the fallback height", result.Stats.Fallbacks)
	}
	printNewline()
	printNextStep("Preview", appName+" preview "+previewHint(opts))

	return nil
}

// defaultOutputPath derives an output file name from the catalog source.
func defaultOutputPath(opts pipeline.Options, suffix string) string {
	switch {
	case opts.Source == pipeline.SourceBoard:
		return "board-" + opts.Board.BoardID + "." + suffix
	case opts.Source == pipeline.SourceMongo && opts.Mongo.Collection != "":
		return opts.Mongo.Collection + "." + suffix
	case opts.Source != pipeline.SourceFile || opts.Input == "" || opts.Input == "-":
		return "catalog." + suffix
	default:
		return strings.TrimSuffix(opts.Input, filepath.Ext(opts.Input)) + "." + suffix
	}
}

func previewHint(opts pipeline.Options) string {
	if opts.Source == pipeline.SourceBoard {
		return "--board " + opts.Board.BoardID
	}
	if opts.Source == pipeline.SourceMongo {
		return "--source mongo"
	}
	return opts.Input
}

// captionProgress shows measured captions on the spinner. The controller
// calls it from a single goroutine.
type captionProgress struct {
	observability.NoopEngineHooks
	spinner  *Spinner
	issued   int
	resolved int
}

func (p *captionProgress) OnProbeIssued(string) {
	p.issued++
	p.update()
}

func (p *captionProgress) OnReport(_ string, outcome string) {
	if outcome == catalog.Applied.String() {
		p.resolved++
		p.update()
	}
}

func (p *captionProgress) OnFallback(string, time.Duration) {
	p.resolved++
	p.update()
}

func (p *captionProgress) update() {
	p.spinner.SetMessage(fmt.Sprintf("Measuring captions %d/%d...", p.resolved, p.issued))
}
