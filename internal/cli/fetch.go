package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// fetchCommand creates the fetch command that snapshots a remote catalog to
// a local file.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		flags   optionFlags
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a board or MongoDB catalog to a JSON file",
		Long: `Download a board or MongoDB catalog to a JSON file.

The board token is read from MASONRY_BOARD_TOKEN and the MongoDB URI from
MASONRY_MONGO_URI unless the config file sets them. Board responses are
cached; use --refresh to bypass the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd, "", loggerFromContext(cmd.Context()))
			if err != nil {
				return err
			}
			if opts.Source == pipeline.SourceFile {
				return fmt.Errorf("fetch needs --board or --source mongo")
			}
			return c.runFetch(cmd.Context(), opts, output, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: board-<id>.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if output == "-" {
		items, err := runner.LoadCatalog(ctx, opts)
		if err != nil {
			return err
		}
		return catalog.Encode(os.Stdout, items)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching %s catalog...", opts.Source))
	spinner.Start()
	items, err := runner.LoadCatalog(ctx, opts)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return err
	}
	spinner.Stop()

	if output == "" {
		output = defaultOutputPath(opts, catalog.FormatJSON)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := catalog.Encode(f, items); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	printSuccess("Fetched %d items", len(items))
	printFile(output)
	printNewline()
	printNextStep("Lay out", appName+" layout "+output)
	return nil
}
