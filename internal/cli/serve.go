package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/pipeline"
	"github.com/matzehuels/masonry/pkg/server"
)

// serveCommand creates the serve command that runs the HTTP layout service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		config  string
		opts    server.Options
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout service",
		Long: `Run the HTTP layout service.

POST a catalog to /v1/layout and receive the positioned snapshot as JSON, or as
CBOR with "Accept: application/cbor". Set MASONRY_REDIS_URL to share the
caption cache between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := pipeline.LoadConfig(config)
			if err != nil {
				return err
			}
			opts.Defaults = defaults
			opts.Logger = loggerFromContext(cmd.Context())
			return c.runServe(cmd.Context(), opts, noCache)
		},
	}

	cmd.Flags().StringVar(&config, "config", "", "config file for layout defaults (default: "+pipeline.DefaultConfigPath()+")")
	cmd.Flags().StringVar(&opts.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().IntVar(&opts.MaxItems, "max-items", server.DefaultMaxItems, "largest catalog accepted per request")
	cmd.Flags().Int64Var(&opts.MaxBodyBytes, "max-body", server.DefaultMaxBodyBytes, "largest request body in bytes")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", server.DefaultTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts server.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	printInfo("Serving layouts on %s", StyleHighlight.Render(opts.Addr))
	printKeyValue("Max items", strconv.Itoa(opts.MaxItems))
	printKeyValue("Timeout", opts.Timeout.String())
	printDetail("Press Ctrl+C to stop")

	if err := server.New(runner, opts).ListenAndServe(ctx); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}
