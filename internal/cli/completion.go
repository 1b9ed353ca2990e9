package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/fonts"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// flagValues lists the closed value sets of flags shared by the layout
// commands. Flags a command does not define are skipped.
var flagValues = map[string][]string{
	"source":       {pipeline.SourceFile, pipeline.SourceBoard, pipeline.SourceMongo},
	"input-format": {catalog.FormatJSON, catalog.FormatYAML, catalog.FormatTOML},
	"font":         {fonts.Bold, fonts.Regular},
	"format":       {layout.FormatJSON, layout.FormatCBOR},
}

// registerValueCompletions wires shell completion for the fixed-value flags
// that cmd defines.
func registerValueCompletions(cmd *cobra.Command) {
	for name, values := range flagValues {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
}

// completionCommand prints a shell completion script. Catalog arguments
// complete to files; --source, --font and --format complete to their values.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for masonry.

  $ source <(masonry completion bash)
  $ masonry completion zsh > "${fpath[1]}/_masonry"
  $ masonry completion fish > ~/.config/fish/completions/masonry.fish
  PS> masonry completion powershell | Out-String | Invoke-Expression

Besides commands and catalog files, completion offers the allowed values of
--source, --input-format, --font and --format.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
