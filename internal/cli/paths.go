package cli

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPathsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List every value path the configured profile exposes",
		Long: `Build the profile's detector graph and list every addressable value
path, grouped by timeframe. Paths are what 'replay --path' and downstream
consumers read.`,
		Example: `  structure paths
  structure paths --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := buildState(app)
			if err != nil {
				output.Error("Failed to build detector state: %v", err)
				return err
			}

			paths := st.ListAllPaths()
			if output.IsJSON() {
				return output.JSON(paths)
			}

			output.Println()
			color.Cyan("Value paths (%d)", len(paths))
			output.Println(strings.Repeat("─", 45))

			lastTF := ""
			for _, p := range paths {
				tf := p[:strings.Index(p, ".")]
				if tf != lastTF {
					if lastTF != "" {
						output.Println()
					}
					output.Info("%s", tf)
					lastTF = tf
				}
				output.Printf("  %s\n", p)
			}
			return nil
		},
	}
}
