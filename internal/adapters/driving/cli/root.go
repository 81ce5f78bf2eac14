// Package cli implements the command line interface driving the migration
// pipeline: extract, process, convert, upload, status and reset.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/config"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

var (
	// cfg and basePath are populated before any subcommand runs.
	cfg      config.Config
	basePath string

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "c2o",
	Short: "Migrate Confluence HTML exports into Outline",
	Long: `c2o moves Confluence space exports into an Outline wiki.

The pipeline runs in stages: extract unpacks export archives, process
builds each space's document tree, convert renders page HTML as Markdown,
and upload creates the collections and documents remotely. Progress is
tracked per space in a JSON file under the output directory, so upload can
be interrupted and re-run safely.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		loaded, err := config.Load(basePath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&basePath, "base-path", ".", "working directory holding zips/, input/ and output/")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
