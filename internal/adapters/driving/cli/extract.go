package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/confluence"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Unpack export archives from the zips directory",
	Long: `Unpacks every Confluence export archive found in the zips directory
into its own folder under the input directory. Existing extractions of the
same archive are replaced.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	extractor := confluence.NewExtractor(
		cfg.ZipsDir(basePath),
		cfg.InputDir(basePath),
		confluence.ExtractLimits{
			MaxFileSize:  cfg.Security.MaxFileSize,
			MaxTotalSize: cfg.Security.MaxTotalSize,
			MaxFiles:     cfg.Security.MaxFiles,
		},
	)

	results, err := extractor.ExtractAll()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cmd.Printf("No archives found in %s\n", cfg.ZipsDir(basePath))
		return nil
	}

	failures := 0
	for _, res := range results {
		name := filepath.Base(res.Archive)
		switch {
		case res.Err != nil:
			failures++
			cmd.Printf("%-40s failed: %v\n", name, res.Err)
		case res.Blocked > 0:
			cmd.Printf("%-40s %d files into %s (%d blocked)\n", name, res.Extracted, res.Folder, res.Blocked)
		default:
			cmd.Printf("%-40s %d files into %s\n", name, res.Extracted, res.Folder)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d archives failed to extract", failures, len(results))
	}
	return nil
}
