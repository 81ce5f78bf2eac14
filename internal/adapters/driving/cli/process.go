package cli

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/adapters/driven/storage/file"
	"github.com/rioncm/ConfluenceToOutline/internal/config"
	"github.com/rioncm/ConfluenceToOutline/internal/confluence"
	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build document trees from extracted exports",
	Long: `Scans the input directory for extracted exports, parses each space's
index.html into a document tree and writes one JSON state file per space to
the output directory. Re-processing a space replaces its state file.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	store, err := file.NewSpaceStore(cfg.OutputDir(basePath))
	if err != nil {
		return err
	}

	inputDir := cfg.InputDir(basePath)
	exports, err := os.ReadDir(inputDir)
	if err != nil {
		return fmt.Errorf("read input dir %s: %w", inputDir, err)
	}

	var processed []string
	for _, export := range exports {
		if !export.IsDir() || !strings.HasPrefix(export.Name(), "Export-") {
			continue
		}
		spaceDirs, err := os.ReadDir(filepath.Join(inputDir, export.Name()))
		if err != nil {
			logger.Error("read export %s: %v", export.Name(), err)
			continue
		}

		for _, spaceEntry := range spaceDirs {
			if !spaceEntry.IsDir() {
				continue
			}
			spaceDir := filepath.Join(inputDir, export.Name(), spaceEntry.Name())
			if _, err := os.Stat(filepath.Join(spaceDir, "index.html")); err != nil {
				continue
			}

			localFolder := path.Join(cfg.Directories.Input, export.Name(), spaceEntry.Name())
			space, err := confluence.ParseSpaceDir(spaceDir, localFolder)
			if err != nil {
				logger.Error("process space %s: %v", spaceEntry.Name(), err)
				continue
			}
			filterAttachments(space, cfg.Security)

			if err := store.Save(cmd.Context(), space); err != nil {
				return err
			}
			processed = append(processed, space.Key)
			cmd.Printf("%-12s %d pages, %d sections, depth %d\n",
				space.Key, space.Stats.TotalPages, space.Stats.TotalNavNodes, space.Stats.MaxDepth)
		}
	}

	if len(processed) == 0 {
		cmd.Printf("No spaces found under %s\n", inputDir)
		return nil
	}
	cmd.Printf("Processed %d space(s)\n", len(processed))
	return nil
}

// filterAttachments drops attachment references whose extension is not on
// the allow-list.
func filterAttachments(space *domain.Space, sec config.SecurityConfig) {
	domain.Walk(space.Content, func(n *domain.DocumentNode, _ int) bool {
		kept := n.Attachments[:0]
		for _, ref := range n.Attachments {
			if sec.IsAllowedFile(ref) {
				kept = append(kept, ref)
			} else {
				logger.Warn("skipping disallowed attachment type: %s", ref)
			}
		}
		n.Attachments = kept
		return true
	})
}
