package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/adapters/driven/storage/file"
	"github.com/rioncm/ConfluenceToOutline/internal/confluence"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

var convertCmd = &cobra.Command{
	Use:   "convert [space-key...]",
	Short: "Render page HTML as Markdown",
	Long: `Converts each processed space's page HTML into Markdown, filling the
content fields of its state file. Without arguments all processed spaces
are converted.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	store, err := file.NewSpaceStore(cfg.OutputDir(basePath))
	if err != nil {
		return err
	}

	keys, err := selectSpaces(cmd.Context(), store, args)
	if err != nil {
		return err
	}

	conv := confluence.NewConverter()
	for _, key := range keys {
		space, err := store.Load(cmd.Context(), key)
		if err != nil {
			return err
		}
		if err := conv.ConvertSpace(space, basePath); err != nil {
			return err
		}
		if err := store.Save(cmd.Context(), space); err != nil {
			return err
		}
		cmd.Printf("Converted space %s\n", key)
	}
	return nil
}

// selectSpaces resolves the space keys a command operates on: the explicit
// arguments, or every persisted space when none are given.
func selectSpaces(ctx context.Context, store driven.SpaceStore, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return store.List(ctx)
}
