package cli

import (
	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/adapters/driven/storage/file"
	"github.com/rioncm/ConfluenceToOutline/internal/core/services"
)

var resetCmd = &cobra.Command{
	Use:   "reset <space-key>",
	Short: "Clear a space's upload state",
	Long: `Clears the recorded document IDs and collection binding for a space so
the next upload starts from scratch. Documents already created in Outline are
left in place; a subsequent upload creates new ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	store, err := file.NewSpaceStore(cfg.OutputDir(basePath))
	if err != nil {
		return err
	}
	resetter := services.NewUploadService(store, nil, nil, nil, nil, basePath, false)
	if err := resetter.Reset(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Upload state cleared for space %s\n", args[0])
	return nil
}
