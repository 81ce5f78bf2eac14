package cli

import (
	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/adapters/driven/storage/file"
	"github.com/rioncm/ConfluenceToOutline/internal/core/services"
)

var statusCmd = &cobra.Command{
	Use:   "status [space-key...]",
	Short: "Show upload progress for processed spaces",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := file.NewSpaceStore(cfg.OutputDir(basePath))
	if err != nil {
		return err
	}
	keys, err := selectSpaces(cmd.Context(), store, args)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		cmd.Println("No processed spaces found")
		return nil
	}

	// Status only reads the sidecars, so no remote wiring is needed.
	reporter := services.NewUploadService(store, nil, nil, nil, nil, basePath, false)
	for _, key := range keys {
		st, err := reporter.Status(cmd.Context(), key)
		if err != nil {
			cmd.Printf("%s: %v\n", key, err)
			continue
		}
		state := "pending"
		switch {
		case st.Uploaded:
			state = "uploaded"
		case st.Created > 0:
			state = "partial"
		}
		cmd.Printf("%s (%s): %s, %d/%d documents", st.SpaceKey, st.SpaceName, state, st.Created, st.Total)
		if st.Attachments.Total > 0 {
			cmd.Printf(", %d/%d attachments", st.Attachments.Uploaded, st.Attachments.Total)
			if st.Attachments.Failed > 0 {
				cmd.Printf(" (%d failed)", st.Attachments.Failed)
			}
		}
		cmd.Println()
	}
	return nil
}
