package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rioncm/ConfluenceToOutline/internal/adapters/driven/storage/file"
	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
	"github.com/rioncm/ConfluenceToOutline/internal/core/services"
	"github.com/rioncm/ConfluenceToOutline/internal/outline"
)

var uploadForce bool

var uploadCmd = &cobra.Command{
	Use:   "upload [space-key...]",
	Short: "Upload converted spaces to Outline",
	Long: `Uploads each space's document tree to Outline: one collection per
space, one document per page, attachments included. Progress is saved after
every document, so an interrupted upload resumes where it left off. With
--force, documents that already exist are updated with the current content.`,
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadForce, "force", false, "update documents that already exist")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	store, err := file.NewSpaceStore(cfg.OutputDir(basePath))
	if err != nil {
		return err
	}
	keys, err := selectSpaces(cmd.Context(), store, args)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		cmd.Println("No processed spaces to upload")
		return nil
	}

	remote := outline.WithRetry(outline.NewClient(cfg.API.URL, cfg.API.Token), outline.DefaultPolicy())
	uploader := services.NewUploadService(
		store,
		remote,
		services.NewCollectionResolver(remote, newTerminalResolver(cmd)),
		services.NewAttachmentService(remote),
		func(spaceDir string) driven.AttachmentSource { return file.NewAttachmentSource(spaceDir) },
		basePath,
		uploadForce,
	)

	failures := 0
	for _, key := range keys {
		cmd.Printf("Uploading space %s...\n", key)
		result, err := uploader.Upload(cmd.Context(), key)
		if err != nil {
			failures++
			if errors.Is(err, domain.ErrAmbiguousCollection) {
				cmd.Printf("  %s: several collections share this space's name; resolve the duplicate collections in Outline or run interactively\n", key)
			} else {
				cmd.Printf("  %s: %v\n", key, err)
			}
			continue
		}

		cmd.Printf("  %d/%d documents in collection %s", result.Created, result.Total, result.CollectionID)
		if result.AttachmentsUploaded+result.AttachmentsFailed > 0 {
			cmd.Printf(", %d attachments uploaded", result.AttachmentsUploaded)
			if result.AttachmentsFailed > 0 {
				cmd.Printf(" (%d failed)", result.AttachmentsFailed)
			}
		}
		cmd.Println()
		if !result.Success() {
			failures++
			cmd.Printf("  space %s is incomplete; re-run upload to retry the missing documents\n", key)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d spaces did not upload completely", failures, len(keys))
	}
	return nil
}
