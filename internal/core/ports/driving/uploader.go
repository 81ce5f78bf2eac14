package driving

import "context"

// UploadResult summarises one space's upload run.
type UploadResult struct {
	// SpaceKey identifies the space that was uploaded.
	SpaceKey string

	// CollectionID is the resolved remote collection.
	CollectionID string

	// Created and Total count nodes marked created versus all nodes.
	Created int
	Total   int

	// AttachmentsUploaded and AttachmentsFailed count attachment
	// outcomes across the whole tree for this run.
	AttachmentsUploaded int
	AttachmentsFailed   int
}

// Success reports whether every node was created. An empty tree counts
// as success: there was nothing left to do.
func (r UploadResult) Success() bool {
	return r.Created == r.Total
}

// Uploader drives the tree upload for one space.
type Uploader interface {
	// Upload walks the space's tree, creating or updating remote
	// documents and uploading attachments. It is idempotent: re-running
	// against a faithful remote performs no duplicate creates.
	Upload(ctx context.Context, spaceKey string) (*UploadResult, error)
}

// StatusReporter exposes pipeline progress for inspection.
type StatusReporter interface {
	// Status summarises one space's upload progress.
	Status(ctx context.Context, spaceKey string) (*SpaceStatus, error)

	// Spaces lists the keys of all known spaces.
	Spaces(ctx context.Context) ([]string, error)
}

// Resetter clears upload bookkeeping so a space can be re-uploaded from
// scratch.
type Resetter interface {
	Reset(ctx context.Context, spaceKey string) error
}

// SpaceStatus summarises a space's pipeline progress for reporting.
type SpaceStatus struct {
	SpaceKey    string
	SpaceName   string
	Created     int
	Total       int
	Uploaded    bool
	Attachments AttachmentStatus
}

// AttachmentStatus aggregates attachment upload counts.
type AttachmentStatus struct {
	Total    int
	Uploaded int
	Failed   int
}
