package domain

import "time"

// Space is one exported wiki area, mapped to exactly one remote collection.
// It is created by the export parsing stage, mutated in place by every later
// stage, and persisted to a JSON sidecar after each unit of work.
type Space struct {
	// Name is the display name of the space, also used as the remote
	// collection name.
	Name string `json:"space_name"`

	// Key is the stable lowercase slug identifying the space. The sidecar
	// file is named <key>.json.
	Key string `json:"space_key"`

	// Description is the free-text description from the export metadata.
	Description string `json:"description,omitempty"`

	// LocalFolder is the extracted export directory, relative to the
	// base path (e.g. "input/Export-135853/IS").
	LocalFolder string `json:"local_folder"`

	// Stats records per-phase bookkeeping and the resolved collection.
	Stats ProcessingStats `json:"processing_stats"`

	// Content is the ordered sequence of root-level document nodes.
	// The first element is normally the space root page; exports without
	// a single umbrella page yield several top-level nodes.
	Content []*DocumentNode `json:"space_content"`
}

// Root returns the space's root node, or nil if the tree is empty.
func (s *Space) Root() *DocumentNode {
	if len(s.Content) == 0 {
		return nil
	}
	return s.Content[0]
}

// ProcessingStats tracks timestamps for each pipeline phase and the
// outcome of the upload phase.
type ProcessingStats struct {
	TotalPages     int `json:"total_pages,omitempty"`
	TotalNavNodes  int `json:"total_navigation_nodes,omitempty"`
	MaxDepth       int `json:"max_depth,omitempty"`

	ParsedAt    *time.Time `json:"processed_at,omitempty"`
	ConvertedAt *time.Time `json:"content_extracted_at,omitempty"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`

	// CollectionID is the remote collection resolved for this space.
	// Empty until the collection resolver has run.
	CollectionID string `json:"collection_id,omitempty"`

	// UploadSuccessful is true only when every node in the tree was
	// created remotely (created == total).
	UploadSuccessful bool `json:"upload_successful"`

	// CollectionErrors records collection-level failures. A non-empty
	// list means at least one upload run could not resolve a collection.
	CollectionErrors []ErrorRecord `json:"collection_errors,omitempty"`
}

// ErrorRecord is an append-only log entry for a failed operation.
type ErrorRecord struct {
	At      time.Time `json:"timestamp"`
	Message string    `json:"message"`
}

// NewErrorRecord captures err with the current time.
func NewErrorRecord(message string) ErrorRecord {
	return ErrorRecord{At: time.Now().UTC(), Message: message}
}
