package domain

import "time"

// NodeKind distinguishes leaf pages from navigation folders. Folder nodes
// without their own page still become remote documents; only the space root
// maps to the collection itself.
type NodeKind string

const (
	// KindPage is a leaf page with its own content.
	KindPage NodeKind = "page"

	// KindFolder is a navigation node grouping child pages.
	KindFolder NodeKind = "collection"
)

// DocumentNode is one page or navigation folder in a space's tree.
// Child order is display order and must be preserved: it encodes the
// navigation order of the original export.
type DocumentNode struct {
	// Key is a stable identifier assigned when the tree is parsed.
	// It survives sidecar round-trips so progress can be correlated
	// across runs.
	Key string `json:"key"`

	// Title is the display name, also used as the remote document title.
	Title string `json:"title"`

	// HTMLPage is the source HTML file relative to the space folder,
	// empty for folder nodes without their own page.
	HTMLPage string `json:"html_page,omitempty"`

	// Content is the converted markdown body. The conversion stage owns
	// it; the uploader only mutates it when rewriting attachment URLs.
	Content string `json:"md_content"`

	Kind NodeKind `json:"type"`

	// RemoteID is the identifier returned by the remote system once this
	// node was created. For the root node it holds the collection id.
	RemoteID *string `json:"page_uuid"`

	// RemoteParentID is the remote parent this node was created under.
	// Nil for top-level documents and for the root node.
	RemoteParentID *string `json:"parent_uuid"`

	// Created caches "we successfully created this remotely at some
	// point". It is a best-effort cache, not ground truth: the remote
	// node may have been deleted out-of-band since.
	Created bool `json:"created"`

	// Attachments holds local relative paths of files belonging to this
	// page, in discovery order.
	Attachments []string `json:"attachments,omitempty"`

	// AttachmentDetails maps an attachment reference to its upload state.
	AttachmentDetails map[string]*AttachmentDetail `json:"attachment_details,omitempty"`

	// Errors is an append-only log of failed create/update attempts.
	Errors []ErrorRecord `json:"processing_errors,omitempty"`

	Children []*DocumentNode `json:"children"`
}

// Detail returns the upload state for ref, creating the map lazily.
func (n *DocumentNode) Detail(ref string) *AttachmentDetail {
	if n.AttachmentDetails == nil {
		n.AttachmentDetails = make(map[string]*AttachmentDetail)
	}
	d, ok := n.AttachmentDetails[ref]
	if !ok {
		d = &AttachmentDetail{}
		n.AttachmentDetails[ref] = d
	}
	return d
}

// PendingAttachments returns the attachment references that have not been
// uploaded yet, in declaration order.
func (n *DocumentNode) PendingAttachments() []string {
	var pending []string
	for _, ref := range n.Attachments {
		d := n.AttachmentDetails[ref]
		if d == nil || !d.Uploaded {
			pending = append(pending, ref)
		}
	}
	return pending
}

// RecordError appends a processing error to the node's log.
func (n *DocumentNode) RecordError(message string) {
	n.Errors = append(n.Errors, NewErrorRecord(message))
}

// AttachmentDetail is the per-attachment upload bookkeeping.
// Uploaded == true implies URL is non-empty.
type AttachmentDetail struct {
	// ID is the remote attachment identifier from phase one.
	ID string `json:"attachment_id,omitempty"`

	// URL is the stable access URL recorded after a successful upload,
	// a redirect endpoint keyed by the attachment id.
	URL string `json:"api_url,omitempty"`

	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`

	Uploaded   bool       `json:"uploaded"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`

	// Retries is the number of attempts the last upload took.
	Retries int `json:"retry_count,omitempty"`

	// Failure records the last exhausted upload attempt, nil on success.
	Failure *ErrorRecord `json:"failure,omitempty"`
}
