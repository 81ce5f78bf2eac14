package driven

import (
	"context"
	"io"
)

// Collection is a remote top-level container for documents.
type Collection struct {
	ID          string
	Name        string
	Description string
}

// CreatedDocument is the remote system's view of a freshly created document.
type CreatedDocument struct {
	ID  string
	URL string
}

// CreateDocumentRequest carries the fields for documents.create.
// ParentID of nil places the document at the collection's top level.
type CreateDocumentRequest struct {
	Title        string
	Text         string
	CollectionID string
	ParentID     *string
}

// CreateAttachmentRequest carries the fields for attachments.create,
// phase one of the two-phase attachment upload.
type CreateAttachmentRequest struct {
	Name        string
	ContentType string
	Size        int64
	DocumentID  string
}

// AttachmentTicket is the out-of-band upload target returned by phase one.
// UploadURL and Form belong to a separate pre-authorised destination; phase
// two must not send the primary API's auth headers there.
type AttachmentTicket struct {
	ID            string
	UploadURL     string
	Form          map[string]string
	MaxUploadSize int64
}

// RemoteClient is the wire-protocol surface of the remote document system.
// Implementations encapsulate HTTP verbs and paths only; the retry/backoff
// policy wraps every call site, so methods here perform exactly one attempt
// from the caller's point of view unless documented otherwise.
type RemoteClient interface {
	// VerifyAuth confirms the configured credentials are accepted.
	VerifyAuth(ctx context.Context) error

	// CreateCollection creates a collection and returns it with its new id.
	CreateCollection(ctx context.Context, name, description string) (*Collection, error)

	// ListCollections returns all remote collections.
	ListCollections(ctx context.Context) ([]Collection, error)

	// CollectionInfo fetches one collection by id.
	// Returns domain.ErrNotFound when the id no longer exists.
	CollectionInfo(ctx context.Context, id string) (*Collection, error)

	// CreateDocument creates a document, published immediately.
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (*CreatedDocument, error)

	// UpdateDocument replaces a document's text.
	UpdateDocument(ctx context.Context, id, text string) error

	// DocumentExists probes whether a document id still exists remotely.
	DocumentExists(ctx context.Context, id string) (bool, error)

	// CreateAttachment registers attachment metadata and returns the
	// upload ticket for phase two.
	CreateAttachment(ctx context.Context, req CreateAttachmentRequest) (*AttachmentTicket, error)

	// UploadAttachmentBytes streams the file body to the ticket's upload
	// target. Any 2xx response is success.
	UploadAttachmentBytes(ctx context.Context, ticket *AttachmentTicket, filename string, body io.Reader) error

	// AttachmentURL returns the stable access URL for an attachment id.
	AttachmentURL(id string) string
}

// AttachmentSource provides access to local attachment files.
type AttachmentSource interface {
	// Open returns the file body, its size and detected content type.
	// The caller closes the reader.
	Open(ref string) (body io.ReadCloser, size int64, contentType string, err error)
}
