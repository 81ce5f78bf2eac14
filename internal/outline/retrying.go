package outline

import (
	"context"
	"io"

	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// Ensure the wrapper still satisfies the remote port.
var _ driven.RemoteClient = (*RetryingClient)(nil)

// RetryingClient wraps a RemoteClient with the retry policy. Callers get
// the port's contract back with rate limits and transient network errors
// absorbed up to the policy ceiling.
type RetryingClient struct {
	inner  driven.RemoteClient
	policy Policy
}

// WithRetry wraps client so every call runs under policy.
func WithRetry(client driven.RemoteClient, policy Policy) *RetryingClient {
	return &RetryingClient{inner: client, policy: policy}
}

func (r *RetryingClient) VerifyAuth(ctx context.Context) error {
	return r.policy.Do(ctx, "auth.info", func() error {
		return r.inner.VerifyAuth(ctx)
	})
}

func (r *RetryingClient) CreateCollection(ctx context.Context, name, description string) (*driven.Collection, error) {
	var col *driven.Collection
	err := r.policy.Do(ctx, "collections.create", func() error {
		var err error
		col, err = r.inner.CreateCollection(ctx, name, description)
		return err
	})
	return col, err
}

func (r *RetryingClient) ListCollections(ctx context.Context) ([]driven.Collection, error) {
	var cols []driven.Collection
	err := r.policy.Do(ctx, "collections.list", func() error {
		var err error
		cols, err = r.inner.ListCollections(ctx)
		return err
	})
	return cols, err
}

func (r *RetryingClient) CollectionInfo(ctx context.Context, id string) (*driven.Collection, error) {
	var col *driven.Collection
	err := r.policy.Do(ctx, "collections.info", func() error {
		var err error
		col, err = r.inner.CollectionInfo(ctx, id)
		return err
	})
	return col, err
}

func (r *RetryingClient) CreateDocument(ctx context.Context, req driven.CreateDocumentRequest) (*driven.CreatedDocument, error) {
	var doc *driven.CreatedDocument
	err := r.policy.Do(ctx, "documents.create", func() error {
		var err error
		doc, err = r.inner.CreateDocument(ctx, req)
		return err
	})
	return doc, err
}

func (r *RetryingClient) UpdateDocument(ctx context.Context, id, text string) error {
	return r.policy.Do(ctx, "documents.update", func() error {
		return r.inner.UpdateDocument(ctx, id, text)
	})
}

func (r *RetryingClient) DocumentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.policy.Do(ctx, "documents.info", func() error {
		var err error
		exists, err = r.inner.DocumentExists(ctx, id)
		return err
	})
	return exists, err
}

func (r *RetryingClient) CreateAttachment(ctx context.Context, req driven.CreateAttachmentRequest) (*driven.AttachmentTicket, error) {
	var ticket *driven.AttachmentTicket
	err := r.policy.Do(ctx, "attachments.create", func() error {
		var err error
		ticket, err = r.inner.CreateAttachment(ctx, req)
		return err
	})
	return ticket, err
}

// UploadAttachmentBytes is not retried here. The body reader can only be
// consumed once, so the attachment service owns its retry loop and reopens
// the source between attempts.
func (r *RetryingClient) UploadAttachmentBytes(ctx context.Context, ticket *driven.AttachmentTicket, filename string, body io.Reader) error {
	return r.inner.UploadAttachmentBytes(ctx, ticket, filename, body)
}

func (r *RetryingClient) AttachmentURL(id string) string {
	return r.inner.AttachmentURL(id)
}
