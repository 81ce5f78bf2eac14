package outline

import (
	"context"
	"io"

	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// flakyRemote rate-limits the first N document creations, then succeeds.
type flakyRemote struct {
	failures int
	calls    int
}

var _ driven.RemoteClient = (*flakyRemote)(nil)

func dummyCreateReq() driven.CreateDocumentRequest {
	return driven.CreateDocumentRequest{Title: "Page", Text: "# Page", CollectionID: "col-1"}
}

func (f *flakyRemote) VerifyAuth(context.Context) error { return nil }

func (f *flakyRemote) CreateCollection(_ context.Context, name, description string) (*driven.Collection, error) {
	return &driven.Collection{ID: "col-1", Name: name, Description: description}, nil
}

func (f *flakyRemote) ListCollections(context.Context) ([]driven.Collection, error) {
	return nil, nil
}

func (f *flakyRemote) CollectionInfo(_ context.Context, id string) (*driven.Collection, error) {
	return &driven.Collection{ID: id}, nil
}

func (f *flakyRemote) CreateDocument(_ context.Context, req driven.CreateDocumentRequest) (*driven.CreatedDocument, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &RateLimitError{}
	}
	return &driven.CreatedDocument{ID: "doc-1", URL: "/doc/doc-1"}, nil
}

func (f *flakyRemote) UpdateDocument(context.Context, string, string) error { return nil }

func (f *flakyRemote) DocumentExists(context.Context, string) (bool, error) { return true, nil }

func (f *flakyRemote) CreateAttachment(context.Context, driven.CreateAttachmentRequest) (*driven.AttachmentTicket, error) {
	return &driven.AttachmentTicket{ID: "att-1"}, nil
}

func (f *flakyRemote) UploadAttachmentBytes(context.Context, *driven.AttachmentTicket, string, io.Reader) error {
	return nil
}

func (f *flakyRemote) AttachmentURL(id string) string {
	return "https://wiki.example.com/api/attachments.redirect?id=" + id
}
