package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func attachmentNode(refs ...string) *domain.DocumentNode {
	return &domain.DocumentNode{
		Key:         "node-1",
		Title:       "Setup",
		Kind:        domain.KindPage,
		Attachments: refs,
	}
}

func TestAttachmentService_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads pending attachments and records state", func(t *testing.T) {
		remote := newMockRemote()
		svc := NewAttachmentService(remote)
		svc.sleep = noSleep
		source := &mockSource{files: map[string]string{
			"attachments/1/a.png": "aaa",
			"attachments/1/b.pdf": "bbbb",
		}}
		node := attachmentNode("attachments/1/a.png", "attachments/1/b.pdf")

		uploaded, failed, err := svc.Process(ctx, source, node, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, 2, uploaded)
		assert.Zero(t, failed)

		a := node.AttachmentDetails["attachments/1/a.png"]
		require.NotNil(t, a)
		assert.True(t, a.Uploaded)
		assert.Equal(t, "a.png", a.Name)
		assert.Equal(t, int64(3), a.Size)
		assert.NotEmpty(t, a.ID)
		assert.Contains(t, a.URL, "attachments.redirect?id="+a.ID)
		require.NotNil(t, a.UploadedAt)
		assert.Nil(t, a.Failure)
		assert.Equal(t, "aaa", remote.uploadedBodies[a.ID])
	})

	t.Run("retries transient transfer failures", func(t *testing.T) {
		remote := newMockRemote()
		remote.failUploadRef["a.png"] = 1
		svc := NewAttachmentService(remote)
		svc.sleep = noSleep
		source := &mockSource{files: map[string]string{"attachments/1/a.png": "aaa"}}
		node := attachmentNode("attachments/1/a.png")

		uploaded, failed, err := svc.Process(ctx, source, node, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, 1, uploaded)
		assert.Zero(t, failed)
		assert.Equal(t, 2, node.AttachmentDetails["attachments/1/a.png"].Retries)
	})

	t.Run("exhausted retries record the failure and continue", func(t *testing.T) {
		remote := newMockRemote()
		remote.failUploadRef["a.png"] = 10
		svc := NewAttachmentService(remote)
		svc.sleep = noSleep
		source := &mockSource{files: map[string]string{
			"attachments/1/a.png": "aaa",
			"attachments/1/b.pdf": "bbbb",
		}}
		node := attachmentNode("attachments/1/a.png", "attachments/1/b.pdf")

		uploaded, failed, err := svc.Process(ctx, source, node, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, 1, uploaded)
		assert.Equal(t, 1, failed)

		a := node.AttachmentDetails["attachments/1/a.png"]
		assert.False(t, a.Uploaded)
		assert.Equal(t, defaultUploadAttempts, a.Retries)
		require.NotNil(t, a.Failure)
		assert.Contains(t, a.Failure.Message, "a.png")
		assert.True(t, node.AttachmentDetails["attachments/1/b.pdf"].Uploaded)
	})

	t.Run("missing files fail without retrying", func(t *testing.T) {
		remote := newMockRemote()
		svc := NewAttachmentService(remote)
		svc.sleep = noSleep
		source := &mockSource{files: map[string]string{}}
		node := attachmentNode("attachments/1/gone.png")

		uploaded, failed, err := svc.Process(ctx, source, node, "doc-1")

		require.NoError(t, err)
		assert.Zero(t, uploaded)
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, node.AttachmentDetails["attachments/1/gone.png"].Retries)
	})

	t.Run("already uploaded attachments are not re-sent", func(t *testing.T) {
		remote := newMockRemote()
		svc := NewAttachmentService(remote)
		svc.sleep = noSleep
		source := &mockSource{files: map[string]string{"attachments/1/a.png": "aaa"}}
		node := attachmentNode("attachments/1/a.png")
		node.Detail("attachments/1/a.png").Uploaded = true

		uploaded, failed, err := svc.Process(ctx, source, node, "doc-1")

		require.NoError(t, err)
		assert.Zero(t, uploaded)
		assert.Zero(t, failed)
		assert.Zero(t, remote.attachmentsCreated)
	})
}

func TestRewriteAttachmentRefs(t *testing.T) {
	uploadedNode := func() *domain.DocumentNode {
		n := attachmentNode("attachments/1/a.png", "attachments/1/b.pdf")
		n.AttachmentDetails = map[string]*domain.AttachmentDetail{
			"attachments/1/a.png": {ID: "att-1", Name: "a.png", Uploaded: true, URL: "https://w/api/attachments.redirect?id=att-1"},
			"attachments/1/b.pdf": {ID: "att-2", Name: "b.pdf", Uploaded: true, URL: "https://w/api/attachments.redirect?id=att-2"},
		}
		return n
	}

	t.Run("substitutes template placeholders", func(t *testing.T) {
		n := uploadedNode()
		content := "![diagram]({attachments/1/a.png}) and [guide]({attachments/1/b.pdf})"

		out := rewriteAttachmentRefs(content, n)

		assert.Contains(t, out, "![diagram](https://w/api/attachments.redirect?id=att-1)")
		assert.Contains(t, out, "[guide](https://w/api/attachments.redirect?id=att-2)")
		assert.NotContains(t, out, "{attachments/")
	})

	t.Run("substitutes plain markdown destinations", func(t *testing.T) {
		n := uploadedNode()
		content := "see [guide](attachments/1/b.pdf) and ![d](attachments/1/a.png)"

		out := rewriteAttachmentRefs(content, n)

		assert.Contains(t, out, "(https://w/api/attachments.redirect?id=att-2)")
		assert.NotContains(t, out, "attachments/1/")
	})

	t.Run("appends unreferenced uploads as an attachment list", func(t *testing.T) {
		n := uploadedNode()
		content := "![d]({attachments/1/a.png})"

		out := rewriteAttachmentRefs(content, n)

		assert.Contains(t, out, "## Attachments")
		assert.Contains(t, out, "- [b.pdf](https://w/api/attachments.redirect?id=att-2)")
		assert.NotContains(t, out, "- [a.png]")
	})

	t.Run("a ref that prefixes another never corrupts it", func(t *testing.T) {
		n := attachmentNode("attachments/1/a.png", "attachments/1/a.png.bak")
		n.AttachmentDetails = map[string]*domain.AttachmentDetail{
			"attachments/1/a.png":     {ID: "att-1", Name: "a.png", Uploaded: true, URL: "https://w/api/attachments.redirect?id=att-1"},
			"attachments/1/a.png.bak": {ID: "att-2", Name: "a.png.bak", Uploaded: true, URL: "https://w/api/attachments.redirect?id=att-2"},
		}
		content := "![d]({attachments/1/a.png}) and [backup]({attachments/1/a.png.bak})"

		out := rewriteAttachmentRefs(content, n)

		assert.Contains(t, out, "![d](https://w/api/attachments.redirect?id=att-1)")
		assert.Contains(t, out, "[backup](https://w/api/attachments.redirect?id=att-2)")
		assert.NotContains(t, out, "id=att-1.bak")
		assert.NotContains(t, out, "## Attachments")
	})

	t.Run("failed uploads are left untouched", func(t *testing.T) {
		n := attachmentNode("attachments/1/a.png")
		failure := domain.NewErrorRecord("boom")
		n.AttachmentDetails = map[string]*domain.AttachmentDetail{
			"attachments/1/a.png": {Name: "a.png", Uploaded: false, Failure: &failure},
		}
		content := "![d]({attachments/1/a.png})"

		out := rewriteAttachmentRefs(content, n)

		assert.Equal(t, content, out)
	})

	t.Run("content without uploads passes through", func(t *testing.T) {
		n := attachmentNode()

		out := rewriteAttachmentRefs("# Title", n)

		assert.Equal(t, "# Title", out)
	})
}
