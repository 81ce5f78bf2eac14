package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// defaultUploadAttempts bounds the per-attachment upload loop. Each attempt
// reopens the source file and runs both protocol phases, since a consumed
// ticket cannot be reused after a failed byte transfer.
const defaultUploadAttempts = 3

// AttachmentService uploads a node's pending attachments using the
// two-phase protocol: register metadata to obtain an upload ticket, then
// stream the bytes to the ticket's target. Already uploaded attachments
// are never re-verified or re-sent.
type AttachmentService struct {
	remote   driven.RemoteClient
	attempts int

	// sleep is swappable in tests. Nil means time.Sleep via context.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewAttachmentService(remote driven.RemoteClient) *AttachmentService {
	return &AttachmentService{remote: remote, attempts: defaultUploadAttempts}
}

func (s *AttachmentService) wait(ctx context.Context, d time.Duration) error {
	if s.sleep != nil {
		return s.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Process uploads every pending attachment of node to the document docID,
// recording per-attachment state on the node. A failed attachment is
// logged on its detail and does not abort the remaining attachments.
func (s *AttachmentService) Process(ctx context.Context, source driven.AttachmentSource, node *domain.DocumentNode, docID string) (uploaded, failed int, err error) {
	for _, ref := range node.PendingAttachments() {
		if ctx.Err() != nil {
			return uploaded, failed, ctx.Err()
		}
		if s.uploadOne(ctx, source, node, docID, ref) {
			uploaded++
		} else {
			failed++
		}
	}
	return uploaded, failed, nil
}

// uploadOne runs the retry loop for a single attachment. Missing source
// files fail immediately; transport failures are retried with a short
// linear backoff.
func (s *AttachmentService) uploadOne(ctx context.Context, source driven.AttachmentSource, node *domain.DocumentNode, docID, ref string) bool {
	detail := node.Detail(ref)
	detail.Name = path.Base(ref)

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		detail.Retries = attempt
		err := s.attempt(ctx, source, detail, docID, ref)
		if err == nil {
			now := time.Now().UTC()
			detail.Uploaded = true
			detail.UploadedAt = &now
			detail.Failure = nil
			logger.Debug("uploaded attachment %s as %s", ref, detail.ID)
			return true
		}
		lastErr = err

		// A file that cannot be opened will not appear between attempts.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			break
		}
		if attempt < s.attempts {
			logger.Warn("attachment %s attempt %d/%d failed: %v", ref, attempt, s.attempts, err)
			if werr := s.wait(ctx, time.Duration(attempt)*time.Second); werr != nil {
				lastErr = werr
				break
			}
		}
	}

	failure := domain.NewErrorRecord(fmt.Sprintf("upload %s: %v", ref, lastErr))
	detail.Failure = &failure
	logger.Error("attachment %s failed after %d attempts: %v", ref, detail.Retries, lastErr)
	return false
}

func (s *AttachmentService) attempt(ctx context.Context, source driven.AttachmentSource, detail *domain.AttachmentDetail, docID, ref string) error {
	body, size, contentType, err := source.Open(ref)
	if err != nil {
		return err
	}
	defer body.Close()

	detail.Size = size
	detail.ContentType = contentType

	ticket, err := s.remote.CreateAttachment(ctx, driven.CreateAttachmentRequest{
		Name:        detail.Name,
		ContentType: contentType,
		Size:        size,
		DocumentID:  docID,
	})
	if err != nil {
		return fmt.Errorf("register attachment: %w", err)
	}
	if ticket.MaxUploadSize > 0 && size > ticket.MaxUploadSize {
		return fmt.Errorf("attachment is %d bytes, server limit is %d: %w", size, ticket.MaxUploadSize, domain.ErrInvalidInput)
	}

	if err := s.remote.UploadAttachmentBytes(ctx, ticket, detail.Name, body); err != nil {
		return fmt.Errorf("transfer attachment bytes: %w", err)
	}

	detail.ID = ticket.ID
	detail.URL = s.remote.AttachmentURL(ticket.ID)
	return nil
}
