package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driving"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// Ensure UploadService implements the driving ports.
var (
	_ driving.Uploader       = (*UploadService)(nil)
	_ driving.StatusReporter = (*UploadService)(nil)
	_ driving.Resetter       = (*UploadService)(nil)
)

// defaultPace is the delay between successive remote mutations.
const defaultPace = 2 * time.Second

// loadingPlaceholder is the provisional body for documents whose real
// content still needs attachment URLs substituted in.
const loadingPlaceholder = "Loading content..."

// AttachmentSourceFactory opens the attachment files of one space folder.
type AttachmentSourceFactory func(spaceDir string) driven.AttachmentSource

// UploadService is the resumable tree upload orchestrator. Progress is
// written to the space store after every node mutation, so a run killed at
// any point resumes without duplicating remote documents.
type UploadService struct {
	store       driven.SpaceStore
	remote      driven.RemoteClient
	resolver    *CollectionResolver
	attachments *AttachmentService
	sourceFor   AttachmentSourceFactory

	basePath string
	force    bool
	pace     time.Duration

	// sleep is swappable in tests. Nil means a context-aware sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewUploadService(
	store driven.SpaceStore,
	remote driven.RemoteClient,
	resolver *CollectionResolver,
	attachments *AttachmentService,
	sourceFor AttachmentSourceFactory,
	basePath string,
	force bool,
) *UploadService {
	return &UploadService{
		store:       store,
		remote:      remote,
		resolver:    resolver,
		attachments: attachments,
		sourceFor:   sourceFor,
		basePath:    basePath,
		force:       force,
		pace:        defaultPace,
	}
}

func (s *UploadService) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
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

// frame is one unit of the explicit traversal stack. parentID is the remote
// parent the node must be created under; nil means collection top level.
type frame struct {
	node     *domain.DocumentNode
	parentID *string
	isRoot   bool
}

// Upload migrates one space's tree to the remote system.
//
// The space root page maps to the collection itself: it is marked created
// with the collection id and its children become top-level documents. Every
// other node is created, updated or skipped according to its recorded state
// and the force flag, parents strictly before children.
func (s *UploadService) Upload(ctx context.Context, spaceKey string) (*driving.UploadResult, error) {
	// 1. Load the sidecar.
	space, err := s.store.Load(ctx, spaceKey)
	if err != nil {
		return nil, fmt.Errorf("load space: %w", err)
	}

	// 2. Confirm credentials before any mutation.
	if err := s.remote.VerifyAuth(ctx); err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	// 3. Resolve the collection. Failure is fatal for the space; the
	// recorded error travels with the sidecar.
	collectionID, err := s.resolver.Resolve(ctx, space)
	if err != nil {
		if serr := s.store.Save(ctx, space); serr != nil {
			logger.Error("save sidecar for %s: %v", spaceKey, serr)
		}
		return nil, err
	}
	if err := s.store.Save(ctx, space); err != nil {
		return nil, fmt.Errorf("save sidecar: %w", err)
	}

	logger.Info("uploading space %s into collection %s", spaceKey, collectionID)

	// 4. Walk the tree iteratively, children pushed after their parent's
	// remote id is known.
	source := s.sourceFor(filepath.Join(s.basePath, filepath.FromSlash(space.LocalFolder)))
	result := &driving.UploadResult{SpaceKey: spaceKey, CollectionID: collectionID}

	rootNode := space.Root()
	rootMapsToCollection := rootNode != nil && rootNode.Title == space.Name

	stack := make([]frame, 0, len(space.Content))
	for i := len(space.Content) - 1; i >= 0; i-- {
		stack = append(stack, frame{
			node:   space.Content[i],
			isRoot: rootMapsToCollection && space.Content[i] == rootNode,
		})
	}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			break
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parentID := s.processNode(ctx, space, source, f, collectionID, result)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parentID: parentID})
		}
	}

	// 5. Final bookkeeping.
	now := time.Now().UTC()
	space.Stats.UploadedAt = &now
	result.Created, result.Total = domain.CountCreated(space.Content)
	space.Stats.UploadSuccessful = result.Success()
	if err := s.store.Save(ctx, space); err != nil {
		return result, fmt.Errorf("save sidecar: %w", err)
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if result.Success() {
		logger.Info("uploaded space %s: %d/%d documents", spaceKey, result.Created, result.Total)
	} else {
		logger.Warn("partially uploaded space %s: %d/%d documents", spaceKey, result.Created, result.Total)
	}
	return result, nil
}

// processNode applies the node's disposition and returns the remote id the
// children should use as their parent. Children are always attempted, even
// after their parent's own create failed: a nil parent places them at the
// collection top level rather than dropping the whole subtree.
func (s *UploadService) processNode(ctx context.Context, space *domain.Space, source driven.AttachmentSource, f frame, collectionID string, result *driving.UploadResult) *string {
	node := f.node

	// The root page's content lives in the collection description, so the
	// node itself is only marked and its children promoted to top level.
	if f.isRoot {
		if !node.Created || node.RemoteID == nil || *node.RemoteID != collectionID {
			node.RemoteID = &collectionID
			node.RemoteParentID = nil
			node.Created = true
			s.persist(ctx, space)
			logger.Info("space root %q mapped to collection %s", node.Title, collectionID)
		}
		return nil
	}

	if node.Created {
		return s.processExisting(ctx, space, source, node, result)
	}
	return s.createNode(ctx, space, source, f, collectionID, result)
}

// processExisting handles nodes already marked created: verify the remote
// document, update in force mode, re-create when it was deleted out-of-band.
func (s *UploadService) processExisting(ctx context.Context, space *domain.Space, source driven.AttachmentSource, node *domain.DocumentNode, result *driving.UploadResult) *string {
	if node.RemoteID == nil {
		// Marked created with no recorded id: never re-create, and send
		// the children to the collection top level.
		logger.Warn("node %q is marked created but no remote id was recorded", node.Title)
		return nil
	}

	exists, err := s.remote.DocumentExists(ctx, *node.RemoteID)
	if err != nil {
		node.RecordError(fmt.Sprintf("verify document %s: %v", *node.RemoteID, err))
		s.persist(ctx, space)
		// The recorded id is still the best parent hint for children.
		return node.RemoteID
	}

	if !exists {
		logger.Warn("document %s for %q deleted remotely, recreating", *node.RemoteID, node.Title)
		node.RemoteID = nil
		node.Created = false
		return s.createNode(ctx, space, source, frame{node: node, parentID: node.RemoteParentID}, space.Stats.CollectionID, result)
	}

	if s.force {
		if err := s.remote.UpdateDocument(ctx, *node.RemoteID, s.finalText(node)); err != nil {
			node.RecordError(fmt.Sprintf("force update %q: %v", node.Title, err))
			s.persist(ctx, space)
			return node.RemoteID
		}
		logger.Info("force updated document %q (%s)", node.Title, *node.RemoteID)
		s.persist(ctx, space)
		s.pauseAfterMutation(ctx)
	} else {
		logger.Debug("skipping already created document %q", node.Title)
	}

	s.finishAttachments(ctx, space, source, node, result)
	return node.RemoteID
}

// createNode creates the remote document for a node that has none. When
// attachments are pending, the document is created with a placeholder body
// and filled in once the attachment URLs are known.
func (s *UploadService) createNode(ctx context.Context, space *domain.Space, source driven.AttachmentSource, f frame, collectionID string, result *driving.UploadResult) *string {
	node := f.node
	pending := len(node.PendingAttachments()) > 0

	text := s.finalText(node)
	if pending {
		text = loadingPlaceholder
	}

	doc, err := s.remote.CreateDocument(ctx, driven.CreateDocumentRequest{
		Title:        node.Title,
		Text:         text,
		CollectionID: collectionID,
		ParentID:     f.parentID,
	})
	if err != nil {
		node.RecordError(fmt.Sprintf("create %q: %v", node.Title, err))
		s.persist(ctx, space)
		logger.Error("create document %q: %v", node.Title, err)
		// The children are still attempted at the collection top level
		// so one failure never drops the whole subtree.
		return nil
	}

	node.RemoteID = &doc.ID
	node.RemoteParentID = f.parentID
	node.Created = true
	s.persist(ctx, space)
	logger.Info("created document %q (%s)", node.Title, doc.ID)
	s.pauseAfterMutation(ctx)

	if pending {
		s.finishAttachments(ctx, space, source, node, result)
	}
	return node.RemoteID
}

// finishAttachments uploads a node's pending attachments and pushes the
// rewritten content to the remote document. Nodes without pending
// attachments are left untouched.
func (s *UploadService) finishAttachments(ctx context.Context, space *domain.Space, source driven.AttachmentSource, node *domain.DocumentNode, result *driving.UploadResult) {
	if node.RemoteID == nil || len(node.PendingAttachments()) == 0 {
		return
	}

	uploaded, failed, err := s.attachments.Process(ctx, source, node, *node.RemoteID)
	result.AttachmentsUploaded += uploaded
	result.AttachmentsFailed += failed
	s.persist(ctx, space)
	if err != nil {
		return
	}

	node.Content = rewriteAttachmentRefs(node.Content, node)
	if err := s.remote.UpdateDocument(ctx, *node.RemoteID, s.finalText(node)); err != nil {
		node.RecordError(fmt.Sprintf("fill content for %q: %v", node.Title, err))
		logger.Error("fill content for %q: %v", node.Title, err)
	}
	s.persist(ctx, space)
	s.pauseAfterMutation(ctx)
}

// finalText returns the node's body, substituting a placeholder when the
// conversion stage left it empty.
func (s *UploadService) finalText(node *domain.DocumentNode) string {
	if strings.TrimSpace(node.Content) != "" {
		return node.Content
	}
	if node.Kind == domain.KindFolder {
		return fmt.Sprintf("# %s\n\nThis section contains the following documents:", node.Title)
	}
	return fmt.Sprintf("# %s\n\nContent not available.", node.Title)
}

// persist flushes the sidecar; persistence failures are logged, not fatal,
// so one bad write does not abort a long run.
func (s *UploadService) persist(ctx context.Context, space *domain.Space) {
	if err := s.store.Save(ctx, space); err != nil {
		logger.Error("save sidecar for %s: %v", space.Key, err)
	}
}

func (s *UploadService) pauseAfterMutation(ctx context.Context) {
	if err := s.wait(ctx, s.pace); err != nil {
		logger.Debug("pacing interrupted: %v", err)
	}
}

// Status summarises a space's upload progress.
func (s *UploadService) Status(ctx context.Context, spaceKey string) (*driving.SpaceStatus, error) {
	space, err := s.store.Load(ctx, spaceKey)
	if err != nil {
		return nil, err
	}

	status := &driving.SpaceStatus{
		SpaceKey:  space.Key,
		SpaceName: space.Name,
		Uploaded:  space.Stats.UploadSuccessful,
	}
	status.Created, status.Total = domain.CountCreated(space.Content)
	domain.Walk(space.Content, func(n *domain.DocumentNode, _ int) bool {
		status.Attachments.Total += len(n.Attachments)
		for _, ref := range n.Attachments {
			d := n.AttachmentDetails[ref]
			switch {
			case d == nil:
			case d.Uploaded:
				status.Attachments.Uploaded++
			case d.Failure != nil:
				status.Attachments.Failed++
			}
		}
		return true
	})
	return status, nil
}

// Spaces lists all persisted space keys.
func (s *UploadService) Spaces(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}

// Reset clears all upload bookkeeping for a space. The remote documents
// are left alone; the next upload recreates everything.
func (s *UploadService) Reset(ctx context.Context, spaceKey string) error {
	space, err := s.store.Load(ctx, spaceKey)
	if err != nil {
		return err
	}

	domain.ResetUploadState(space.Content)
	space.Stats.CollectionID = ""
	space.Stats.UploadedAt = nil
	space.Stats.UploadSuccessful = false
	space.Stats.CollectionErrors = nil

	if err := s.store.Save(ctx, space); err != nil {
		return fmt.Errorf("save sidecar: %w", err)
	}
	logger.Info("reset upload state for space %s", spaceKey)
	return nil
}
