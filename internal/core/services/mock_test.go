package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// mockRemote is an in-memory remote document system. It records every
// mutating call so tests can assert ordering and counts.
type mockRemote struct {
	mu sync.Mutex

	collections []driven.Collection
	nextID      int

	// documents maps created ids to existence; delete by setting false.
	documents map[string]bool
	// docText holds the latest text per document id.
	docText map[string]string

	// createLog records document titles in creation order.
	createLog []string
	updateLog []string

	// failCreate maps a title to an error returned on creation.
	failCreate map[string]error
	// failExists maps a document id to an error from DocumentExists.
	failExists map[string]error
	// failUploadRef counts remaining byte-transfer failures per filename.
	failUploadRef map[string]int

	attachmentsCreated int
	uploadedBodies     map[string]string

	verifyAuthErr error
	listErr       error
}

var _ driven.RemoteClient = (*mockRemote)(nil)

func newMockRemote() *mockRemote {
	return &mockRemote{
		documents:      make(map[string]bool),
		docText:        make(map[string]string),
		failCreate:     make(map[string]error),
		failExists:     make(map[string]error),
		failUploadRef:  make(map[string]int),
		uploadedBodies: make(map[string]string),
	}
}

func (m *mockRemote) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockRemote) VerifyAuth(context.Context) error { return m.verifyAuthErr }

func (m *mockRemote) CreateCollection(_ context.Context, name, description string) (*driven.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col := driven.Collection{ID: m.id("col"), Name: name, Description: description}
	m.collections = append(m.collections, col)
	return &col, nil
}

func (m *mockRemote) ListCollections(context.Context) ([]driven.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]driven.Collection(nil), m.collections...), nil
}

func (m *mockRemote) CollectionInfo(_ context.Context, id string) (*driven.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, col := range m.collections {
		if col.ID == id {
			c := col
			return &c, nil
		}
	}
	return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
}

func (m *mockRemote) CreateDocument(_ context.Context, req driven.CreateDocumentRequest) (*driven.CreatedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failCreate[req.Title]; err != nil {
		return nil, err
	}
	id := m.id("doc")
	m.documents[id] = true
	m.docText[id] = req.Text
	m.createLog = append(m.createLog, req.Title)
	return &driven.CreatedDocument{ID: id, URL: "/doc/" + id}, nil
}

func (m *mockRemote) UpdateDocument(_ context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.documents[id] {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	m.docText[id] = text
	m.updateLog = append(m.updateLog, id)
	return nil
}

func (m *mockRemote) DocumentExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failExists[id]; err != nil {
		return false, err
	}
	return m.documents[id], nil
}

func (m *mockRemote) CreateAttachment(_ context.Context, req driven.CreateAttachmentRequest) (*driven.AttachmentTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachmentsCreated++
	return &driven.AttachmentTicket{
		ID:            m.id("att"),
		UploadURL:     "/upload",
		Form:          map[string]string{"key": "k"},
		MaxUploadSize: 1 << 20,
	}, nil
}

func (m *mockRemote) UploadAttachmentBytes(_ context.Context, ticket *driven.AttachmentTicket, filename string, body io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.failUploadRef[filename]; n > 0 {
		m.failUploadRef[filename] = n - 1
		return fmt.Errorf("transfer refused")
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.uploadedBodies[ticket.ID] = string(raw)
	return nil
}

func (m *mockRemote) AttachmentURL(id string) string {
	return "https://wiki.example.com/api/attachments.redirect?id=" + id
}

// mockSource serves attachment bytes from a map keyed by ref.
type mockSource struct {
	files map[string]string
}

var _ driven.AttachmentSource = (*mockSource)(nil)

func (m *mockSource) Open(ref string) (io.ReadCloser, int64, string, error) {
	content, ok := m.files[ref]
	if !ok {
		return nil, 0, "", fmt.Errorf("attachment %s: %w", ref, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader([]byte(content))), int64(len(content)), "application/octet-stream", nil
}

// mockChooser is a canned AmbiguityResolver.
type mockChooser struct {
	idx   int
	err   error
	calls int
}

var _ driven.AmbiguityResolver = (*mockChooser)(nil)

func (m *mockChooser) Choose(_ context.Context, _ string, _ []driven.Collection) (int, error) {
	m.calls++
	return m.idx, m.err
}

func abstainingChooser() *mockChooser {
	return &mockChooser{err: domain.ErrAbstained}
}
