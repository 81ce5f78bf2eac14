// Package outline implements the Outline REST API client and the
// retry/backoff policy shared by all remote call sites.
package outline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// listPageSize is the page size used for collections.list.
	listPageSize = 100

	// proactiveInterval spaces successive API requests. Outline's
	// default rate limit is strict, so the client throttles itself
	// before the server has to.
	proactiveInterval = 500 * time.Millisecond
)

// Ensure Client implements the remote port.
var _ driven.RemoteClient = (*Client)(nil)

// Client talks to one Outline instance. All primary API requests carry the
// bearer token; attachment byte uploads go to a separate pre-authorised
// target and carry no token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	upload  *http.Client
	bucket  *rate.Limiter
}

// NewClient creates an Outline API client.
// baseURL is the instance root, e.g. "https://wiki.example.com".
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
		upload:  &http.Client{Timeout: 5 * time.Minute},
		bucket:  rate.NewLimiter(rate.Every(proactiveInterval), 1),
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// envelope is Outline's standard response wrapper.
type envelope struct {
	Ok      bool            `json:"ok"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do posts payload to /api/<endpoint> and decodes the data envelope into out.
func (c *Client) do(ctx context.Context, endpoint string, payload, out any) error {
	if err := c.bucket.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Endpoint: endpoint, Err: err}
	}

	var env envelope
	if len(raw) > 0 {
		// Error bodies are JSON envelopes too; a decode failure on a
		// non-2xx response is reported as the status error below.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}
	if !env.Ok {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "request rejected"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

type wireCollection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (w wireCollection) toPort() driven.Collection {
	return driven.Collection{ID: w.ID, Name: w.Name, Description: w.Description}
}

// VerifyAuth confirms the token is accepted via auth.info.
func (c *Client) VerifyAuth(ctx context.Context) error {
	var data struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := c.do(ctx, "auth.info", struct{}{}, &data); err != nil {
		return err
	}
	logger.Debug("authenticated against %s as %s", c.baseURL, data.User.Name)
	return nil
}

// CreateCollection creates a collection with the instance default styling.
func (c *Client) CreateCollection(ctx context.Context, name, description string) (*driven.Collection, error) {
	payload := map[string]any{
		"name":        name,
		"description": description,
		"color":       "#4E5C6E",
		"private":     false,
	}
	var data wireCollection
	if err := c.do(ctx, "collections.create", payload, &data); err != nil {
		return nil, err
	}
	col := data.toPort()
	return &col, nil
}

// ListCollections returns all collections, following pagination.
func (c *Client) ListCollections(ctx context.Context) ([]driven.Collection, error) {
	var all []driven.Collection
	for offset := 0; ; offset += listPageSize {
		payload := map[string]any{"limit": listPageSize, "offset": offset}
		var data []wireCollection
		if err := c.do(ctx, "collections.list", payload, &data); err != nil {
			return nil, err
		}
		for _, w := range data {
			all = append(all, w.toPort())
		}
		if len(data) < listPageSize {
			return all, nil
		}
	}
}

// CollectionInfo fetches one collection, mapping 404 to domain.ErrNotFound.
func (c *Client) CollectionInfo(ctx context.Context, id string) (*driven.Collection, error) {
	var data wireCollection
	if err := c.do(ctx, "collections.info", map[string]string{"id": id}, &data); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	col := data.toPort()
	return &col, nil
}

// CreateDocument creates a published document.
func (c *Client) CreateDocument(ctx context.Context, req driven.CreateDocumentRequest) (*driven.CreatedDocument, error) {
	payload := map[string]any{
		"title":        req.Title,
		"text":         req.Text,
		"collectionId": req.CollectionID,
		"publish":      true,
	}
	if req.ParentID != nil {
		payload["parentDocumentId"] = *req.ParentID
	}
	var data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, "documents.create", payload, &data); err != nil {
		return nil, err
	}
	return &driven.CreatedDocument{ID: data.ID, URL: data.URL}, nil
}

// UpdateDocument replaces a document's text, keeping it published.
func (c *Client) UpdateDocument(ctx context.Context, id, text string) error {
	payload := map[string]any{
		"id":      id,
		"text":    text,
		"publish": true,
	}
	return c.do(ctx, "documents.update", payload, nil)
}

// DocumentExists probes documents.info, mapping 404 to false.
func (c *Client) DocumentExists(ctx context.Context, id string) (bool, error) {
	err := c.do(ctx, "documents.info", map[string]string{"id": id}, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateAttachment registers attachment metadata and returns the upload
// ticket for phase two of the attachment protocol.
func (c *Client) CreateAttachment(ctx context.Context, req driven.CreateAttachmentRequest) (*driven.AttachmentTicket, error) {
	payload := map[string]any{
		"name":        req.Name,
		"contentType": req.ContentType,
		"size":        req.Size,
		"documentId":  req.DocumentID,
	}
	var data struct {
		MaxUploadSize int64             `json:"maxUploadSize"`
		UploadURL     string            `json:"uploadUrl"`
		Form          map[string]string `json:"form"`
		Attachment    struct {
			ID string `json:"id"`
		} `json:"attachment"`
	}
	if err := c.do(ctx, "attachments.create", payload, &data); err != nil {
		return nil, err
	}
	return &driven.AttachmentTicket{
		ID:            data.Attachment.ID,
		UploadURL:     data.UploadURL,
		Form:          data.Form,
		MaxUploadSize: data.MaxUploadSize,
	}, nil
}

// UploadAttachmentBytes streams the file to the ticket's upload target as a
// multipart form. The target is pre-authorised, so the request carries no
// bearer token. Any 2xx status is success.
func (c *Client) UploadAttachmentBytes(ctx context.Context, ticket *driven.AttachmentTicket, filename string, body io.Reader) error {
	// Pipe the multipart body straight into the request so large files
	// never sit in memory in full.
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(w, ticket.Form, filename, body))
	}()

	uploadURL := ticket.UploadURL
	if len(uploadURL) > 0 && uploadURL[0] == '/' {
		uploadURL = c.baseURL + uploadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, pr)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: "attachment upload", Err: err}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Endpoint:   "attachment upload",
		}
	}
	return nil
}

// writeMultipart emits the ticket's form fields followed by the file part.
func writeMultipart(w *multipart.Writer, form map[string]string, filename string, body io.Reader) error {
	for field, value := range form {
		if err := w.WriteField(field, value); err != nil {
			return fmt.Errorf("write form field %s: %w", field, err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("copy attachment body: %w", err)
	}
	return w.Close()
}

// AttachmentURL returns the stable redirect URL for an attachment id.
func (c *Client) AttachmentURL(id string) string {
	return c.baseURL + "/api/attachments.redirect?id=" + id
}
