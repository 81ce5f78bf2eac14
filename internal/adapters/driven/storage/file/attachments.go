package file

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// Ensure AttachmentSource implements the interface.
var _ driven.AttachmentSource = (*AttachmentSource)(nil)

// AttachmentSource opens attachment files below a space directory.
// References are the slash-separated relative paths recorded at parse time,
// e.g. "attachments/100000003/diagram.png".
type AttachmentSource struct {
	spaceDir string
}

func NewAttachmentSource(spaceDir string) *AttachmentSource {
	return &AttachmentSource{spaceDir: spaceDir}
}

// Open returns the attachment body, size and content type. References that
// resolve outside the space directory are rejected.
func (a *AttachmentSource) Open(ref string) (io.ReadCloser, int64, string, error) {
	if strings.Contains(ref, "..") || filepath.IsAbs(ref) {
		return nil, 0, "", fmt.Errorf("attachment ref %q: %w", ref, domain.ErrInvalidInput)
	}

	path := filepath.Join(a.spaceDir, filepath.FromSlash(ref))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, "", fmt.Errorf("attachment %s: %w", ref, domain.ErrNotFound)
		}
		return nil, 0, "", fmt.Errorf("open attachment %s: %w", ref, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", fmt.Errorf("stat attachment %s: %w", ref, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(ref))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, info.Size(), contentType, nil
}
