package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
)

// rewriteAttachmentRefs substitutes uploaded attachment URLs into markdown
// content. Three reference shapes are handled: the {attachments/...}
// placeholders written by the converter, markdown link destinations, and
// bare relative paths. Uploads the content never references are appended
// as a trailing attachment list so no uploaded file becomes unreachable.
func rewriteAttachmentRefs(content string, node *domain.DocumentNode) string {
	type upload struct {
		ref    string
		detail *domain.AttachmentDetail
	}
	var uploads []upload
	for _, ref := range node.Attachments {
		if d := node.AttachmentDetails[ref]; d != nil && d.Uploaded && d.URL != "" {
			uploads = append(uploads, upload{ref, d})
		}
	}
	if len(uploads) == 0 {
		return content
	}

	// Substitute longest refs first, so a ref that is a prefix of another
	// never corrupts the longer ref's occurrences.
	ordered := append([]upload(nil), uploads...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].ref) > len(ordered[j].ref)
	})

	for _, u := range ordered {
		content = strings.ReplaceAll(content, "{"+u.ref+"}", u.detail.URL)
		content = strings.ReplaceAll(content, "("+u.ref+")", "("+u.detail.URL+")")
		content = strings.ReplaceAll(content, u.ref, u.detail.URL)
	}

	referenced := linkDestinations(content)
	var orphans []upload
	for _, u := range uploads {
		if !referenced[u.detail.URL] {
			orphans = append(orphans, u)
		}
	}
	if len(orphans) == 0 {
		return content
	}

	var b strings.Builder
	b.WriteString(content)
	b.WriteString("\n\n## Attachments\n")
	for _, u := range orphans {
		name := u.detail.Name
		if name == "" {
			name = u.ref
		}
		fmt.Fprintf(&b, "\n- [%s](%s)", name, u.detail.URL)
	}
	return b.String()
}

// linkDestinations parses markdown and collects every link and image
// destination, plus autolink targets.
func linkDestinations(content string) map[string]bool {
	dests := make(map[string]bool)
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			dests[string(v.Destination)] = true
		case *ast.Image:
			dests[string(v.Destination)] = true
		case *ast.AutoLink:
			dests[string(v.URL(source))] = true
		}
		return ast.WalkContinue, nil
	})
	return dests
}
