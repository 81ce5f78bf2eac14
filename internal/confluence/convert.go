package confluence

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// Selectors for export chrome that must not reach the converted output.
var chromeSelectors = []string{
	"nav",
	"[id*=breadcrumb]", "[class*=breadcrumb]",
	"[id*=navigation]", "[class*=navigation]",
	"#main-header",
	"h1[id*=title]", "h2[id*=title]", "[id*=pagetitle]",
	".pagetitle", ".title-heading",
	"[class*=page-metadata]", "[class*=metadata]",
	"#footer",
}

// Fallback chain for locating the page body.
var contentSelectors = []string{
	"div#main-content.wiki-content",
	"div.wiki-content",
	"div#content",
	"div#main",
	"body",
}

var (
	breadcrumbLine  = regexp.MustCompile(`^\d+\.\s*(\[.*?\]\(.*?\)\s*)?$`)
	excessBlanks    = regexp.MustCompile(`\n{3,}`)
	emptyListItem   = regexp.MustCompile(`(?m)^\s*[*\-+]\s*$`)
	doubledPipe     = regexp.MustCompile(`\|\s*\|`)
	authorLine      = regexp.MustCompile(`(?m)^Created by.*?modified.*?on.*?$`)
	generatedFooter = regexp.MustCompile(`(?m)^Document generated by Confluence.*?$`)
)

// Converter renders exported page HTML as Markdown. Attachment references
// are rewritten to {attachments/...} placeholders so the upload stage can
// substitute remote URLs after the files exist.
type Converter struct {
	md *md.Converter
}

func NewConverter() *Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Converter{md: conv}
}

// ConvertSpace fills the Markdown content of every node in the space,
// reading page HTML from basePath/<local folder>.
func (c *Converter) ConvertSpace(space *domain.Space, basePath string) error {
	spaceDir := filepath.Join(basePath, filepath.FromSlash(space.LocalFolder))
	if _, err := os.Stat(spaceDir); err != nil {
		return fmt.Errorf("space folder %s: %w", spaceDir, err)
	}

	converted := 0
	domain.Walk(space.Content, func(n *domain.DocumentNode, _ int) bool {
		c.convertNode(n, spaceDir)
		converted++
		return true
	})

	now := time.Now().UTC()
	space.Stats.ConvertedAt = &now
	logger.Info("converted %d nodes for space %s", converted, space.Key)
	return nil
}

func (c *Converter) convertNode(n *domain.DocumentNode, spaceDir string) {
	if n.HTMLPage == "" {
		if n.Kind == domain.KindFolder {
			n.Content = fmt.Sprintf("# %s\n\nThis section contains the following documents:", n.Title)
		} else {
			n.Content = fmt.Sprintf("# %s\n\nContent not available.", n.Title)
		}
		return
	}

	body, err := c.ConvertFile(filepath.Join(spaceDir, filepath.FromSlash(n.HTMLPage)))
	if err != nil {
		logger.Warn("convert %s: %v", n.HTMLPage, err)
		n.RecordError(fmt.Sprintf("convert %s: %v", n.HTMLPage, err))
		n.Content = fmt.Sprintf("# %s\n\nContent not available.", n.Title)
		return
	}
	n.Content = body
}

// ConvertFile converts one exported page to Markdown: strip the export
// chrome, isolate the body, template attachment URLs, then render.
func (c *Converter) ConvertFile(htmlPath string) (string, error) {
	f, err := os.Open(htmlPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			content = s
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content element in %s", filepath.Base(htmlPath))
	}

	content.Find("[class*=nav], [class*=menu], [class*=sidebar]").Remove()

	// A leading ordered list linking back to index.html is a leftover
	// breadcrumb trail.
	if first := content.Find("ol").First(); first.Length() > 0 {
		if first.Find(`a[href="index.html"]`).Length() > 0 {
			first.Remove()
		}
	}

	templateAttachmentRefs(content)

	markdown := c.md.Convert(content)
	return strings.TrimSpace(cleanMarkdown(markdown)), nil
}

// templateAttachmentRefs rewrites attachment image sources and links to
// {attachments/<page-id>/<file>} placeholders, dropping query strings.
func templateAttachmentRefs(content *goquery.Selection) {
	rewrite := func(s *goquery.Selection, attr string) {
		url, _ := s.Attr(attr)
		if !strings.Contains(url, "attachments/") {
			return
		}
		if i := strings.IndexByte(url, '?'); i >= 0 {
			url = url[:i]
		}
		s.SetAttr(attr, "{"+url+"}")
	}
	content.Find(`img[src*="attachments/"]`).Each(func(_ int, s *goquery.Selection) {
		rewrite(s, "src")
	})
	content.Find(`a[href*="attachments/"]`).Each(func(_ int, s *goquery.Selection) {
		rewrite(s, "href")
	})
}

// cleanMarkdown removes conversion artifacts: leading breadcrumb lists,
// author and generator lines, empty list items, padded blank runs.
func cleanMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	skipping := true
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if skipping {
			if trimmed == "" || breadcrumbLine.MatchString(trimmed) {
				continue
			}
			skipping = false
		}
		kept = append(kept, line)
	}
	markdown = strings.Join(kept, "\n")

	markdown = emptyListItem.ReplaceAllString(markdown, "")
	markdown = doubledPipe.ReplaceAllString(markdown, "|")
	markdown = authorLine.ReplaceAllString(markdown, "")
	markdown = generatedFooter.ReplaceAllString(markdown, "")
	markdown = excessBlanks.ReplaceAllString(markdown, "\n\n")
	return markdown
}
