package confluence

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// pageIDPattern matches the numeric Confluence page id at the end of an
// export filename, e.g. "Some-Page_123456789.html".
var pageIDPattern = regexp.MustCompile(`(\d{8,})(?:\.html)?$`)

// spaceMetadata is the key/value table at the top of an export's index.html.
type spaceMetadata struct {
	Key         string
	Name        string
	Description string
	CreatedBy   string
}

// pageLink is one navigation anchor from index.html, with its position in
// the nested list hierarchy expressed as a path of titles.
type pageLink struct {
	Title  string
	Href   string
	PageID string
	Path   []string
}

// ParseSpaceDir reads a space directory of an extracted export and builds
// the document tree from its index.html. localFolder is the value recorded
// in the sidecar, relative to the working base path.
func ParseSpaceDir(spaceDir, localFolder string) (*domain.Space, error) {
	indexPath := filepath.Join(spaceDir, "index.html")
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", indexPath, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", indexPath, err)
	}

	meta := parseMetadata(doc)
	if meta.Key == "" {
		meta.Key = filepath.Base(spaceDir)
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(spaceDir)
	}

	links := collectPageLinks(doc)
	logger.Debug("found %d page links in %s", len(links), indexPath)

	roots := buildTree(links, spaceDir)

	now := time.Now().UTC()
	space := &domain.Space{
		Name:        meta.Name,
		Key:         strings.ToLower(meta.Key),
		Description: meta.Description,
		LocalFolder: localFolder,
		Content:     roots,
	}
	pages, folders := countKinds(roots)
	space.Stats = domain.ProcessingStats{
		TotalPages:    pages,
		TotalNavNodes: folders,
		MaxDepth:      domain.MaxDepth(roots),
		ParsedAt:      &now,
	}
	return space, nil
}

// parseMetadata reads the Key/Name/Description rows of the first table.
func parseMetadata(doc *goquery.Document) spaceMetadata {
	var meta spaceMetadata
	doc.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		key := strings.TrimSuffix(strings.TrimSpace(cells.Eq(0).Text()), ":")
		value := strings.TrimSpace(cells.Eq(1).Text())
		switch key {
		case "Key":
			meta.Key = value
		case "Name":
			meta.Name = value
		case "Description":
			meta.Description = value
		case "Created by":
			meta.CreatedBy = value
		}
	})
	return meta
}

// collectPageLinks walks every .html anchor in document order and derives
// its hierarchy path from the nesting of UL ancestors.
func collectPageLinks(doc *goquery.Document) []pageLink {
	var links []pageLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, ".html") || href == "index.html" {
			return
		}
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return
		}
		link := pageLink{
			Title: title,
			Href:  href,
			Path:  anchorPath(a, title),
		}
		if m := pageIDPattern.FindStringSubmatch(href); m != nil {
			link.PageID = m[1]
		}
		links = append(links, link)
	})
	return links
}

// anchorPath builds the title path for an anchor from its UL ancestors,
// outermost first. Each ancestor level contributes the title of its own
// entry, which is the first page anchor nested directly under that UL.
func anchorPath(a *goquery.Selection, title string) []string {
	uls := ulAncestors(a)

	var path []string
	for i := 0; i < len(uls)-1; i++ {
		if owner := levelAnchorTitle(uls[i]); owner != "" {
			path = append(path, owner)
		}
	}
	return append(path, title)
}

// ulAncestors returns the anchor's UL ancestors ordered outermost first.
func ulAncestors(a *goquery.Selection) []*goquery.Selection {
	var uls []*goquery.Selection
	a.ParentsFiltered("ul").Each(func(_ int, ul *goquery.Selection) {
		// Parents come closest-first; prepend to flip the order.
		uls = append([]*goquery.Selection{ul}, uls...)
	})
	return uls
}

// levelAnchorTitle finds the title of the entry owning a UL level: the
// first page anchor whose nearest UL ancestor is that UL.
func levelAnchorTitle(ul *goquery.Selection) string {
	var title string
	ul.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, ".html") || href == "index.html" {
			return true
		}
		if a.ParentsFiltered("ul").First().Get(0) != ul.Get(0) {
			return true
		}
		title = strings.TrimSpace(a.Text())
		return false
	})
	return title
}

// buildTree turns flat path-addressed links into document nodes, assigning
// each node a stable key and discovering its attachments on disk.
func buildTree(links []pageLink, spaceDir string) []*domain.DocumentNode {
	type entry struct {
		node     *domain.DocumentNode
		path     string
		children []*entry
	}

	byPath := make(map[string]*entry, len(links))
	var order []*entry
	for _, link := range links {
		pathKey := strings.Join(link.Path, "\x00")
		if _, seen := byPath[pathKey]; seen {
			logger.Warn("duplicate navigation entry skipped: %s", strings.Join(link.Path, " / "))
			continue
		}
		href := link.Href
		if _, err := os.Stat(filepath.Join(spaceDir, href)); err != nil {
			logger.Warn("page file missing: %s", href)
			href = ""
		}
		e := &entry{
			node: &domain.DocumentNode{
				Key:         uuid.NewString(),
				Title:       link.Title,
				HTMLPage:    href,
				Kind:        domain.KindPage,
				Attachments: findAttachments(link.Href, spaceDir),
			},
			path: pathKey,
		}
		byPath[pathKey] = e
		order = append(order, e)
	}

	var roots []*domain.DocumentNode
	for _, e := range order {
		idx := strings.LastIndexByte(e.path, '\x00')
		if idx < 0 {
			roots = append(roots, e.node)
			continue
		}
		parent, ok := byPath[e.path[:idx]]
		if !ok {
			roots = append(roots, e.node)
			continue
		}
		parent.node.Children = append(parent.node.Children, e.node)
		parent.node.Kind = domain.KindFolder
	}
	return roots
}

// findAttachments lists the files belonging to a page: the page-id
// directory under attachments/ plus any attachment links inside the page
// HTML itself.
func findAttachments(href, spaceDir string) []string {
	m := pageIDPattern.FindStringSubmatch(href)
	if m == nil {
		return nil
	}
	pageID := m[1]

	var refs []string
	seen := make(map[string]bool)
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	dirEntries, err := os.ReadDir(filepath.Join(spaceDir, "attachments", pageID))
	if err == nil {
		for _, de := range dirEntries {
			if !de.IsDir() {
				add(path.Join("attachments", pageID, de.Name()))
			}
		}
	}

	f, err := os.Open(filepath.Join(spaceDir, href))
	if err != nil {
		return refs
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return refs
	}
	doc.Find(`a[href*="attachments/"]`).Each(func(_ int, a *goquery.Selection) {
		link, _ := a.Attr("href")
		link = strings.ReplaceAll(link, "../", "")
		link = strings.ReplaceAll(link, "./", "")
		if i := strings.IndexByte(link, '?'); i >= 0 {
			link = link[:i]
		}
		if strings.HasPrefix(link, "attachments/") {
			add(link)
		}
	})
	return refs
}

func countKinds(roots []*domain.DocumentNode) (pages, folders int) {
	domain.Walk(roots, func(n *domain.DocumentNode, _ int) bool {
		if n.Kind == domain.KindFolder {
			folders++
		} else {
			pages++
		}
		return true
	})
	return pages, folders
}
