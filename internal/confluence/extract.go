// Package confluence turns Confluence HTML space exports into document
// trees: archive extraction, index.html hierarchy parsing, and HTML to
// Markdown conversion.
package confluence

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// ExtractLimits bounds archive extraction. Exports come from a trusted
// wiki but travel as plain zip files, so zip bombs and path traversal
// are still checked.
type ExtractLimits struct {
	MaxFileSize  int64
	MaxTotalSize int64
	MaxFiles     int
}

// DefaultExtractLimits allows 100MB per file, 1GB per archive, 10000 files.
func DefaultExtractLimits() ExtractLimits {
	return ExtractLimits{
		MaxFileSize:  100 * 1024 * 1024,
		MaxTotalSize: 1024 * 1024 * 1024,
		MaxFiles:     10000,
	}
}

// Extractor unpacks export archives from zipsDir into inputDir, one
// folder per archive.
type Extractor struct {
	zipsDir  string
	inputDir string
	limits   ExtractLimits
}

func NewExtractor(zipsDir, inputDir string, limits ExtractLimits) *Extractor {
	return &Extractor{zipsDir: zipsDir, inputDir: inputDir, limits: limits}
}

// ExtractResult reports one archive's extraction outcome.
type ExtractResult struct {
	Archive   string
	Folder    string
	Extracted int
	Blocked   int
	Err       error
}

// ExtractAll unpacks every *.zip in the zips directory. Per-archive
// failures are reported in the results, not returned as an error.
func (e *Extractor) ExtractAll() ([]ExtractResult, error) {
	archives, err := filepath.Glob(filepath.Join(e.zipsDir, "*.zip"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", e.zipsDir, err)
	}
	if len(archives) == 0 {
		logger.Info("no archives found in %s", e.zipsDir)
		return nil, nil
	}

	results := make([]ExtractResult, 0, len(archives))
	for _, archive := range archives {
		res := e.ExtractArchive(archive)
		if res.Err != nil {
			logger.Error("extract %s: %v", filepath.Base(archive), res.Err)
		} else {
			logger.Info("extracted %d files from %s into %s", res.Extracted, filepath.Base(archive), res.Folder)
		}
		results = append(results, res)
	}
	return results, nil
}

// ExtractArchive unpacks one archive into inputDir/<folder>, replacing any
// previous extraction of the same archive.
func (e *Extractor) ExtractArchive(zipPath string) ExtractResult {
	res := ExtractResult{Archive: zipPath, Folder: FolderName(zipPath)}
	outDir := filepath.Join(e.inputDir, res.Folder)

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		res.Err = fmt.Errorf("open archive: %w", err)
		return res
	}
	defer r.Close()

	if len(r.File) > e.limits.MaxFiles {
		res.Err = fmt.Errorf("archive holds %d files, limit is %d", len(r.File), e.limits.MaxFiles)
		return res
	}
	var total int64
	for _, f := range r.File {
		total += int64(f.UncompressedSize64)
	}
	if total > e.limits.MaxTotalSize {
		res.Err = fmt.Errorf("archive expands to %d bytes, limit is %d", total, e.limits.MaxTotalSize)
		return res
	}

	if err := os.RemoveAll(outDir); err != nil {
		res.Err = fmt.Errorf("clear %s: %w", outDir, err)
		return res
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		res.Err = fmt.Errorf("create %s: %w", outDir, err)
		return res
	}

	for _, f := range r.File {
		if reason := e.blockReason(f); reason != "" {
			logger.Warn("blocked %s: %s", f.Name, reason)
			res.Blocked++
			continue
		}
		if err := extractMember(f, outDir); err != nil {
			logger.Warn("failed to extract %s: %v", f.Name, err)
			res.Blocked++
			continue
		}
		res.Extracted++
	}
	return res
}

// blockReason returns a non-empty reason when the member must not be
// extracted.
func (e *Extractor) blockReason(f *zip.File) string {
	if filepath.IsAbs(f.Name) || strings.Contains(f.Name, "..") {
		return "suspicious path"
	}
	if len(f.Name) > 255 {
		return "path too long"
	}
	if int64(f.UncompressedSize64) > e.limits.MaxFileSize {
		return fmt.Sprintf("file size %d exceeds limit", f.UncompressedSize64)
	}
	return ""
}

func extractMember(f *zip.File, outDir string) error {
	target := filepath.Join(outDir, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	// Cap the copy at the declared size so a lying header cannot expand
	// past the per-file limit.
	_, err = io.Copy(dst, io.LimitReader(src, int64(f.UncompressedSize64)))
	return err
}

// FolderName derives the extraction folder for an archive, normalising
// Confluence's export naming: "Confluence-space-export-135853.html.zip"
// becomes "Export-135853".
func FolderName(zipPath string) string {
	name := strings.TrimSuffix(filepath.Base(zipPath), ".zip")
	name = strings.TrimSuffix(name, ".html")
	name = strings.Replace(name, "Confluence-space-export-", "Export-", 1)
	name = strings.ReplaceAll(name, " ", "-")

	var b strings.Builder
	for _, c := range name {
		if c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}
