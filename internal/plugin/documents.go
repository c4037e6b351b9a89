package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const documentsType = "documents"

// minDocumentFiles is how many document files a directory needs before it
// reads as a document collection rather than an incidental folder.
const minDocumentFiles = 5

// docExtensions are the file types the documents scanner tracks.
var docExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".rtf": true, ".odt": true, ".md": true, ".tex": true,
}

// textDocExtensions are the document types whose content can be read
// directly for metadata and sampling.
var textDocExtensions = map[string]bool{
	".txt": true, ".md": true, ".tex": true,
}

// DocumentsScanner handles document libraries: items are individual
// documents and metadata covers text structure (word count, title) where
// the format allows reading it.
type DocumentsScanner struct{}

// NewDocumentsScanner creates the documents scanner.
func NewDocumentsScanner() *DocumentsScanner {
	return &DocumentsScanner{}
}

func (s *DocumentsScanner) Name() string { return documentsType }

// Detect walks the root counting document files and matches once the
// minimum is reached. The walk stops early at the threshold.
func (s *DocumentsScanner) Detect(root string) bool {
	return countByExtension(root, docExtensions, minDocumentFiles) >= minDocumentFiles
}

// Discover collects document files, skipping hidden paths and exclusions.
func (s *DocumentsScanner) Discover(root string, cfg *types.CollectionConfig) ([]string, error) {
	return discoverByExtension(root, cfg, docExtensions)
}

// ExtractMetadata reads text structure for readable formats; binary
// formats get the filename as title and no content stats.
func (s *DocumentsScanner) ExtractMetadata(absPath string) (map[string]any, error) {
	ext := strings.ToLower(filepath.Ext(absPath))
	metadata := map[string]any{
		"file_extension": ext,
	}

	if !textDocExtensions[ext] {
		metadata["has_text_content"] = false
		metadata["title"] = stem(absPath)
		return metadata, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	metadata["has_text_content"] = true
	metadata["word_count"] = len(strings.Fields(content))
	metadata["line_count"] = len(strings.Split(content, "\n"))
	if title := documentTitle(content); title != "" {
		metadata["title"] = title
	} else {
		metadata["title"] = stem(absPath)
	}
	return metadata, nil
}

// CheckStatus for documents only verifies readability.
func (s *DocumentsScanner) CheckStatus(ctx context.Context, absPath string) map[string]any {
	if _, err := os.Stat(absPath); err != nil {
		return map[string]any{"state": "error", "error": err.Error()}
	}
	return map[string]any{"state": "ok"}
}

// ContentSample returns leading text for readable formats; binary formats
// are identified by name only.
func (s *DocumentsScanner) ContentSample(absPath string) string {
	ext := strings.ToLower(filepath.Ext(absPath))
	switch {
	case textDocExtensions[ext]:
		data, err := os.ReadFile(absPath)
		if err != nil {
			return "Document: " + stem(absPath)
		}
		return truncateSample(strings.TrimSpace(string(data)))
	case ext == ".pdf":
		return "PDF document: " + stem(absPath)
	case ext == ".doc" || ext == ".docx":
		return "Office document: " + stem(absPath)
	default:
		return "Document: " + stem(absPath)
	}
}

func (s *DocumentsScanner) PromptTemplate() string {
	return "This is a document from a document library. Focus on the document's core purpose and content; be concise and technical."
}

func (s *DocumentsScanner) ExampleDescriptions() []string {
	return []string{
		"Comprehensive research paper on machine learning algorithms and their applications in data science",
		"Business proposal outlining market strategy and financial projections for new product launch",
		"Legal contract specifying terms and conditions for software licensing agreement",
		"Technical specification document detailing API endpoints and data structures",
		"Annual business report summarizing company performance and strategic initiatives",
	}
}

func (s *DocumentsScanner) DefaultCategories() []string {
	return []string{
		"research_papers",
		"business_docs",
		"legal_documents",
		"educational_materials",
		"technical_docs",
		"personal_docs",
		"reports_presentations",
		"utilities_misc",
	}
}

// Fingerprint defers to the default size+mtime signature.
func (s *DocumentsScanner) Fingerprint(absPath string, info os.FileInfo) string {
	return ""
}

// documentTitle extracts a title from the leading markdown heading or the
// first non-empty line, capped at 100 characters.
func documentTitle(content string) string {
	for i, line := range strings.Split(content, "\n") {
		if i >= 10 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if len(line) > 100 {
			line = line[:100]
		}
		return line
	}
	return ""
}

func stem(absPath string) string {
	base := filepath.Base(absPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// countByExtension counts matching files under root, stopping once limit
// is reached so Detect stays cheap on large trees.
func countByExtension(root string, exts map[string]bool, limit int) int {
	count := 0
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if hiddenOrState(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(path))] {
			count++
			if count >= limit {
				return filepath.SkipAll
			}
		}
		return nil
	})
	return count
}

// discoverByExtension walks root collecting files whose extension is in
// exts, honoring hidden-path and exclusion rules, sorted for determinism.
func discoverByExtension(root string, cfg *types.CollectionConfig, exts map[string]bool) ([]string, error) {
	var patterns []string
	if cfg != nil {
		patterns = cfg.ExcludePatterns
	}

	var items []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hiddenOrState(rel) || excluded(rel, patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(path))] {
			items = append(items, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(items)
	return items, nil
}
