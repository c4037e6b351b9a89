package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// textExtensions are the file types the generic scanner will sample.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true, ".ts": true,
	".go": true, ".html": true, ".css": true, ".json": true, ".xml": true,
	".yaml": true, ".yml": true, ".toml": true,
}

// GenericScanner is the minimal fallback for unknown collection types. It
// stays close to the top level and extracts only size/timestamp metadata.
type GenericScanner struct{}

// NewGenericScanner creates the generic fallback scanner.
func NewGenericScanner() *GenericScanner {
	return &GenericScanner{}
}

func (s *GenericScanner) Name() string { return types.CollectionTypeGeneric }

// Detect always matches; the generic scanner is the last-resort fallback.
func (s *GenericScanner) Detect(root string) bool { return true }

// Discover lists immediate children only. Unknown collection types get a
// simple, predictable item set rather than a deep walk.
func (s *GenericScanner) Discover(root string, cfg *types.CollectionConfig) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var patterns []string
	if cfg != nil {
		patterns = cfg.ExcludePatterns
	}

	var items []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || excluded(name, patterns) {
			continue
		}
		items = append(items, name)
	}

	sort.Strings(items)
	return items, nil
}

// ExtractMetadata records only the file extension; size and timestamps are
// position-derived fields the reconciler fills from the stat call.
func (s *GenericScanner) ExtractMetadata(absPath string) (map[string]any, error) {
	metadata := make(map[string]any)
	if ext := filepath.Ext(absPath); ext != "" {
		metadata["extension"] = strings.ToLower(ext)
	}
	return metadata, nil
}

// CheckStatus only verifies the item still exists and is readable.
func (s *GenericScanner) CheckStatus(ctx context.Context, absPath string) map[string]any {
	if _, err := os.Stat(absPath); err != nil {
		return map[string]any{"state": "error", "error": err.Error()}
	}
	return map[string]any{"state": "ok"}
}

// ContentSample reads text files within the budget; for directories it
// lists the first entries.
func (s *GenericScanner) ContentSample(absPath string) string {
	info, err := os.Stat(absPath)
	if err != nil {
		return "No content sample available"
	}

	if info.IsDir() {
		entries, err := os.ReadDir(absPath)
		if err != nil {
			return "Directory: " + filepath.Base(absPath)
		}
		names := make([]string, 0, 10)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			names = append(names, e.Name())
			if len(names) == 10 {
				break
			}
		}
		return truncateSample("Directory: " + filepath.Base(absPath) + "\nContents: " + strings.Join(names, ", "))
	}

	if !textExtensions[strings.ToLower(filepath.Ext(absPath))] {
		return "File: " + filepath.Base(absPath)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "File: " + filepath.Base(absPath)
	}
	return truncateSample(strings.TrimSpace(string(data)))
}

func (s *GenericScanner) PromptTemplate() string {
	return "This is a collection item. Describe what it is and what it is for."
}

func (s *GenericScanner) ExampleDescriptions() []string {
	return []string{
		"Spreadsheet tracking quarterly budget allocations across teams",
		"Folder of conference talk recordings from 2025",
	}
}

func (s *GenericScanner) DefaultCategories() []string {
	return []string{
		"documents",
		"media",
		"archives",
		"uncategorized",
	}
}

// Fingerprint defers to the default size+mtime signature.
func (s *GenericScanner) Fingerprint(absPath string, info os.FileInfo) string {
	return ""
}
