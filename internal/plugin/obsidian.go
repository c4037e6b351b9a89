package plugin

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const obsidianType = "obsidian"

var (
	wikilinkRe = regexp.MustCompile(`\[\[[^\]]+\]\]`)
	tagRe      = regexp.MustCompile(`(?m)(^|\s)#[\w/-]+`)
)

// ObsidianScanner handles Obsidian vaults: items are markdown notes and
// metadata covers note structure (word count, tags, wikilinks).
type ObsidianScanner struct{}

// NewObsidianScanner creates the obsidian scanner.
func NewObsidianScanner() *ObsidianScanner {
	return &ObsidianScanner{}
}

func (s *ObsidianScanner) Name() string { return obsidianType }

// Detect checks for the vault marker directory.
func (s *ObsidianScanner) Detect(root string) bool {
	info, err := os.Stat(filepath.Join(root, ".obsidian"))
	return err == nil && info.IsDir()
}

// Discover collects markdown notes, skipping hidden paths and exclusions.
func (s *ObsidianScanner) Discover(root string, cfg *types.CollectionConfig) ([]string, error) {
	var notes []string
	var patterns []string
	if cfg != nil {
		patterns = cfg.ExcludePatterns
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if hiddenOrState(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if excluded(rel, patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			notes = append(notes, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(notes)
	return notes, nil
}

// ExtractMetadata counts words, tags, and wikilinks in the note.
func (s *ObsidianScanner) ExtractMetadata(absPath string) (map[string]any, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	return map[string]any{
		"word_count": len(strings.Fields(content)),
		"tags":       len(tagRe.FindAllString(content, -1)),
		"wikilinks":  len(wikilinkRe.FindAllString(content, -1)),
	}, nil
}

// CheckStatus for notes only verifies readability.
func (s *ObsidianScanner) CheckStatus(ctx context.Context, absPath string) map[string]any {
	if _, err := os.Stat(absPath); err != nil {
		return map[string]any{"state": "error", "error": err.Error()}
	}
	return map[string]any{"state": "ok"}
}

// ContentSample returns the leading note text within the sample budget.
func (s *ObsidianScanner) ContentSample(absPath string) string {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "No content sample available"
	}
	return truncateSample(strings.TrimSpace(string(data)))
}

func (s *ObsidianScanner) PromptTemplate() string {
	return "This is a note from a personal knowledge vault. Focus on the topic, the ideas captured, and how the note connects to others."
}

func (s *ObsidianScanner) ExampleDescriptions() []string {
	return []string{
		"Literature notes on attention mechanisms with links to the transformers MOC",
		"Daily log capturing a debugging session on the sync pipeline",
		"Evergreen note defining the zettelkasten linking conventions for this vault",
	}
}

func (s *ObsidianScanner) DefaultCategories() []string {
	return []string{
		"evergreen_notes",
		"literature_notes",
		"daily_logs",
		"project_notes",
		"reference",
	}
}

// Fingerprint defers to the default size+mtime signature.
func (s *ObsidianScanner) Fingerprint(absPath string, info os.FileInfo) string {
	return ""
}
