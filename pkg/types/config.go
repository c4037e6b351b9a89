package types

import "fmt"

// CollectionTypeGeneric is the fallback collection type used when no scanner
// plugin claims a collection root.
const CollectionTypeGeneric = "generic"

// CollectionConfig is the schema governing one collection. It is created by
// the analyzer collaborator (or bootstrapped from a plugin's defaults) and
// read by every stage; the curator proposes, but never applies, revisions.
type CollectionConfig struct {
	CollectionType  string   `yaml:"collection_type"`
	Title           string   `yaml:"title,omitempty"`
	Description     string   `yaml:"description,omitempty"`
	Categories      []string `yaml:"categories"`
	MetadataFields  []string `yaml:"metadata_fields,omitempty"`
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
	OutputFormats   []string `yaml:"output_formats,omitempty"`
}

// Validate checks the minimal config schema. Violations name the offending
// field so configuration errors fail the run before any stage mutates state.
func (c *CollectionConfig) Validate() error {
	if c.CollectionType == "" {
		return fmt.Errorf("%w: collection_type", ErrInvalidConfig)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: categories must not be empty", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat == "" {
			return fmt.Errorf("%w: categories contains an empty entry", ErrInvalidConfig)
		}
		if seen[cat] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidConfig, cat)
		}
		seen[cat] = true
	}
	return nil
}

// HasCategory reports whether the given category is part of the taxonomy.
func (c *CollectionConfig) HasCategory(category string) bool {
	for _, cat := range c.Categories {
		if cat == category {
			return true
		}
	}
	return false
}

// Formats returns the configured output formats, defaulting to markdown.
func (c *CollectionConfig) Formats() []string {
	if len(c.OutputFormats) == 0 {
		return []string{"markdown"}
	}
	return c.OutputFormats
}
