package types

import (
	"strings"
	"time"
)

// ItemKind distinguishes file items from directory items.
type ItemKind string

const (
	KindFile ItemKind = "file"
	KindDir  ItemKind = "dir"
)

// CollectionItem is one discovered unit in a collection. Identity is the
// sanitized relative path; renames survive only when the scanner plugin
// supplies a content fingerprint that lets the reconciler match the move.
type CollectionItem struct {
	ID       string    `yaml:"id"`
	Path     string    `yaml:"path"` // relative to the collection root
	Name     string    `yaml:"name"`
	Kind     ItemKind  `yaml:"type"`
	Size     int64     `yaml:"size"`
	Created  time.Time `yaml:"created"`
	Modified time.Time `yaml:"modified"`
	Accessed time.Time `yaml:"accessed"`

	// Metadata is the plugin-defined, domain-specific schema.
	Metadata map[string]any `yaml:"metadata,omitempty"`
	// Status is the plugin's health signal (e.g. git sync state).
	Status map[string]any `yaml:"status,omitempty"`

	// ContentSample is a bounded excerpt consumed by the annotator.
	ContentSample string `yaml:"content_sample,omitempty"`

	// Description and Category are produced only by the annotator.
	// They are either both nil or both set.
	Description *string `yaml:"description"`
	Category    *string `yaml:"category"`

	// AnnotationError marks an item the annotator gave up on this run.
	AnnotationError bool `yaml:"annotation_error,omitempty"`

	// Fingerprint is the content signature used for move detection.
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// Annotated reports whether the item carries a complete annotation.
func (it *CollectionItem) Annotated() bool {
	return it.Description != nil && it.Category != nil
}

// SetAnnotation sets description and category together, preserving the
// both-or-neither invariant, and clears any previous annotation error.
func (it *CollectionItem) SetAnnotation(description, category string) {
	it.Description = &description
	it.Category = &category
	it.AnnotationError = false
}

// ClearAnnotation removes both annotation fields together.
func (it *CollectionItem) ClearAnnotation() {
	it.Description = nil
	it.Category = nil
}

// Validate checks item-level invariants.
func (it *CollectionItem) Validate() error {
	if it.Path == "" {
		return ErrItemPathEmpty
	}
	if (it.Description == nil) != (it.Category == nil) {
		return ErrPartialAnnotation
	}
	return nil
}

// ItemID derives the stable item identifier from a relative path.
func ItemID(relPath string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return r.Replace(relPath)
}
