package types

import "time"

// CollectionIndex is the persisted set of items plus run metadata. It is
// owned exclusively by the active pipeline run for its collection; concurrent
// runs on the same collection are rejected by the run lock.
type CollectionIndex struct {
	CollectionID string `yaml:"collection_id"`
	// Domain is the collection type that produced this index (repositories,
	// obsidian, documents, media, generic). Empty on a never-scanned index;
	// the reconciler stamps it from config on every scan.
	Domain       string            `yaml:"domain"`
	LastScan     time.Time         `yaml:"last_scan"`
	ScanDuration float64           `yaml:"scan_duration_seconds"`
	TotalItems   int               `yaml:"total_items"`
	Items        []*CollectionItem `yaml:"items"`
}

// NewIndex returns an empty index for a collection of the given type.
func NewIndex(collectionID, domain string) *CollectionIndex {
	return &CollectionIndex{
		CollectionID: collectionID,
		Domain:       domain,
		Items:        []*CollectionItem{},
	}
}

// ItemByPath returns the item with the given relative path, or nil.
func (ix *CollectionIndex) ItemByPath(relPath string) *CollectionItem {
	for _, it := range ix.Items {
		if it.Path == relPath {
			return it
		}
	}
	return nil
}

// ItemByID returns the item with the given identifier, or nil.
func (ix *CollectionIndex) ItemByID(id string) *CollectionItem {
	for _, it := range ix.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Unannotated returns the items with no description, in index order.
func (ix *CollectionIndex) Unannotated() []*CollectionItem {
	var out []*CollectionItem
	for _, it := range ix.Items {
		if it.Description == nil {
			out = append(out, it)
		}
	}
	return out
}

// CategoryCounts returns per-category item counts for annotated items.
func (ix *CollectionIndex) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range ix.Items {
		if it.Category != nil {
			counts[*it.Category]++
		}
	}
	return counts
}
