package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// SampleBudget is the fixed character budget for content samples.
const SampleBudget = 3000

// Registry errors.
var (
	ErrNilScanner            = errors.New("scanner cannot be nil")
	ErrScannerNameEmpty      = errors.New("scanner name cannot be empty")
	ErrDuplicateScanner      = errors.New("scanner already registered")
	ErrUnknownCollectionType = errors.New("unknown collection type")
)

// Scanner is the domain-specific discovery and metadata contract for one
// collection type. Implementations must keep Detect cheap and side-effect
// free, must never call external network services, and must bound any
// subprocess work (CheckStatus) with the supplied context.
type Scanner interface {
	// Name is the collection type this scanner handles.
	Name() string

	// Detect reports whether the root looks like this collection type.
	Detect(root string) bool

	// Discover returns the relative paths of all items in the collection,
	// honoring the config's exclusion patterns. The result is finite and
	// restartable: calling Discover twice yields the same paths.
	Discover(root string, cfg *types.CollectionConfig) ([]string, error)

	// ExtractMetadata is a pure function of the item's content/attributes.
	ExtractMetadata(absPath string) (map[string]any, error)

	// CheckStatus returns the item's domain health signal. It may shell out
	// to a local tool but must not block past the context deadline; a
	// timeout or tool failure yields an error-valued status, never a panic
	// or an error return.
	CheckStatus(ctx context.Context, absPath string) map[string]any

	// ContentSample returns a deterministic, bounded excerpt for annotation.
	ContentSample(absPath string) string

	// PromptTemplate is the static domain framing for annotation prompts.
	PromptTemplate() string

	// ExampleDescriptions are static few-shot examples for the annotator.
	ExampleDescriptions() []string

	// DefaultCategories seeds a collection config for this type.
	DefaultCategories() []string

	// Fingerprint returns the content signature for move detection, or ""
	// to use the default size+mtime signature.
	Fingerprint(absPath string, info os.FileInfo) string
}

// Registry holds scanners in a fixed priority order. Selection walks the
// registered scanners and picks the first positive Detect; the generic
// fallback (registered last) accepts anything.
type Registry struct {
	scanners []Scanner
}

// NewRegistry returns a registry with the built-in scanners registered in
// priority order: repositories, obsidian, documents, media, then the
// generic fallback.
func NewRegistry() *Registry {
	r := &Registry{}
	// Built-ins cannot fail registration.
	_ = r.Register(NewRepositoryScanner())
	_ = r.Register(NewObsidianScanner())
	_ = r.Register(NewDocumentsScanner())
	_ = r.Register(NewMediaScanner())
	_ = r.Register(NewGenericScanner())
	return r
}

// Register appends a scanner at the lowest priority. A scanner that fails
// validation fails registration, not individual scans.
func (r *Registry) Register(s Scanner) error {
	if s == nil {
		return ErrNilScanner
	}
	if s.Name() == "" {
		return ErrScannerNameEmpty
	}
	for _, existing := range r.scanners {
		if existing.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateScanner, s.Name())
		}
	}
	r.scanners = append(r.scanners, s)
	return nil
}

// Names lists registered collection types in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.scanners))
	for i, s := range r.scanners {
		names[i] = s.Name()
	}
	return names
}

// ByName returns the scanner for an explicit collection type.
func (r *Registry) ByName(name string) (Scanner, error) {
	for _, s := range r.scanners {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollectionType, name)
}

// Select maps a collection root to exactly one scanner. An explicit
// forceType wins; otherwise the first scanner whose Detect matches is
// chosen; with no match the generic fallback applies.
func (r *Registry) Select(root, forceType string) (Scanner, error) {
	if forceType != "" {
		return r.ByName(forceType)
	}
	for _, s := range r.scanners {
		if s.Detect(root) {
			return s, nil
		}
	}
	return r.ByName(types.CollectionTypeGeneric)
}

// DefaultFingerprint is the size+mtime content signature used when a
// scanner does not supply its own.
func DefaultFingerprint(info os.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}

// excluded reports whether a relative path matches any exclusion pattern.
// Patterns are tried as globs first, then as bare substrings.
func excluded(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(pattern, filepath.Base(relPath)); err == nil && ok {
			return true
		}
		stripped := strings.ReplaceAll(strings.ReplaceAll(pattern, "*", ""), "/", "")
		if stripped != "" && strings.Contains(relPath, stripped) {
			return true
		}
	}
	return false
}

// truncateSample enforces the fixed sample budget deterministically.
func truncateSample(s string) string {
	if len(s) <= SampleBudget {
		return s
	}
	return s[:SampleBudget-3] + "..."
}

// hiddenOrState reports whether any path segment is hidden or belongs to
// the collection state directory.
func hiddenOrState(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
