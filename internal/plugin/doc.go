// Package plugin defines the scanner contract and registry for
// domain-specific collection discovery.
//
// A Scanner handles one collection type: it detects whether a root belongs
// to it, discovers items as relative paths, extracts domain metadata,
// checks per-item health, and supplies the static prompt material the
// annotator needs. The Registry holds scanners in a fixed priority order
// and maps each collection root to exactly one implementation; when no
// scanner claims a root, the generic fallback (size/timestamps only)
// applies. Two scanners both matching a root resolves to the earlier
// registration: first match by priority order is the deterministic
// tie-break.
package plugin
