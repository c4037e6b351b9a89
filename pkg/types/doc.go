// Package types defines the shared data model for the Collectivist engine:
// collection items, the persisted index, the collection config schema, and
// the structured run results and progress events exchanged at the
// orchestrator boundary.
//
// Ownership follows the document model: a CollectionIndex and its
// CollectionConfig belong to exactly one collection and are persisted as
// sibling YAML documents under the collection's .collection directory. No
// component shares them by pointer across runs; consumers re-read or receive
// a passed-in copy.
package types
