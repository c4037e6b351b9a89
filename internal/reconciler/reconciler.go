package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/plugin"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// statusTimeout bounds every per-item status check issued during a scan.
const statusTimeout = 15 * time.Second

// Delta summarizes one reconciliation pass.
type Delta struct {
	Added     int
	Removed   int
	Moved     int
	Unchanged int
	Refreshed int
	Errored   int
}

// Empty reports whether the pass observed no filesystem change at all.
func (d Delta) Empty() bool {
	return d.Added == 0 && d.Removed == 0 && d.Moved == 0 && d.Refreshed == 0
}

// Reconciler merges current filesystem state into a previously persisted
// index, preserving annotations wherever the underlying item is unchanged.
// Annotations are only ever produced by the annotator; the reconciler never
// fabricates or silently drops them except on outright item deletion.
type Reconciler struct {
	log *zap.Logger
	now func() time.Time
}

// New creates a reconciler. A nil logger disables logging.
func New(log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{log: log, now: time.Now}
}

// Reconcile runs the scanner's discovery against the previous index and
// returns the merged index. Per-item extraction failures are isolated: the
// item is flagged with an error status and the scan continues. Discovery
// failure aborts the pass.
func (r *Reconciler) Reconcile(ctx context.Context, root string, sc plugin.Scanner, cfg *types.CollectionConfig, prev *types.CollectionIndex) (*types.CollectionIndex, Delta, error) {
	started := r.now()
	var delta Delta

	paths, err := sc.Discover(root, cfg)
	if err != nil {
		return nil, delta, err
	}

	// Stat and fingerprint the current path set. Paths that vanish between
	// discovery and stat are treated as absent.
	current := make(map[string]currentEntry, len(paths))
	for _, rel := range paths {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		info, statErr := os.Stat(abs)
		if statErr != nil {
			r.log.Warn("discovered item vanished before stat",
				zap.String("path", rel), zap.Error(statErr))
			continue
		}
		fp := sc.Fingerprint(abs, info)
		if fp == "" {
			fp = plugin.DefaultFingerprint(info)
		}
		current[rel] = currentEntry{abs: abs, info: info, fingerprint: fp}
	}

	prevByPath := make(map[string]*types.CollectionItem, len(prev.Items))
	for _, it := range prev.Items {
		prevByPath[it.Path] = it
	}

	// Classify.
	var added []string
	for rel := range current {
		if _, ok := prevByPath[rel]; !ok {
			added = append(added, rel)
		}
	}
	sort.Strings(added)

	removed := make(map[string]*types.CollectionItem)
	for path, it := range prevByPath {
		if _, ok := current[path]; !ok {
			removed[path] = it
		}
	}

	// Move extraction: a removed item whose fingerprint matches an added
	// path is the same content at a new location. With several equally good
	// matches the lexicographically smallest prior path wins and the rest
	// stay deleted; guessing would risk grafting annotations onto the
	// wrong item.
	moved := make(map[string]*types.CollectionItem)
	var stillAdded []string
	for _, rel := range added {
		entry := current[rel]
		var candidates []string
		for priorPath, it := range removed {
			if it.Fingerprint != "" && it.Fingerprint == entry.fingerprint {
				candidates = append(candidates, priorPath)
			}
		}
		if len(candidates) == 0 {
			stillAdded = append(stillAdded, rel)
			continue
		}
		sort.Strings(candidates)
		prior := candidates[0]
		it := removed[prior]
		delete(removed, prior)

		r.log.Info("move detected",
			zap.String("from", prior), zap.String("to", rel))

		// Refresh only the position-derived fields; description, category,
		// and metadata history survive the move.
		it.Path = rel
		it.ID = types.ItemID(rel)
		it.Name = filepath.Base(rel)
		refreshStat(it, entry.info)
		it.Fingerprint = entry.fingerprint
		moved[rel] = it
		delta.Moved++
	}

	// Assemble the merged index: surviving items keep their previous order,
	// new items are appended in path order. Stable ordering keeps repeat
	// runs byte-identical.
	merged := types.NewIndex(prev.CollectionID, cfg.CollectionType)
	if merged.CollectionID == "" {
		merged.CollectionID = filepath.Base(root)
	}

	for _, it := range prev.Items {
		if _, wasRemoved := removed[it.Path]; wasRemoved {
			delta.Removed++
			continue
		}
		if movedItem, ok := moved[it.Path]; ok && movedItem == it {
			merged.Items = append(merged.Items, it)
			continue
		}
		entry, ok := current[it.Path]
		if !ok {
			// Item was moved away from this path; it re-enters under its
			// new path via the moved map iteration below.
			continue
		}
		if entry.fingerprint != it.Fingerprint {
			// Content changed: re-extract metadata and status but keep the
			// annotation. Content drift never invalidates it by default.
			r.populateItem(ctx, it, sc, entry)
			if hasErrorStatus(it) {
				delta.Errored++
			}
			delta.Refreshed++
		} else {
			delta.Unchanged++
		}
		merged.Items = append(merged.Items, it)
	}

	for _, rel := range stillAdded {
		entry := current[rel]
		it := &types.CollectionItem{
			ID:   types.ItemID(rel),
			Path: rel,
			Name: filepath.Base(rel),
		}
		r.populateItem(ctx, it, sc, entry)
		if hasErrorStatus(it) {
			delta.Errored++
		}
		merged.Items = append(merged.Items, it)
		delta.Added++
	}

	merged.TotalItems = len(merged.Items)
	if delta.Empty() && !prev.LastScan.IsZero() {
		// No change: preserve the previous run metadata so a repeat pass
		// persists byte-identically.
		merged.LastScan = prev.LastScan
		merged.ScanDuration = prev.ScanDuration
	} else {
		merged.LastScan = r.now().UTC().Truncate(time.Second)
		merged.ScanDuration = r.now().Sub(started).Seconds()
	}

	return merged, delta, nil
}

type currentEntry struct {
	abs         string
	info        os.FileInfo
	fingerprint string
}

// populateItem fills stat fields, metadata, status, and content sample.
// Extraction failures are isolated at the item boundary: the item is kept
// with an error status instead of aborting the scan.
func (r *Reconciler) populateItem(ctx context.Context, it *types.CollectionItem, sc plugin.Scanner, entry currentEntry) {
	refreshStat(it, entry.info)
	it.Fingerprint = entry.fingerprint

	metadata, err := sc.ExtractMetadata(entry.abs)
	if err != nil {
		r.log.Warn("metadata extraction failed",
			zap.String("path", it.Path), zap.Error(err))
		it.Metadata = map[string]any{}
		it.Status = map[string]any{"state": "error", "error": err.Error()}
		return
	}
	it.Metadata = metadata

	statusCtx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	it.Status = sc.CheckStatus(statusCtx, entry.abs)

	it.ContentSample = sc.ContentSample(entry.abs)
}

// refreshStat updates the position-derived fields from a stat result.
func refreshStat(it *types.CollectionItem, info os.FileInfo) {
	it.Size = info.Size()
	it.Modified = info.ModTime().UTC().Truncate(time.Second)
	if it.Created.IsZero() {
		it.Created = it.Modified
	}
	it.Accessed = it.Modified
	if info.IsDir() {
		it.Kind = types.KindDir
	} else {
		it.Kind = types.KindFile
	}
}

// hasErrorStatus reports whether the item carries the sentinel error status.
func hasErrorStatus(it *types.CollectionItem) bool {
	if it.Status == nil {
		return false
	}
	state, _ := it.Status["state"].(string)
	gitState, _ := it.Status["git_status"].(string)
	return state == "error" || gitState == "error"
}
