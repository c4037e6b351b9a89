package curator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const (
	// imbalanceRatio is the largest/smallest non-empty category size
	// ratio above which the distribution counts as imbalanced.
	imbalanceRatio = 3.0

	// underutilizedMin is the minimum item count a configured category
	// needs to count as pulling its weight. Fewer than this is
	// underutilized.
	underutilizedMin = 3

	// minSignals is how many independent signals must fire before the
	// curator proposes anything. One signal alone is noise.
	minSignals = 2
)

// Decision is the curator's verdict for one pass.
type Decision string

const (
	DecisionStable    Decision = "stable"
	DecisionProposing Decision = "proposing_evolution"
)

// Signals records which evolution indicators fired during analysis.
type Signals struct {
	Imbalanced     bool     `yaml:"imbalanced"`
	Underutilized  []string `yaml:"underutilized,omitempty"`
	Restructured   bool     `yaml:"restructured"`
	LargestCount   int      `yaml:"largest_count"`
	SmallestCount  int      `yaml:"smallest_count"`
	MissingOnDisk  []string `yaml:"missing_on_disk,omitempty"`
	UntrackedDirs  []string `yaml:"untracked_dirs,omitempty"`
}

// Count returns how many distinct signals fired.
func (s Signals) Count() int {
	n := 0
	if s.Imbalanced {
		n++
	}
	if len(s.Underutilized) > 0 {
		n++
	}
	if s.Restructured {
		n++
	}
	return n
}

// Proposal is the curator's suggested schema evolution. It is written
// for a human to review; the curator never applies it.
type Proposal struct {
	GeneratedAt    time.Time `yaml:"generated_at"`
	Decision       Decision  `yaml:"decision"`
	Signals        Signals   `yaml:"signals"`
	Rationale      []string  `yaml:"rationale"`
	Categories     []string  `yaml:"proposed_categories"`
	MetadataFields []string  `yaml:"proposed_metadata_fields"`
}

// Result summarizes one curation pass.
type Result struct {
	Decision Decision
	Proposal *Proposal
}

// Curator watches how the collection actually organizes itself and, when
// enough independent signals agree, proposes a schema evolution. It never
// rewrites configuration; the strongest action it takes is writing a
// proposals document next to the index.
type Curator struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

// New creates a curator persisting proposals through st.
func New(st *store.Store, log *zap.Logger) *Curator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Curator{store: st, log: log, now: time.Now}
}

// Curate analyzes the annotated index and writes a proposals document when
// evolution is warranted. A stable verdict writes nothing, leaving any
// earlier proposal in place for the human who has not acted on it yet.
func (c *Curator) Curate(ix *types.CollectionIndex, cfg *types.CollectionConfig, root string) (Result, error) {
	topDirs, err := topLevelDirs(root)
	if err != nil {
		return Result{}, fmt.Errorf("read collection root: %w", err)
	}

	decision, signals := Analyze(ix, cfg, topDirs)
	res := Result{Decision: decision}
	if decision == DecisionStable {
		c.log.Debug("collection schema stable",
			zap.Int("signals", signals.Count()))
		return res, nil
	}

	prop := c.buildProposal(ix, cfg, signals)
	res.Proposal = prop
	if err := c.store.WriteDocument(store.ProposalsFile, prop); err != nil {
		return res, fmt.Errorf("write proposals: %w", err)
	}
	c.log.Info("schema evolution proposed",
		zap.Int("signals", signals.Count()),
		zap.Strings("categories", prop.Categories))
	return res, nil
}

// Analyze evaluates the evolution signals without touching disk. It is
// deterministic: the same index, config, and directory set always yield
// the same verdict.
func Analyze(ix *types.CollectionIndex, cfg *types.CollectionConfig, topDirs []string) (Decision, Signals) {
	var sig Signals

	counts := ix.CategoryCounts()

	// Signal 1: category imbalance among non-empty categories.
	largest, smallest := 0, 0
	for _, n := range counts {
		if n == 0 {
			continue
		}
		if n > largest {
			largest = n
		}
		if smallest == 0 || n < smallest {
			smallest = n
		}
	}
	sig.LargestCount = largest
	sig.SmallestCount = smallest
	if smallest > 0 && float64(largest)/float64(smallest) > imbalanceRatio {
		sig.Imbalanced = true
	}

	// Signal 2: configured categories nobody uses.
	for _, cat := range cfg.Categories {
		if counts[cat] < underutilizedMin {
			sig.Underutilized = append(sig.Underutilized, cat)
		}
	}
	sort.Strings(sig.Underutilized)

	// Signal 3: the folder structure on disk no longer matches where the
	// indexed items live. Structure is the memory of how the human
	// actually organizes; divergence means the schema has drifted.
	indexDirs := firstSegments(ix)
	for _, d := range topDirs {
		if !indexDirs[d] {
			sig.UntrackedDirs = append(sig.UntrackedDirs, d)
		}
	}
	diskSet := make(map[string]bool, len(topDirs))
	for _, d := range topDirs {
		diskSet[d] = true
	}
	for d := range indexDirs {
		if !diskSet[d] {
			sig.MissingOnDisk = append(sig.MissingOnDisk, d)
		}
	}
	sort.Strings(sig.UntrackedDirs)
	sort.Strings(sig.MissingOnDisk)
	sig.Restructured = len(sig.UntrackedDirs) > 0 || len(sig.MissingOnDisk) > 0

	if sig.Count() >= minSignals {
		return DecisionProposing, sig
	}
	return DecisionStable, sig
}

// buildProposal derives a candidate taxonomy from where annotated items
// actually sit: top-level folders that consistently hold one category
// become proposed categories, alongside the categories already earning
// their keep.
func (c *Curator) buildProposal(ix *types.CollectionIndex, cfg *types.CollectionConfig, sig Signals) *Proposal {
	counts := ix.CategoryCounts()

	// Folder/category co-occurrence: for each top-level folder, the
	// category most of its items carry.
	folderCats := make(map[string]map[string]int)
	for _, it := range ix.Items {
		if it.Category == nil {
			continue
		}
		seg := firstSegment(it.Path)
		if seg == "" {
			continue
		}
		if folderCats[seg] == nil {
			folderCats[seg] = make(map[string]int)
		}
		folderCats[seg][*it.Category]++
	}

	proposed := make(map[string]bool)
	for _, cat := range cfg.Categories {
		if counts[cat] >= underutilizedMin {
			proposed[cat] = true
		}
	}
	for folder, cats := range folderCats {
		dominant, best, total := "", 0, 0
		for cat, n := range cats {
			total += n
			if n > best || (n == best && cat < dominant) {
				dominant, best = cat, n
			}
		}
		if total > 0 && best*2 > total {
			proposed[dominant] = true
		} else if total >= underutilizedMin {
			// Mixed folder with real volume: the folder name itself is a
			// candidate category.
			proposed[normalizeCategory(folder)] = true
		}
	}

	categories := make([]string, 0, len(proposed))
	for cat := range proposed {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	fields := make(map[string]bool)
	for _, it := range ix.Items {
		for k := range it.Metadata {
			fields[k] = true
		}
	}
	metaFields := make([]string, 0, len(fields))
	for k := range fields {
		metaFields = append(metaFields, k)
	}
	sort.Strings(metaFields)

	rationale := []string{}
	if sig.Imbalanced {
		rationale = append(rationale, fmt.Sprintf(
			"category sizes are imbalanced (largest %d vs smallest %d)",
			sig.LargestCount, sig.SmallestCount))
	}
	if len(sig.Underutilized) > 0 {
		rationale = append(rationale, fmt.Sprintf(
			"configured categories with fewer than %d items: %s",
			underutilizedMin, strings.Join(sig.Underutilized, ", ")))
	}
	if sig.Restructured {
		parts := []string{}
		if len(sig.UntrackedDirs) > 0 {
			parts = append(parts, "new folders "+strings.Join(sig.UntrackedDirs, ", "))
		}
		if len(sig.MissingOnDisk) > 0 {
			parts = append(parts, "vanished folders "+strings.Join(sig.MissingOnDisk, ", "))
		}
		rationale = append(rationale, "folder structure diverged from the index: "+strings.Join(parts, "; "))
	}

	return &Proposal{
		GeneratedAt:    c.now().UTC().Truncate(time.Second),
		Decision:       DecisionProposing,
		Signals:        sig,
		Rationale:      rationale,
		Categories:     categories,
		MetadataFields: metaFields,
	}
}

// topLevelDirs lists the immediate child directories of root, skipping
// hidden entries and the state directory.
func topLevelDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == store.DirName {
			continue
		}
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// firstSegments collects the top-level path segment of every directory
// item in the index.
func firstSegments(ix *types.CollectionIndex) map[string]bool {
	segs := make(map[string]bool)
	for _, it := range ix.Items {
		if seg := firstSegment(it.Path); seg != "" && it.Kind == types.KindDir {
			segs[seg] = true
		} else if seg != "" && strings.Contains(it.Path, "/") {
			segs[seg] = true
		}
	}
	return segs
}

func firstSegment(p string) string {
	p = filepath.ToSlash(p)
	if i := strings.Index(p, "/"); i > 0 {
		return p[:i]
	}
	// A bare top-level directory item is its own segment.
	return p
}

func normalizeCategory(folder string) string {
	s := strings.ToLower(folder)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
