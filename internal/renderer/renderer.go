package renderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// Options controls one render pass.
type Options struct {
	// GeneratedAt stamps the output documents. Zero means time.Now; tests
	// pin it for byte-identical output.
	GeneratedAt time.Time

	// Formats overrides the config's output formats when non-empty.
	Formats []string
}

// Result lists the documents written during one render pass.
type Result struct {
	Written []string
}

// Renderer projects the index into human- and machine-readable views at
// the collection root. Output depends only on index content, config, and
// the pinned timestamp, so re-rendering an unchanged collection produces
// byte-identical files.
type Renderer struct {
	store *store.Store
	log   *zap.Logger
}

// New creates a renderer writing through st.
func New(st *store.Store, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{store: st, log: log}
}

// Render writes every requested format. Items render grouped by category,
// sorted by path within each group; unannotated items land in a trailing
// Uncategorized group rather than being dropped.
func (r *Renderer) Render(ix *types.CollectionIndex, cfg *types.CollectionConfig, opts Options) (Result, error) {
	var res Result

	at := opts.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC().Truncate(time.Second)

	formats := opts.Formats
	if len(formats) == 0 {
		formats = cfg.Formats()
	}

	view := buildView(ix, cfg, at)

	for _, format := range formats {
		var (
			name string
			data []byte
			err  error
		)
		switch format {
		case "markdown":
			name = "README.md"
			data, err = renderMarkdown(view, cfg)
		case "json":
			name = "index.json"
			data, err = renderJSON(view)
		case "html":
			name = "index.html"
			data, err = renderHTML(view)
		default:
			r.log.Warn("unknown output format skipped", zap.String("format", format))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("render %s: %w", format, err)
		}
		if err := r.store.WriteRootFile(name, data); err != nil {
			return res, fmt.Errorf("write %s: %w", name, err)
		}
		res.Written = append(res.Written, name)
	}

	r.log.Info("rendered collection views",
		zap.Strings("files", res.Written),
		zap.Int("items", ix.TotalItems))
	return res, nil
}

// view is the render model shared by all formats.
type view struct {
	Title       string
	Description string
	Domain      string
	Type        string
	GeneratedAt time.Time
	TotalItems  int
	Groups      []group
}

type group struct {
	Category string
	Items    []*types.CollectionItem
}

// uncategorizedLabel is the trailing group for items without annotations.
const uncategorizedLabel = "uncategorized"

func buildView(ix *types.CollectionIndex, cfg *types.CollectionConfig, at time.Time) view {
	byCat := make(map[string][]*types.CollectionItem)
	for _, it := range ix.Items {
		cat := uncategorizedLabel
		if it.Category != nil {
			cat = *it.Category
		}
		byCat[cat] = append(byCat[cat], it)
	}

	cats := make([]string, 0, len(byCat))
	for cat := range byCat {
		if cat == uncategorizedLabel {
			continue
		}
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	if _, ok := byCat[uncategorizedLabel]; ok {
		cats = append(cats, uncategorizedLabel)
	}

	groups := make([]group, 0, len(cats))
	for _, cat := range cats {
		items := byCat[cat]
		sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
		groups = append(groups, group{Category: cat, Items: items})
	}

	title := cfg.Title
	if title == "" {
		title = ix.CollectionID
	}

	return view{
		Title:       title,
		Description: cfg.Description,
		Domain:      ix.Domain,
		Type:        cfg.CollectionType,
		GeneratedAt: at,
		TotalItems:  ix.TotalItems,
		Groups:      groups,
	}
}

func headingFor(category string) string {
	words := strings.Split(category, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func renderMarkdown(v view, cfg *types.CollectionConfig) ([]byte, error) {
	tmpl := markdownTemplate(cfg.CollectionType)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type jsonItem struct {
	ID          string         `json:"id"`
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Status      map[string]any `json:"status,omitempty"`
}

type jsonView struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Domain      string              `json:"domain,omitempty"`
	Type        string              `json:"type"`
	GeneratedAt string              `json:"generated_at"`
	TotalItems  int                 `json:"total_items"`
	Categories  map[string][]string `json:"categories"`
	Items       []jsonItem          `json:"items"`
}

func renderJSON(v view) ([]byte, error) {
	out := jsonView{
		Title:       v.Title,
		Description: v.Description,
		Domain:      v.Domain,
		Type:        v.Type,
		GeneratedAt: v.GeneratedAt.Format(time.RFC3339),
		TotalItems:  v.TotalItems,
		Categories:  make(map[string][]string),
	}
	for _, g := range v.Groups {
		ids := make([]string, 0, len(g.Items))
		for _, it := range g.Items {
			ids = append(ids, it.ID)
			ji := jsonItem{
				ID:       it.ID,
				Path:     it.Path,
				Name:     it.Name,
				Type:     string(it.Kind),
				Metadata: it.Metadata,
				Status:   it.Status,
			}
			if it.Description != nil {
				ji.Description = *it.Description
			}
			if it.Category != nil {
				ji.Category = *it.Category
			}
			out.Items = append(out.Items, ji)
		}
		out.Categories[g.Category] = ids
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
