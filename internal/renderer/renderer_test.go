package renderer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

var renderedAt = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func rendererIndex() *types.CollectionIndex {
	ix := types.NewIndex("homelab", "generic")
	mk := func(path, desc, cat string) *types.CollectionItem {
		it := &types.CollectionItem{
			ID:   types.ItemID(path),
			Path: path,
			Name: filepath.Base(path),
			Kind: types.KindDir,
		}
		if desc != "" {
			it.SetAnnotation(desc, cat)
		}
		return it
	}
	ix.Items = []*types.CollectionItem{
		mk("zeta", "terminal multiplexer config", "dev_tools"),
		mk("alpha", "static site generator", "dev_tools"),
		mk("media-kit", "brand asset bundle", "creative_aesthetic"),
		mk("mystery", "", ""),
	}
	ix.TotalItems = len(ix.Items)
	return ix
}

func rendererConfig() *types.CollectionConfig {
	return &types.CollectionConfig{
		CollectionType: "generic",
		Title:          "Homelab",
		Description:    "Things running on the shelf.",
		Categories:     []string{"dev_tools", "creative_aesthetic"},
		OutputFormats:  []string{"markdown", "json", "html"},
	}
}

func TestRenderWritesAllFormats(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)

	res, err := New(st, nil).Render(rendererIndex(), rendererConfig(), Options{GeneratedAt: renderedAt})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"README.md", "index.json", "index.html"}, res.Written)
	for _, name := range res.Written {
		_, statErr := os.Stat(filepath.Join(root, name))
		assert.NoError(t, statErr, "%s must exist at the collection root", name)
	}
}

func TestRenderMarkdownGroupsByCategory(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)

	_, err := New(st, nil).Render(rendererIndex(), rendererConfig(), Options{GeneratedAt: renderedAt, Formats: []string{"markdown"}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Homelab")
	assert.Contains(t, md, "Things running on the shelf.")
	assert.Contains(t, md, "## Creative Aesthetic")
	assert.Contains(t, md, "## Dev Tools")
	assert.Contains(t, md, "## Uncategorized")
	assert.Less(t, strings.Index(md, "## Creative Aesthetic"), strings.Index(md, "## Dev Tools"),
		"categories render in sorted order")
	assert.Less(t, strings.Index(md, "## Dev Tools"), strings.Index(md, "## Uncategorized"),
		"uncategorized items trail the annotated groups")
	assert.Less(t, strings.Index(md, "alpha"), strings.Index(md, "zeta"),
		"items sort by path within a category")
	assert.Contains(t, md, "terminal multiplexer config")
}

func TestRenderIsByteIdenticalForSameInputs(t *testing.T) {
	ix := rendererIndex()
	cfg := rendererConfig()
	opts := Options{GeneratedAt: renderedAt}

	rootA := t.TempDir()
	_, err := New(store.New(rootA), nil).Render(ix, cfg, opts)
	require.NoError(t, err)

	rootB := t.TempDir()
	_, err = New(store.New(rootB), nil).Render(ix, cfg, opts)
	require.NoError(t, err)

	for _, name := range []string{"README.md", "index.json", "index.html"} {
		a, err := os.ReadFile(filepath.Join(rootA, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(rootB, name))
		require.NoError(t, err)
		assert.Equal(t, a, b, "%s must depend only on index, config, and timestamp", name)
	}
}

func TestRenderJSONStructure(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)

	_, err := New(st, nil).Render(rendererIndex(), rendererConfig(), Options{GeneratedAt: renderedAt, Formats: []string{"json"}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "index.json"))
	require.NoError(t, err)

	var doc struct {
		Title      string              `json:"title"`
		Domain     string              `json:"domain"`
		TotalItems int                 `json:"total_items"`
		Categories map[string][]string `json:"categories"`
		Items      []struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "Homelab", doc.Title)
	assert.Equal(t, "generic", doc.Domain)
	assert.Equal(t, 4, doc.TotalItems)
	assert.Equal(t, []string{"alpha", "zeta"}, doc.Categories["dev_tools"])
	assert.Equal(t, []string{"mystery"}, doc.Categories["uncategorized"])
	assert.Len(t, doc.Items, 4)
}

func TestRenderDefaultsToConfigFormats(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)
	cfg := rendererConfig()
	cfg.OutputFormats = nil // markdown only

	res, err := New(st, nil).Render(rendererIndex(), cfg, Options{GeneratedAt: renderedAt})

	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, res.Written)
	_, statErr := os.Stat(filepath.Join(root, "index.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderSkipsUnknownFormat(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)

	res, err := New(st, nil).Render(rendererIndex(), rendererConfig(), Options{GeneratedAt: renderedAt, Formats: []string{"pdf", "markdown"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, res.Written)
}

func TestRenderRepositoriesTemplateHasStatusTable(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)

	ix := types.NewIndex("repos", "repositories")
	it := &types.CollectionItem{
		ID: "fzf", Path: "fzf", Name: "fzf", Kind: types.KindDir,
		Metadata: map[string]any{"branch": "main"},
		Status:   map[string]any{"git_status": "up_to_date"},
	}
	it.SetAnnotation("fuzzy finder", "dev_tools")
	ix.Items = []*types.CollectionItem{it}
	ix.TotalItems = 1

	cfg := &types.CollectionConfig{
		CollectionType: "repositories",
		Title:          "Repos",
		Categories:     []string{"dev_tools"},
	}

	_, err := New(st, nil).Render(ix, cfg, Options{GeneratedAt: renderedAt})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "| Repository | Status | Branch | Description |")
	assert.Contains(t, md, "[fzf](fzf)")
	assert.Contains(t, md, "✓")
	assert.Contains(t, md, "main")
}
