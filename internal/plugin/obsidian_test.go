package plugin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

func TestObsidianDiscoverFindsMarkdownOnly(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, ".obsidian")
	writeFile(t, filepath.Join(root, "zettel", "idea.md"), "# Idea")
	writeFile(t, filepath.Join(root, "inbox.md"), "# Inbox")
	writeFile(t, filepath.Join(root, "attachment.png"), "binary")
	writeFile(t, filepath.Join(root, ".trash", "old.md"), "# Old")

	cfg := &types.CollectionConfig{CollectionType: "obsidian", Categories: []string{"reference"}}
	notes, err := NewObsidianScanner().Discover(root, cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"inbox.md", "zettel/idea.md"}, notes)
}

func TestObsidianExtractMetadata(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "note.md")
	writeFile(t, path, "# Title\n\nsome words here #project #idea linking [[Other Note]] and [[MOC]]")

	meta, err := NewObsidianScanner().ExtractMetadata(path)

	require.NoError(t, err)
	assert.Equal(t, 2, meta["tags"])
	assert.Equal(t, 2, meta["wikilinks"])
	assert.Greater(t, meta["word_count"], 5)
}

func TestObsidianDetect(t *testing.T) {
	vault := t.TempDir()
	mkdirAll(t, vault, ".obsidian")
	plain := t.TempDir()

	sc := NewObsidianScanner()
	assert.True(t, sc.Detect(vault))
	assert.False(t, sc.Detect(plain))
}
