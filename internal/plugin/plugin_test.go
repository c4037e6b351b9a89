package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

func mkdirAll(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(path, 0o755))
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRegistryPriorityOrder(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"repositories", "obsidian", "documents", "media", "generic"}, r.Names())
}

func TestSelectDetectsRepositories(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "myrepo", ".git")

	sc, err := NewRegistry().Select(root, "")

	require.NoError(t, err)
	assert.Equal(t, "repositories", sc.Name())
}

func TestSelectDetectsObsidianVault(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, ".obsidian")
	writeFile(t, filepath.Join(root, "note.md"), "# Note")

	sc, err := NewRegistry().Select(root, "")

	require.NoError(t, err)
	assert.Equal(t, "obsidian", sc.Name())
}

func TestSelectFirstMatchWinsOnAmbiguousRoot(t *testing.T) {
	// A vault whose children include a git repo matches both the
	// repositories and obsidian scanners; registration order decides.
	root := t.TempDir()
	mkdirAll(t, root, ".obsidian")
	mkdirAll(t, root, "projects", ".git")

	sc, err := NewRegistry().Select(root, "")

	require.NoError(t, err)
	assert.Equal(t, "repositories", sc.Name())
}

func TestSelectFallsBackToGeneric(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "hello")

	sc, err := NewRegistry().Select(root, "")

	require.NoError(t, err)
	assert.Equal(t, "generic", sc.Name())
}

func TestSelectForceTypeOverridesDetection(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, root, "myrepo", ".git")

	sc, err := NewRegistry().Select(root, "generic")

	require.NoError(t, err)
	assert.Equal(t, "generic", sc.Name())
}

func TestSelectUnknownForceType(t *testing.T) {
	_, err := NewRegistry().Select(t.TempDir(), "starships")
	assert.True(t, errors.Is(err, ErrUnknownCollectionType), "got %v", err)
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.Register(nil), ErrNilScanner)
	assert.ErrorIs(t, r.Register(NewGenericScanner()), ErrDuplicateScanner)
}

func TestExcludedPatterns(t *testing.T) {
	tests := []struct {
		name     string
		rel      string
		patterns []string
		want     bool
	}{
		{name: "no patterns", rel: "anything", want: false},
		{name: "glob on base", rel: "node_modules", patterns: []string{"node_*"}, want: true},
		{name: "glob on nested base", rel: "a/b/archive.zip", patterns: []string{"*.zip"}, want: true},
		{name: "substring", rel: "deep/temp/file", patterns: []string{"temp"}, want: true},
		{name: "non-matching", rel: "src/main.go", patterns: []string{"*.zip", "vendor"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, excluded(tt.rel, tt.patterns))
		})
	}
}

func TestTruncateSampleBudget(t *testing.T) {
	short := "short sample"
	assert.Equal(t, short, truncateSample(short))

	long := make([]byte, SampleBudget*2)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateSample(string(long))
	assert.Len(t, got, SampleBudget)
	assert.True(t, len(got) <= SampleBudget)
	assert.Equal(t, "...", got[len(got)-3:])
}

func TestGenericDiscoverTopLevelOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, ".hidden"), "secret")
	writeFile(t, filepath.Join(root, "sub", "nested.txt"), "nested")

	cfg := &types.CollectionConfig{CollectionType: "generic", Categories: []string{"documents"}}
	items, err := NewGenericScanner().Discover(root, cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub"}, items, "sorted, top-level, no hidden entries")
}

func TestGenericDiscoverHonorsExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.txt"), "x")
	writeFile(t, filepath.Join(root, "skip.zip"), "x")

	cfg := &types.CollectionConfig{
		CollectionType:  "generic",
		Categories:      []string{"documents"},
		ExcludePatterns: []string{"*.zip"},
	}
	items, err := NewGenericScanner().Discover(root, cfg)

	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, items)
}

func TestGenericContentSample(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "readme.md"), "# Hello\nSome text.")
	writeFile(t, filepath.Join(root, "blob.bin"), "\x00\x01")

	sc := NewGenericScanner()
	assert.Equal(t, "# Hello\nSome text.", sc.ContentSample(filepath.Join(root, "readme.md")))
	assert.Equal(t, "File: blob.bin", sc.ContentSample(filepath.Join(root, "blob.bin")))
}

func TestDefaultFingerprintChangesWithContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.txt")
	writeFile(t, path, "one")
	info1, err := os.Stat(path)
	require.NoError(t, err)
	fp1 := DefaultFingerprint(info1)

	writeFile(t, path, "different length")
	info2, err := os.Stat(path)
	require.NoError(t, err)
	fp2 := DefaultFingerprint(info2)

	assert.NotEqual(t, fp1, fp2)
}
