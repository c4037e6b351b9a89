package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvProvider, EnvAPIKey, EnvBaseURL, EnvModel} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestResolveDefaultsToLocalBackend(t *testing.T) {
	clearProviderEnv(t)
	root := t.TempDir()

	cfg, err := Resolve(root, nil)

	require.NoError(t, err)
	require.Len(t, cfg.Backends, 1)
	assert.Equal(t, ProviderLMStudio, cfg.Backends[0].Provider)
}

func TestResolveEnvBecomesPrimary(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, ProviderOllama)
	t.Setenv(EnvModel, "qwen2.5-coder")
	root := t.TempDir()

	cfg, err := Resolve(root, nil)

	require.NoError(t, err)
	require.NotEmpty(t, cfg.Backends)
	assert.Equal(t, ProviderOllama, cfg.Backends[0].Provider)
	assert.Equal(t, "qwen2.5-coder", cfg.Backends[0].Model)
}

func TestResolveReadsProvidersDocument(t *testing.T) {
	clearProviderEnv(t)
	root := t.TempDir()
	confDir := filepath.Join(root, ".collectivist")
	require.NoError(t, os.MkdirAll(confDir, 0o755))
	doc := `backends:
  - provider: lmstudio
  - provider: openrouter
    api_key: sk-test
    model: meta-llama/llama-3.1-8b-instruct
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "providers.yaml"), []byte(doc), 0o644))

	cfg, err := Resolve(root, nil)

	require.NoError(t, err)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, ProviderLMStudio, cfg.Backends[0].Provider)
	assert.Equal(t, ProviderOpenRouter, cfg.Backends[1].Provider)
	assert.Equal(t, "sk-test", cfg.Backends[1].APIKey)
}

func TestResolveEnvPrependsToDocument(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, ProviderLMStudio)
	root := t.TempDir()
	confDir := filepath.Join(root, ".collectivist")
	require.NoError(t, os.MkdirAll(confDir, 0o755))
	doc := "backends:\n  - provider: ollama\n"
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "providers.yaml"), []byte(doc), 0o644))

	cfg, err := Resolve(root, nil)

	require.NoError(t, err)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, ProviderLMStudio, cfg.Backends[0].Provider, "env backend leads the chain")
	assert.Equal(t, ProviderOllama, cfg.Backends[1].Provider)
}

func TestNewChainFromRootMissingKeyFailsAtStartup(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv(EnvProvider, ProviderOpenAI)
	root := t.TempDir()

	_, err := NewChainFromRoot(root, nil)

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
