package provider

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment variables recognized for provider configuration. When set,
// they describe the primary backend and are placed ahead of any backends
// from the providers document.
const (
	EnvProvider = "COLLECTIVIST_LLM_PROVIDER"
	EnvAPIKey   = "COLLECTIVIST_LLM_API_KEY"
	EnvBaseURL  = "COLLECTIVIST_LLM_BASE_URL"
	EnvModel    = "COLLECTIVIST_LLM_MODEL"
)

// BackendConfig describes one backend in the fallback chain.
type BackendConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model    string `yaml:"model,omitempty" mapstructure:"model"`
}

// Config is the ordered backend list forming the fallback chain. It is
// loaded once per run and immutable for the run's duration.
type Config struct {
	Backends []BackendConfig `yaml:"backends" mapstructure:"backends"`
}

// Resolve discovers provider configuration by walking up from the
// collection root to the well-known ~/.collectivist location. Along the
// walk it loads the first .env file found (credentials) and reads an
// optional providers.yaml (the backend chain). Environment variables take
// precedence as the primary backend; with nothing configured the chain
// defaults to a local lmstudio endpoint.
func Resolve(root string, log *zap.Logger) (Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dirs := searchDirs(root)

	for _, dir := range dirs {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				log.Warn("failed to load env file", zap.String("path", envPath), zap.Error(err))
			}
			break
		}
	}

	v := viper.New()
	v.SetConfigName("providers")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read provider config: %w", err)
		}
	} else {
		if err := v.Unmarshal(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse provider config: %w", err)
		}
		log.Debug("loaded providers document", zap.String("path", v.ConfigFileUsed()))
	}

	if p := os.Getenv(EnvProvider); p != "" {
		primary := BackendConfig{
			Provider: p,
			BaseURL:  os.Getenv(EnvBaseURL),
			APIKey:   os.Getenv(EnvAPIKey),
			Model:    os.Getenv(EnvModel),
		}
		cfg.Backends = append([]BackendConfig{primary}, cfg.Backends...)
	}

	if len(cfg.Backends) == 0 {
		cfg.Backends = []BackendConfig{{Provider: ProviderLMStudio}}
	}

	return cfg, nil
}

// searchDirs lists candidate configuration directories: each ancestor's
// .collectivist directory starting at the collection root, then the
// user-level ~/.collectivist.
func searchDirs(root string) []string {
	var dirs []string
	dir := root
	for {
		dirs = append(dirs, filepath.Join(dir, ".collectivist"))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".collectivist"))
	}
	return dirs
}

// NewChainFromRoot resolves configuration for a collection root and builds
// the fallback chain from it.
func NewChainFromRoot(root string, log *zap.Logger) (*Chain, error) {
	cfg, err := Resolve(root, log)
	if err != nil {
		return nil, err
	}
	return NewChain(cfg, log)
}
