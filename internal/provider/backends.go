package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Well-known backend identifiers. All speak the OpenAI-compatible
// chat-completions protocol; local servers need no credential.
const (
	ProviderLMStudio   = "lmstudio"
	ProviderOllama     = "ollama"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 2000
	requestTimeout     = 60 * time.Second

	// Probe retry configuration (connectivity check only; Complete never
	// retries within a single backend attempt).
	probeMaxRetries = 3
	probeBaseDelay  = 200 * time.Millisecond
	probeMaxDelay   = 2 * time.Second
)

type backendDefaults struct {
	baseURL     string
	model       string
	keyRequired bool
}

var wellKnownBackends = map[string]backendDefaults{
	ProviderLMStudio:   {baseURL: "http://localhost:1234/v1", model: "local-model", keyRequired: false},
	ProviderOllama:     {baseURL: "http://localhost:11434/v1", model: "llama3", keyRequired: false},
	ProviderOpenRouter: {baseURL: "https://openrouter.ai/api/v1", model: "meta-llama/llama-3.1-8b-instruct", keyRequired: true},
	ProviderOpenAI:     {baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini", keyRequired: true},
}

// Backend is one configured text-generation endpoint.
type Backend struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewBackend resolves a backend descriptor against the well-known defaults.
// A missing credential for a cloud backend is a startup error, not a
// per-call error.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	name := strings.ToLower(cfg.Provider)
	defaults, ok := wellKnownBackends[name]
	if !ok {
		// Unknown names are allowed only with an explicit endpoint.
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaults.model
	}
	if defaults.keyRequired && cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, name)
	}

	return &Backend{
		provider: name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

// Name returns the backend's provider identifier.
func (b *Backend) Name() string { return b.provider }

// Model returns the resolved model identifier.
func (b *Backend) Model() string { return b.model }

// Complete issues a single chat-completions exchange. Transport failures,
// auth failures, and malformed responses are returned to the caller; the
// fallback chain decides whether to try the next backend.
func (b *Backend) Complete(ctx context.Context, req Request) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	reqBody := map[string]any{
		"model":       b.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderFailed, b.provider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %s: api error %d: %s", ErrProviderFailed, b.provider, resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedResponse, b.provider, err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s: no choices returned", ErrMalformedResponse, b.provider)
	}

	return apiResp.Choices[0].Message.Content, nil
}

// Probe sends a minimal completion with bounded exponential backoff to
// absorb transient network errors during the connectivity check.
func (b *Backend) Probe(ctx context.Context) error {
	cfg := RetryConfig{
		MaxRetries: probeMaxRetries,
		BaseDelay:  probeBaseDelay,
		MaxDelay:   probeMaxDelay,
		Multiplier: 2.0,
	}
	_, err := retryWithBackoff(ctx, cfg, func() (string, error) {
		return b.Complete(ctx, Request{Prompt: "ping", MaxTokens: 8})
	})
	return err
}
