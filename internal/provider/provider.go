package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Common errors
var (
	ErrNoBackends              = errors.New("no provider backends configured")
	ErrUnknownProvider         = errors.New("unknown provider")
	ErrMissingAPIKey           = errors.New("api key required")
	ErrProviderFailed          = errors.New("provider request failed")
	ErrMalformedResponse       = errors.New("malformed provider response")
	ErrAllProvidersUnreachable = errors.New("all providers unreachable")
)

// Request is a single completion exchange with a text-generation backend.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client is the uniform interface to a text-generation backend. A Chain
// implements it across an ordered list of backends with graceful fallback.
type Client interface {
	// Complete issues one request/response exchange and returns the raw text.
	Complete(ctx context.Context, req Request) (string, error)

	// Probe checks connectivity with a minimal exchange. Used by the
	// annotator's fast-fail path before any bulk work begins.
	Probe(ctx context.Context) error

	// Name identifies the client for logging and run results.
	Name() string
}

// requestHash keys the completion cache by the full request content.
func requestHash(model string, req Request) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}
