package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultCacheSize = 2048

// Chain is a Client over an ordered list of backends. The first backend to
// return a well-formed response wins; exhausting the chain yields
// ErrAllProvidersUnreachable. Each backend carries a circuit breaker so a
// backend that keeps failing is skipped without a network round-trip.
type Chain struct {
	backends []*chainBackend
	cache    *lru.Cache[string, string]
	log      *zap.Logger
}

type chainBackend struct {
	backend *Backend
	breaker *gobreaker.CircuitBreaker
}

// NewChain builds a fallback chain from an ordered backend configuration.
func NewChain(cfg Config, log *zap.Logger) (*Chain, error) {
	if len(cfg.Backends) == 0 {
		return nil, ErrNoBackends
	}
	if log == nil {
		log = zap.NewNop()
	}

	backends := make([]*chainBackend, 0, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		b, err := NewBackend(bc)
		if err != nil {
			return nil, err
		}
		cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    b.Name(),
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
		backends = append(backends, &chainBackend{backend: b, breaker: cb})
	}

	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &Chain{
		backends: backends,
		cache:    cache,
		log:      log,
	}, nil
}

// Name returns the ordered backend names.
func (c *Chain) Name() string {
	name := ""
	for i, cb := range c.backends {
		if i > 0 {
			name += ","
		}
		name += cb.backend.Name()
	}
	return name
}

// Complete tries each backend in order and returns the first well-formed
// response. There is no retry-with-backoff within a single backend attempt.
func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	if text, ok := c.cache.Get(requestHash(c.Name(), req)); ok {
		return text, nil
	}

	var lastErr error
	for _, cb := range c.backends {
		result, err := cb.breaker.Execute(func() (any, error) {
			return cb.backend.Complete(ctx, req)
		})
		if err == nil {
			text := result.(string)
			c.cache.Add(requestHash(c.Name(), req), text)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) {
			c.log.Debug("backend circuit open, skipping",
				zap.String("provider", cb.backend.Name()))
		} else {
			c.log.Warn("backend failed, trying next",
				zap.String("provider", cb.backend.Name()),
				zap.Error(err))
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: tried %d backends: %v", ErrAllProvidersUnreachable, len(c.backends), lastErr)
}

// Probe checks connectivity across the chain. It succeeds as soon as any
// backend answers; only a fully dead chain is an error.
func (c *Chain) Probe(ctx context.Context) error {
	var lastErr error
	for _, cb := range c.backends {
		if err := cb.backend.Probe(ctx); err == nil {
			return nil
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("backend probe failed",
				zap.String("provider", cb.backend.Name()),
				zap.Error(err))
			lastErr = err
		}
	}
	return fmt.Errorf("%w: %v", ErrAllProvidersUnreachable, lastErr)
}
