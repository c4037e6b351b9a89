// Package provider normalizes calls to external text-generation backends
// and degrades gracefully across an ordered fallback chain.
//
// All backends speak the OpenAI-compatible chat-completions protocol;
// well-known identifiers (lmstudio, ollama, openrouter, openai) carry
// default endpoints and models so configuration stays minimal. Cloud
// backends require a credential at construction time; an unresolved
// credential is a startup error, never a per-call error.
//
// # Fallback semantics
//
// Chain.Complete tries backends in configuration order and returns the
// first well-formed response. A single attempt is made per backend per
// call; a backend with three consecutive failures has its circuit opened
// and is skipped without a network round-trip until the breaker resets.
// Exhausting the chain returns ErrAllProvidersUnreachable, a typed error
// the annotator uses to abort its stage while keeping completed work.
//
// Chain.Probe is the connectivity check for the annotator's fast-fail
// path: it retries each backend with bounded exponential backoff and
// succeeds as soon as any backend answers.
package provider
