package annotator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/SyntaxAsSpiral/Collectivist/internal/plugin"
	"github.com/SyntaxAsSpiral/Collectivist/internal/provider"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

const (
	// DefaultWorkers is the fixed annotation concurrency.
	DefaultWorkers = 5

	// MaxDescriptionLen bounds accepted descriptions.
	MaxDescriptionLen = 150
)

// ErrProbeFailed wraps the fast-fail connectivity check failure.
var ErrProbeFailed = errors.New("provider connectivity probe failed")

// Saver persists the index after each completed annotation.
type Saver interface {
	SaveIndex(ix *types.CollectionIndex) error
}

// Result summarizes one annotation pass.
type Result struct {
	Annotated int
	Failed    int
	Saves     int
}

// Annotator fills description and category for every item missing them.
// Work fans out across a bounded worker pool; every completion is merged
// and persisted by the single consuming goroutine before the next result
// is accepted, so an interrupted run loses at most the in-flight items.
type Annotator struct {
	client  provider.Client
	saver   Saver
	log     *zap.Logger
	workers int
}

// New creates an annotator with the default worker count.
func New(client provider.Client, saver Saver, log *zap.Logger) *Annotator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Annotator{
		client:  client,
		saver:   saver,
		log:     log,
		workers: DefaultWorkers,
	}
}

// SetWorkers overrides the worker pool size.
func (a *Annotator) SetWorkers(n int) {
	if n > 0 {
		a.workers = n
	}
}

type annotation struct {
	item        *types.CollectionItem
	description string
	category    string
	err         error
}

// Annotate processes all items with a nil description, in index order.
// Before any per-item work it probes the provider chain: a fully dead chain
// aborts with zero items processed. Mid-run chain exhaustion aborts the
// stage while preserving every completed annotation. Worker results are
// serialized through a single writer; results arriving after cancellation
// are discarded rather than persisted.
func (a *Annotator) Annotate(ctx context.Context, ix *types.CollectionIndex, cfg *types.CollectionConfig, sc plugin.Scanner, emit types.EventFunc) (Result, error) {
	var res Result

	pending := ix.Unannotated()
	if len(pending) == 0 {
		return res, nil
	}

	// Fast-fail: do not burn the item set against a dead backend.
	if err := a.client.Probe(ctx); err != nil {
		return res, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan *types.CollectionItem)
	results := make(chan annotation)

	g, workerCtx := errgroup.WithContext(gctx)
	for i := 0; i < a.workers; i++ {
		g.Go(func() error {
			for it := range jobs {
				ann := a.annotateItem(workerCtx, it, cfg, sc)
				select {
				case results <- ann:
				case <-workerCtx.Done():
					return workerCtx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		defer close(jobs)
		for _, it := range pending {
			select {
			case jobs <- it:
			case <-workerCtx.Done():
				return
			}
		}
	}()

	go func() {
		_ = g.Wait()
		close(results)
	}()

	// Single-writer discipline: only this loop mutates the index and
	// touches storage, regardless of worker completion order.
	var abortErr error
	total := len(pending)
	for ann := range results {
		if ctx.Err() != nil {
			// Cancelled: in-flight results are discarded, not persisted.
			continue
		}
		if abortErr != nil {
			continue
		}

		if ann.err != nil {
			if errors.Is(ann.err, provider.ErrAllProvidersUnreachable) {
				// The whole chain died mid-run: stop dispatching and keep
				// everything completed so far.
				abortErr = ann.err
				cancel()
				continue
			}
			a.log.Warn("annotation failed",
				zap.String("item", ann.item.Path), zap.Error(ann.err))
			ann.item.AnnotationError = true
			res.Failed++
			emitEvent(emit, types.LevelWarn, ann.item.Name, res.Annotated+res.Failed, total,
				fmt.Sprintf("annotation failed: %s", ann.item.Name))
		} else {
			ann.item.SetAnnotation(ann.description, ann.category)
			res.Annotated++
			emitEvent(emit, types.LevelInfo, ann.item.Name, res.Annotated+res.Failed, total,
				fmt.Sprintf("described %s", ann.item.Name))
		}

		// Incremental save: interrupted runs lose at most in-flight work.
		if err := a.saver.SaveIndex(ix); err != nil {
			abortErr = err
			cancel()
			continue
		}
		res.Saves++
	}

	if abortErr != nil {
		return res, abortErr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// annotateItem issues the completion for one item. A malformed or
// taxonomy-violating response earns one retry with a stricter prompt; a
// second failure is reported and the item stays unannotated.
func (a *Annotator) annotateItem(ctx context.Context, it *types.CollectionItem, cfg *types.CollectionConfig, sc plugin.Scanner) annotation {
	desc, cat, err := a.request(ctx, cfg, buildPrompt(it, cfg, sc, false))
	if err != nil && !errors.Is(err, provider.ErrAllProvidersUnreachable) && ctx.Err() == nil {
		desc, cat, err = a.request(ctx, cfg, buildPrompt(it, cfg, sc, true))
	}
	if err != nil {
		return annotation{item: it, err: err}
	}
	return annotation{item: it, description: desc, category: cat}
}

func (a *Annotator) request(ctx context.Context, cfg *types.CollectionConfig, prompt string) (string, string, error) {
	raw, err := a.client.Complete(ctx, provider.Request{
		System: "You analyze collection items and provide concise descriptions and category assignments. Be specific and helpful.",
		Prompt: prompt,
	})
	if err != nil {
		return "", "", err
	}
	desc, cat, err := parseResponse(raw)
	if err != nil {
		return "", "", err
	}
	if !cfg.HasCategory(cat) {
		return "", "", fmt.Errorf("category %q not in taxonomy", cat)
	}
	return desc, cat, nil
}

// parseResponse extracts the structured description/category payload from
// the model's text. Anything outside the JSON object is ignored.
func parseResponse(raw string) (string, string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", "", fmt.Errorf("no JSON object in response")
	}

	var payload struct {
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return "", "", fmt.Errorf("parse response: %w", err)
	}

	desc := strings.TrimSpace(payload.Description)
	cat := strings.TrimSpace(payload.Category)
	if desc == "" || cat == "" {
		return "", "", fmt.Errorf("response missing description or category")
	}
	if len(desc) > MaxDescriptionLen {
		return "", "", fmt.Errorf("description exceeds %d characters", MaxDescriptionLen)
	}
	return desc, cat, nil
}

// buildPrompt assembles the annotation prompt from the scanner's static
// prompt material and the item's metadata and content sample.
func buildPrompt(it *types.CollectionItem, cfg *types.CollectionConfig, sc plugin.Scanner, strict bool) string {
	var b strings.Builder

	b.WriteString(sc.PromptTemplate())
	b.WriteString("\n\nCATEGORY TAXONOMY (choose ONE):\n")
	b.WriteString(strings.Join(cfg.Categories, ", "))

	if examples := sc.ExampleDescriptions(); len(examples) > 0 {
		b.WriteString("\n\nEXAMPLE DESCRIPTIONS:\n")
		for _, ex := range examples {
			b.WriteString("- ")
			b.WriteString(ex)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nITEM NAME: %s\nITEM TYPE: %s\nITEM PATH: %s\n", it.Name, it.Kind, it.Path)

	if len(it.Metadata) > 0 {
		if meta, err := yaml.Marshal(it.Metadata); err == nil {
			fmt.Fprintf(&b, "\nMETADATA:\n%s", meta)
		}
	}

	sample := it.ContentSample
	if sample == "" {
		sample = "No content sample available"
	}
	fmt.Fprintf(&b, "\nCONTENT SAMPLE:\n%s\n", sample)

	fmt.Fprintf(&b, "\nProvide a concise description (max %d characters) and assign the most appropriate category.\n", MaxDescriptionLen)
	b.WriteString("\nReturn JSON:\n{\n  \"description\": \"Brief, specific description of this item\",\n  \"category\": \"one_category_from_taxonomy_above\"\n}\n")

	if strict {
		b.WriteString("\nIMPORTANT: Respond with ONLY the JSON object. The category MUST be copied verbatim from the taxonomy above. The description MUST be under ")
		fmt.Fprintf(&b, "%d characters.\n", MaxDescriptionLen)
	}

	return b.String()
}

func emitEvent(emit types.EventFunc, level types.EventLevel, item string, completed, total int, msg string) {
	if emit == nil {
		return
	}
	emit(types.ProgressEvent{
		Stage:       types.StageAnnotate,
		Level:       level,
		CurrentItem: item,
		Completed:   completed,
		Total:       total,
		Message:     msg,
		Timestamp:   time.Now(),
	})
}
