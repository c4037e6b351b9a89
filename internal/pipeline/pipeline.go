package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SyntaxAsSpiral/Collectivist/internal/annotator"
	"github.com/SyntaxAsSpiral/Collectivist/internal/curator"
	"github.com/SyntaxAsSpiral/Collectivist/internal/plugin"
	"github.com/SyntaxAsSpiral/Collectivist/internal/provider"
	"github.com/SyntaxAsSpiral/Collectivist/internal/reconciler"
	"github.com/SyntaxAsSpiral/Collectivist/internal/renderer"
	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// Options controls one pipeline run.
type Options struct {
	// ForceType selects a scanner by name instead of auto-detection.
	ForceType string

	SkipScan     bool
	SkipAnnotate bool
	SkipCurate   bool
	SkipRender   bool

	// Workers overrides the annotation concurrency when positive.
	Workers int

	// OnEvent receives progress events; nil disables reporting.
	OnEvent types.EventFunc

	// GeneratedAt pins the render timestamp; zero means now.
	GeneratedAt time.Time
}

// Pipeline runs the update sequence (scan, annotate, curate, render)
// against a collection root. Stages run strictly in order; a failed
// annotation stage degrades the run but never blocks curation or
// rendering, because a partially annotated collection still deserves a
// current view.
type Pipeline struct {
	registry *plugin.Registry
	locks    *runLocks
	log      *zap.Logger

	// newClient builds the LLM client for a run. Tests swap it out.
	newClient func(root string, log *zap.Logger) (provider.Client, error)
}

// New creates a pipeline with the built-in scanner registry.
func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		registry: plugin.NewRegistry(),
		locks:    newRunLocks(),
		log:      log,
		newClient: func(root string, log *zap.Logger) (provider.Client, error) {
			chain, err := provider.NewChainFromRoot(root, log)
			if err != nil {
				return nil, err
			}
			return chain, nil
		},
	}
}

// Registry exposes the scanner registry for status reporting.
func (p *Pipeline) Registry() *plugin.Registry { return p.registry }

// Run executes one full update of the collection at root. Exactly one
// run may work on a root at a time; a second caller gets
// ErrCollectionBusy immediately rather than queueing.
func (p *Pipeline) Run(ctx context.Context, root string, opts Options) (*types.RunResult, error) {
	release, err := p.locks.acquire(root)
	if err != nil {
		return nil, err
	}
	defer release()

	started := time.Now()
	res := &types.RunResult{
		RunID:      uuid.NewString(),
		Collection: root,
		Success:    true,
	}
	em := newEmitter(opts.OnEvent)
	log := p.log.With(zap.String("run_id", res.RunID), zap.String("collection", root))

	st := store.New(root)
	sc, err := p.registry.Select(root, opts.ForceType)
	if err != nil {
		return nil, err
	}
	log.Info("starting run", zap.String("scanner", sc.Name()))

	cfg, err := st.LoadConfig()
	if errors.Is(err, types.ErrConfigNotFound) {
		cfg = bootstrapConfig(root, sc)
		if err := st.SaveConfig(cfg); err != nil {
			return nil, fmt.Errorf("bootstrap config: %w", err)
		}
		log.Info("bootstrapped default config",
			zap.String("type", cfg.CollectionType))
	} else if err != nil {
		return nil, err
	}

	ix, err := st.LoadIndex()
	if err != nil {
		return nil, err
	}

	// Scan.
	em.setStage(types.StageScan)
	if opts.SkipScan {
		res.Stages = append(res.Stages, skipped(types.StageScan))
	} else {
		begin := time.Now()
		rec := reconciler.New(log)
		next, delta, err := rec.Reconcile(ctx, root, sc, cfg, ix)
		stage := types.StageResult{Stage: types.StageScan, Duration: time.Since(begin)}
		if err != nil {
			stage.Error = err.Error()
			p.fail(res, stage, em, "scan failed: "+err.Error())
			res.Duration = time.Since(started)
			return res, err
		}
		ix = next
		if err := st.SaveIndex(ix); err != nil {
			stage.Error = err.Error()
			p.fail(res, stage, em, "save index: "+err.Error())
			res.Duration = time.Since(started)
			return res, err
		}
		stage.OK = true
		stage.Items = ix.TotalItems
		res.Stages = append(res.Stages, stage)
		em.success(fmt.Sprintf("scanned %d items (%d added, %d removed, %d moved)",
			ix.TotalItems, delta.Added, delta.Removed, delta.Moved))
	}

	if err := ctx.Err(); err != nil {
		res.Success = false
		res.Duration = time.Since(started)
		return res, err
	}

	// Annotate.
	em.setStage(types.StageAnnotate)
	if opts.SkipAnnotate {
		res.Stages = append(res.Stages, skipped(types.StageAnnotate))
	} else {
		begin := time.Now()
		stage := types.StageResult{Stage: types.StageAnnotate, Duration: 0}
		client, err := p.newClient(root, log)
		if err != nil {
			stage.Duration = time.Since(begin)
			stage.Error = err.Error()
			p.degrade(res, stage, em, "llm unavailable: "+err.Error())
		} else {
			an := annotator.New(client, st, log)
			if opts.Workers > 0 {
				an.SetWorkers(opts.Workers)
			}
			ar, err := an.Annotate(ctx, ix, cfg, sc, opts.OnEvent)
			stage.Duration = time.Since(begin)
			stage.Items = ar.Annotated
			if err != nil {
				stage.Error = err.Error()
				p.degrade(res, stage, em,
					fmt.Sprintf("annotation aborted after %d items: %s", ar.Annotated, err))
			} else {
				stage.OK = true
				res.Stages = append(res.Stages, stage)
				em.success(fmt.Sprintf("annotated %d items (%d failed)", ar.Annotated, ar.Failed))
			}
		}
	}

	if err := ctx.Err(); err != nil {
		res.Success = false
		res.Duration = time.Since(started)
		return res, err
	}

	// Curate.
	em.setStage(types.StageCurate)
	if opts.SkipCurate {
		res.Stages = append(res.Stages, skipped(types.StageCurate))
	} else {
		begin := time.Now()
		cur := curator.New(st, log)
		cr, err := cur.Curate(ix, cfg, root)
		stage := types.StageResult{Stage: types.StageCurate, Duration: time.Since(begin)}
		if err != nil {
			stage.Error = err.Error()
			p.degrade(res, stage, em, "curation failed: "+err.Error())
		} else {
			stage.OK = true
			res.Stages = append(res.Stages, stage)
			if cr.Decision == curator.DecisionProposing {
				em.warn("schema evolution proposed; review " + store.ProposalsFile)
			} else {
				em.info("collection schema stable")
			}
		}
	}

	if err := ctx.Err(); err != nil {
		res.Success = false
		res.Duration = time.Since(started)
		return res, err
	}

	// Render.
	em.setStage(types.StageRender)
	if opts.SkipRender {
		res.Stages = append(res.Stages, skipped(types.StageRender))
	} else {
		begin := time.Now()
		rend := renderer.New(st, log)
		rr, err := rend.Render(ix, cfg, renderer.Options{GeneratedAt: opts.GeneratedAt})
		stage := types.StageResult{Stage: types.StageRender, Duration: time.Since(begin)}
		if err != nil {
			stage.Error = err.Error()
			p.fail(res, stage, em, "render failed: "+err.Error())
		} else {
			stage.OK = true
			stage.Items = len(rr.Written)
			res.Stages = append(res.Stages, stage)
			em.success(fmt.Sprintf("rendered %d views", len(rr.Written)))
		}
	}

	res.TotalItems = ix.TotalItems
	res.Duration = time.Since(started)
	log.Info("run finished",
		zap.Bool("success", res.Success),
		zap.Int("items", res.TotalItems),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// fail records a stage failure that also fails the run.
func (p *Pipeline) fail(res *types.RunResult, stage types.StageResult, em *emitter, msg string) {
	res.Stages = append(res.Stages, stage)
	res.Errors = append(res.Errors, msg)
	res.Success = false
	em.errorf(msg)
}

// degrade records a stage failure the run survives.
func (p *Pipeline) degrade(res *types.RunResult, stage types.StageResult, em *emitter, msg string) {
	res.Stages = append(res.Stages, stage)
	res.Errors = append(res.Errors, msg)
	res.Success = false
	em.warn(msg)
}

func skipped(stage string) types.StageResult {
	return types.StageResult{Stage: stage, Skipped: true, OK: true}
}

// bootstrapConfig builds a first-run config from the selected scanner's
// defaults so a bare directory becomes a working collection immediately.
func bootstrapConfig(root string, sc plugin.Scanner) *types.CollectionConfig {
	return &types.CollectionConfig{
		CollectionType: sc.Name(),
		Title:          filepath.Base(root),
		Categories:     sc.DefaultCategories(),
		OutputFormats:  []string{"markdown"},
	}
}
