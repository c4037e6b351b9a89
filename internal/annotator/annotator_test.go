package annotator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyntaxAsSpiral/Collectivist/internal/plugin"
	"github.com/SyntaxAsSpiral/Collectivist/internal/provider"
	"github.com/SyntaxAsSpiral/Collectivist/pkg/types"
)

// fakeClient scripts provider behavior per call.
type fakeClient struct {
	mu        sync.Mutex
	calls     int
	probeErr  error
	onRequest func(call int, req provider.Request) (string, error)
}

func (f *fakeClient) Complete(ctx context.Context, req provider.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.onRequest(call, req)
}

func (f *fakeClient) Probe(ctx context.Context) error { return f.probeErr }
func (f *fakeClient) Name() string                    { return "fake" }

// countingSaver records every index persist.
type countingSaver struct {
	saves atomic.Int32
	err   error
}

func (c *countingSaver) SaveIndex(ix *types.CollectionIndex) error {
	c.saves.Add(1)
	return c.err
}

func testConfig() *types.CollectionConfig {
	return &types.CollectionConfig{
		CollectionType: "generic",
		Categories:     []string{"documents", "media", "archives"},
	}
}

func testIndex(n int, annotated int) *types.CollectionIndex {
	ix := types.NewIndex("test", "generic")
	for i := 0; i < n; i++ {
		it := &types.CollectionItem{
			ID:   fmt.Sprintf("item_%02d", i),
			Path: fmt.Sprintf("item_%02d", i),
			Name: fmt.Sprintf("item_%02d", i),
			Kind: types.KindFile,
		}
		if i < annotated {
			it.SetAnnotation("already described", "documents")
		}
		ix.Items = append(ix.Items, it)
	}
	ix.TotalItems = n
	return ix
}

func goodResponse(category string) string {
	return fmt.Sprintf(`{"description": "a useful item", "category": %q}`, category)
}

func TestAnnotateProcessesOnlyUnannotatedItems(t *testing.T) {
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			return goodResponse("documents"), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(10, 3)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err)
	assert.Equal(t, 7, res.Annotated)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 7, res.Saves, "index persisted after every completed item")
	assert.Equal(t, int32(7), saver.saves.Load())
	for _, it := range ix.Items {
		assert.True(t, it.Annotated())
		assert.False(t, it.AnnotationError)
	}
}

func TestAnnotateNothingToDo(t *testing.T) {
	client := &fakeClient{
		probeErr: errors.New("should not be probed"),
		onRequest: func(call int, req provider.Request) (string, error) {
			t.Fatal("no requests expected")
			return "", nil
		},
	}
	saver := &countingSaver{}

	res, err := New(client, saver, nil).Annotate(context.Background(), testIndex(4, 4), testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err)
	assert.Zero(t, res.Annotated)
	assert.Zero(t, res.Saves, "fully annotated index requires no probe and no saves")
}

func TestAnnotateProbeFailureAbortsBeforeWork(t *testing.T) {
	client := &fakeClient{
		probeErr: provider.ErrAllProvidersUnreachable,
		onRequest: func(call int, req provider.Request) (string, error) {
			t.Fatal("no completions after a failed probe")
			return "", nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(5, 0)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	assert.ErrorIs(t, err, ErrProbeFailed)
	assert.Zero(t, res.Annotated)
	assert.Zero(t, saver.saves.Load())
	for _, it := range ix.Items {
		assert.Nil(t, it.Description)
	}
}

func TestAnnotateRetriesOnceOnMalformedResponse(t *testing.T) {
	var perItem sync.Map
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			n, _ := perItem.LoadOrStore(req.Prompt[:40], new(atomic.Int32))
			if n.(*atomic.Int32).Add(1) == 1 {
				return "not json at all", nil
			}
			return goodResponse("media"), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(1, 0)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Annotated)
	require.NotNil(t, ix.Items[0].Category)
	assert.Equal(t, "media", *ix.Items[0].Category)
}

func TestAnnotateRetriesOnTaxonomyViolation(t *testing.T) {
	var calls atomic.Int32
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			if calls.Add(1) == 1 {
				return goodResponse("not_a_real_category"), nil
			}
			assert.Contains(t, req.Prompt, "copied verbatim", "retry uses the strict prompt")
			return goodResponse("archives"), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(1, 0)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Annotated)
	require.NotNil(t, ix.Items[0].Category)
	assert.Equal(t, "archives", *ix.Items[0].Category)
}

func TestAnnotatePersistentFailureFlagsItem(t *testing.T) {
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			return goodResponse("still_not_in_taxonomy"), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(1, 0)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err, "a flagged item is not a stage failure")
	assert.Equal(t, 0, res.Annotated)
	assert.Equal(t, 1, res.Failed)
	it := ix.Items[0]
	assert.True(t, it.AnnotationError)
	assert.Nil(t, it.Description, "no partial annotation on failure")
	assert.Nil(t, it.Category)
	assert.Equal(t, int32(1), saver.saves.Load(), "the error flag is persisted")
}

func TestAnnotateRejectsOverlongDescription(t *testing.T) {
	long := strings.Repeat("x", MaxDescriptionLen+1)
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			return fmt.Sprintf(`{"description": %q, "category": "documents"}`, long), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(1, 0)

	res, err := New(client, saver, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, ix.Items[0].AnnotationError)
}

func TestAnnotateChainExhaustionPreservesCompletedWork(t *testing.T) {
	var calls atomic.Int32
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			if calls.Add(1) > 3 {
				return "", fmt.Errorf("%w: tried 2 backends", provider.ErrAllProvidersUnreachable)
			}
			return goodResponse("documents"), nil
		},
	}
	saver := &countingSaver{}
	ix := testIndex(10, 0)

	a := New(client, saver, nil)
	a.SetWorkers(1)
	res, err := a.Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), nil)

	assert.ErrorIs(t, err, provider.ErrAllProvidersUnreachable)
	assert.Equal(t, 3, res.Annotated, "completed annotations survive the abort")
	assert.Equal(t, int32(3), saver.saves.Load())
	annotated := 0
	for _, it := range ix.Items {
		if it.Annotated() {
			annotated++
		}
	}
	assert.Equal(t, 3, annotated)
}

// signalSaver closes a channel on the first persist so tests can order
// client behavior against the consumer's save.
type signalSaver struct {
	countingSaver
	first chan struct{}
	once  sync.Once
}

func (s *signalSaver) SaveIndex(ix *types.CollectionIndex) error {
	err := s.countingSaver.SaveIndex(ix)
	s.once.Do(func() { close(s.first) })
	return err
}

func TestAnnotateDiscardsResultsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saver := &signalSaver{first: make(chan struct{})}
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			if call >= 2 {
				// Wait for the first completion to be persisted, then cancel
				// before this result reaches the consumer.
				<-saver.first
				cancel()
			}
			return goodResponse("documents"), nil
		},
	}
	ix := testIndex(4, 0)

	a := New(client, saver, nil)
	a.SetWorkers(1)
	res, err := a.Annotate(ctx, ix, testConfig(), plugin.NewGenericScanner(), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Annotated, "work completed before cancellation survives")
	assert.Equal(t, 1, res.Saves)
	assert.Equal(t, int32(1), saver.saves.Load(), "post-cancel results are never persisted")
	annotated := 0
	for _, it := range ix.Items {
		if it.Annotated() {
			annotated++
		}
	}
	assert.Equal(t, 1, annotated, "post-cancel results are never merged")
}

func TestAnnotateParseResponseExtractsEmbeddedJSON(t *testing.T) {
	raw := "Sure! Here is the annotation:\n```json\n{\"description\": \"a tool\", \"category\": \"documents\"}\n```\nHope that helps."

	desc, cat, err := parseResponse(raw)

	require.NoError(t, err)
	assert.Equal(t, "a tool", desc)
	assert.Equal(t, "documents", cat)
}

func TestAnnotateEventsReportProgress(t *testing.T) {
	client := &fakeClient{
		onRequest: func(call int, req provider.Request) (string, error) {
			return goodResponse("documents"), nil
		},
	}
	var mu sync.Mutex
	var events []types.ProgressEvent
	emit := func(ev types.ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	ix := testIndex(3, 0)

	_, err := New(client, &countingSaver{}, nil).Annotate(context.Background(), ix, testConfig(), plugin.NewGenericScanner(), emit)

	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, types.StageAnnotate, ev.Stage)
		assert.Equal(t, 3, ev.Total)
	}
}
