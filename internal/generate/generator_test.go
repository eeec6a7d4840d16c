package generate

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/provider"
	"github.com/sells-group/curation-cli/internal/quality"
	"github.com/sells-group/curation-cli/internal/store"
	"github.com/sells-group/curation-cli/pkg/openai"
)

// stubProvider returns canned objects keyed by segment content, or an error
// when the content matches failOn.
type stubProvider struct {
	failOn  string
	prompts []provider.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req provider.Request) (string, error) {
	return "", nil
}

func (s *stubProvider) GenerateJSON(_ context.Context, req provider.Request) (map[string]any, error) {
	s.prompts = append(s.prompts, req)
	if s.failOn != "" && strings.Contains(req.UserPrompt, s.failOn) {
		return nil, fault.Externalf("stub", "simulated vendor outage")
	}
	return map[string]any{
		"instruction":    "Summarize the passage for a new team member.",
		"input":          "",
		"ideal_response": "The passage explains the deployment flow end to end.",
		"bad_response":   "I cannot help with that.",
		"explanation":    "The ideal answer is grounded in the passage.",
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Generation: config.GenerationConfig{
			BatchSize:         10,
			Concurrency:       1,
			CallTimeoutSecs:   5,
			RequestsPerSecond: 1000,
			Temperature:       0.7,
			MaxOutputTokens:   2000,
		},
	}
}

type env struct {
	store    *store.SQLiteStore
	provider *stubProvider
	gen      *Generator
	dataset  *model.Dataset
	segments []model.Segment
}

func setup(t *testing.T, segmentContents []string, ds model.Dataset) *env {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "gen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	segs := make([]model.Segment, len(segmentContents))
	for i, content := range segmentContents {
		segs[i] = model.Segment{
			DomainID:    "domain-1",
			SegmentType: "paragraph",
			Content:     content,
			Position:    i,
		}
	}
	created, err := st.CreateSegments(ctx, segs)
	require.NoError(t, err)

	if ds.DomainID == "" {
		ds.DomainID = "domain-1"
	}
	if ds.Name == "" {
		ds.Name = "gen fixture"
	}
	if ds.Provider == "" {
		ds.Provider = "stub"
	}
	dataset, err := st.CreateDataset(ctx, ds)
	require.NoError(t, err)

	stub := &stubProvider{}
	gen := New(st, testConfig(), func(string, *config.Config) (provider.Provider, error) {
		return stub, nil
	})
	return &env{store: st, provider: stub, gen: gen, dataset: dataset, segments: created}
}

func TestRun_GeneratesPendingItemsAndFinalizes(t *testing.T) {
	e := setup(t, []string{"first paragraph", "second paragraph", "third paragraph"}, model.Dataset{})
	ctx := context.Background()

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Generated)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, res.ItemIDs, 3)

	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetStatusReady, ds.Status)
	assert.Equal(t, 3, ds.TotalItems)
	assert.Equal(t, 3, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())

	items, err := e.store.ListItems(ctx, store.ItemFilter{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, model.ItemStatusPending, it.Status)
		assert.Equal(t, "stub", it.SourceProvider)
		assert.NotEmpty(t, it.SegmentID)
		assert.Equal(t, 1.0, it.QualityScore)
	}
}

func TestRun_SegmentFailureIsIsolated(t *testing.T) {
	e := setup(t, []string{"alpha paragraph", "bravo paragraph", "charlie paragraph"}, model.Dataset{})
	e.provider.failOn = "bravo"
	ctx := context.Background()

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)
	assert.Equal(t, 1, res.Failed)

	// Counters count only the survivors.
	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.TotalItems)
	assert.Equal(t, 2, ds.PendingItems)
	assert.Equal(t, model.DatasetStatusReady, ds.Status)
}

func TestRun_DatasetNotFound(t *testing.T) {
	e := setup(t, nil, model.Dataset{})
	_, err := e.gen.Run(context.Background(), Request{DatasetID: "missing"})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestRun_MissingSegmentIDFailsFast(t *testing.T) {
	e := setup(t, []string{"only paragraph"}, model.Dataset{})
	ctx := context.Background()

	_, err := e.gen.Run(ctx, Request{
		DatasetID:  e.dataset.ID,
		SegmentIDs: []string{e.segments[0].ID, "missing-segment"},
	})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
	assert.Contains(t, err.Error(), "missing-segment")

	// The abort happens before any write: the dataset keeps its prior
	// status instead of sticking in "generating".
	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetStatusDraft, ds.Status)
	assert.Equal(t, 0, ds.TotalItems)

	items, err := e.store.ListItems(ctx, store.ItemFilter{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRun_MissingTemplateLeavesStatusUntouched(t *testing.T) {
	e := setup(t, []string{"only paragraph"}, model.Dataset{TemplateID: "missing-template"})
	ctx := context.Background()

	_, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))

	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetStatusDraft, ds.Status)
}

func TestRun_ExplicitSegmentIDs(t *testing.T) {
	e := setup(t, []string{"one", "two", "three"}, model.Dataset{})
	ctx := context.Background()

	res, err := e.gen.Run(ctx, Request{
		DatasetID:  e.dataset.ID,
		SegmentIDs: []string{e.segments[2].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	require.Len(t, e.provider.prompts, 1)
	assert.Contains(t, e.provider.prompts[0].UserPrompt, "three")
}

func TestRun_MaxItemsTruncatesFirstN(t *testing.T) {
	e := setup(t, []string{"pos zero", "pos one", "pos two", "pos three"}, model.Dataset{})
	ctx := context.Background()

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID, MaxItems: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Generated)
	require.Len(t, e.provider.prompts, 2)
	assert.Contains(t, e.provider.prompts[0].UserPrompt, "pos zero")
	assert.Contains(t, e.provider.prompts[1].UserPrompt, "pos one")
}

func TestRun_EmptyWorkingSetStillReady(t *testing.T) {
	e := setup(t, nil, model.Dataset{})
	ctx := context.Background()

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)

	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetStatusReady, ds.Status)
	assert.Equal(t, 0, ds.TotalItems)
}

func TestRun_SegmentTypeFilterApplied(t *testing.T) {
	ctx := context.Background()
	e := setup(t, nil, model.Dataset{SegmentFilter: model.Metadata{"segment_type": "heading"}})

	_, err := e.store.CreateSegments(ctx, []model.Segment{
		{DomainID: "domain-1", SegmentType: "paragraph", Content: "body text"},
		{DomainID: "domain-1", SegmentType: "heading", Content: "chapter title"},
	})
	require.NoError(t, err)

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	require.Len(t, e.provider.prompts, 1)
	assert.Contains(t, e.provider.prompts[0].UserPrompt, "chapter title")
}

func TestRun_TemplateRenderedIntoPrompt(t *testing.T) {
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "tmpl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	tmpl, err := st.CreateTemplate(ctx, model.GenerationTemplate{
		DomainID:           "domain-1",
		Name:               "custom",
		SystemPrompt:       "You are a compliance writer.",
		UserPromptTemplate: "Write a QA pair about: {content} Keep it formal.",
		IsActive:           true,
	})
	require.NoError(t, err)

	_, err = st.CreateSegments(ctx, []model.Segment{
		{DomainID: "domain-1", SegmentType: "paragraph", Content: "retention schedule"},
	})
	require.NoError(t, err)

	ds, err := st.CreateDataset(ctx, model.Dataset{
		DomainID:   "domain-1",
		Name:       "templated",
		Provider:   "stub",
		TemplateID: tmpl.ID,
	})
	require.NoError(t, err)

	stub := &stubProvider{}
	gen := New(st, testConfig(), func(string, *config.Config) (provider.Provider, error) {
		return stub, nil
	})

	_, err = gen.Run(ctx, Request{DatasetID: ds.ID})
	require.NoError(t, err)
	require.Len(t, stub.prompts, 1)
	assert.Equal(t, "You are a compliance writer.", stub.prompts[0].SystemPrompt)
	assert.Equal(t, "Write a QA pair about: retention schedule Keep it formal.", stub.prompts[0].UserPrompt)
}

func TestRun_DefaultPromptsWhenNoTemplate(t *testing.T) {
	e := setup(t, []string{"plain segment"}, model.Dataset{})
	_, err := e.gen.Run(context.Background(), Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	require.Len(t, e.provider.prompts, 1)
	assert.Equal(t, defaultSystemPrompt, e.provider.prompts[0].SystemPrompt)
	assert.Contains(t, e.provider.prompts[0].UserPrompt, "plain segment")
	assert.NotContains(t, e.provider.prompts[0].UserPrompt, model.ContentPlaceholder)
}

func TestRun_MissingFieldsScoreZero(t *testing.T) {
	e := setup(t, []string{"sparse output"}, model.Dataset{})
	ctx := context.Background()

	// Provider returns an object missing every expected key.
	e.gen.factory = func(string, *config.Config) (provider.Provider, error) {
		return emptyObjectProvider{}, nil
	}

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	require.Equal(t, 1, res.Generated)

	items, err := e.store.ListItems(ctx, store.ItemFilter{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.0, items[0].QualityScore)
	assert.Contains(t, items[0].QualityFlags, quality.FlagEmptyInstruction)
	assert.Contains(t, items[0].QualityFlags, quality.FlagEmptyResponse)
}

func TestRun_ConcurrentBatchIsolatesFailures(t *testing.T) {
	contents := []string{"seg a", "seg b", "seg c", "seg d", "seg e", "seg f"}
	e := setup(t, contents, model.Dataset{})
	ctx := context.Background()

	cfg := testConfig()
	cfg.Generation.Concurrency = 4
	failing := &safeStub{failOn: "seg c"}
	gen := New(e.store, cfg, func(string, *config.Config) (provider.Provider, error) {
		return failing, nil
	})

	res, err := gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Generated)
	assert.Equal(t, 1, res.Failed)

	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, ds.TotalItems)
	assert.Equal(t, 5, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())
}

func TestRun_TransientFailureRetriedOnce(t *testing.T) {
	e := setup(t, []string{"flaky segment"}, model.Dataset{})
	ctx := context.Background()

	flaky := &flakyStub{failures: 1, failWith: fault.External("openai",
		&openai.StatusError{Code: 429, Body: "rate limited"})}
	e.gen.factory = func(string, *config.Config) (provider.Provider, error) {
		return flaky, nil
	}

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, flaky.calls)
}

func TestRun_PermanentFailureNotRetried(t *testing.T) {
	e := setup(t, []string{"rejected segment"}, model.Dataset{})
	ctx := context.Background()

	flaky := &flakyStub{failures: 2, failWith: fault.External("openai",
		&openai.StatusError{Code: 401, Body: "invalid api key"})}
	e.gen.factory = func(string, *config.Config) (provider.Provider, error) {
		return flaky, nil
	}

	res, err := e.gen.Run(ctx, Request{DatasetID: e.dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, flaky.calls)
}

// flakyStub fails its first N calls with a fixed error, then succeeds.
type flakyStub struct {
	failures int
	failWith error
	calls    int
}

func (s *flakyStub) Name() string { return "stub" }

func (s *flakyStub) Generate(context.Context, provider.Request) (string, error) {
	return "", nil
}

func (s *flakyStub) GenerateJSON(context.Context, provider.Request) (map[string]any, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, s.failWith
	}
	return map[string]any{
		"instruction":    "Summarize the passage for a new team member.",
		"ideal_response": "The passage explains the deployment flow end to end.",
	}, nil
}

// safeStub is a concurrency-safe provider stub.
type safeStub struct {
	mu     sync.Mutex
	failOn string
	calls  int
}

func (s *safeStub) Name() string { return "stub" }

func (s *safeStub) Generate(context.Context, provider.Request) (string, error) {
	return "", nil
}

func (s *safeStub) GenerateJSON(_ context.Context, req provider.Request) (map[string]any, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failOn != "" && strings.Contains(req.UserPrompt, s.failOn) {
		return nil, fault.Externalf("stub", "simulated vendor outage")
	}
	return map[string]any{
		"instruction":    "Summarize the passage for a new team member.",
		"ideal_response": "The passage explains the deployment flow end to end.",
	}, nil
}

type emptyObjectProvider struct{}

func (emptyObjectProvider) Name() string { return "empty" }
func (emptyObjectProvider) Generate(context.Context, provider.Request) (string, error) {
	return "", nil
}
func (emptyObjectProvider) GenerateJSON(context.Context, provider.Request) (map[string]any, error) {
	return map[string]any{"unrelated": true}, nil
}
