// Package generate drives the segment-to-item generation pipeline: segment
// selection, prompt rendering, provider invocation, quality scoring, and the
// final atomic commit of the run.
package generate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/provider"
	"github.com/sells-group/curation-cli/internal/quality"
	"github.com/sells-group/curation-cli/internal/store"
)

// Prompts used when the dataset has no bound template.
const (
	defaultSystemPrompt = "You are an expert at creating high-quality training examples for AI models."

	defaultUserTemplate = "Create a training example based on this content:\n\n" +
		model.ContentPlaceholder +
		"\n\nGenerate an instruction, input (if needed), ideal response, bad response, and explanation."
)

// Request selects what to generate. SegmentIDs, when set, names the exact
// working set; otherwise segments are selected by the dataset's domain,
// use case, and segment-type filter. MaxItems of zero means no cap.
type Request struct {
	DatasetID  string
	SegmentIDs []string
	MaxItems   int
	BatchSize  int
}

// Result summarizes one generation run.
type Result struct {
	ItemIDs   []string
	Generated int
	Failed    int
}

// ProviderFactory resolves a provider by name. Indirection for tests.
type ProviderFactory func(name string, cfg *config.Config) (provider.Provider, error)

// Generator orchestrates generation runs against one store.
type Generator struct {
	store   store.Store
	cfg     *config.Config
	factory ProviderFactory
	limiter *rate.Limiter
}

// New creates a Generator. A nil factory uses the closed vendor set.
func New(st store.Store, cfg *config.Config, factory ProviderFactory) *Generator {
	if factory == nil {
		factory = provider.New
	}
	rps := cfg.Generation.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Generator{
		store:   st,
		cfg:     cfg,
		factory: factory,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Run executes one generation run: resolve the dataset, its template and
// working set, generate one candidate per segment, and commit the surviving
// items together with the counter overwrite and the "ready" status flip.
//
// Entity resolution failures abort the run. Provider and parsing failures
// are per-segment: logged, counted, skipped. An empty working set commits
// zero items and still marks the dataset ready.
func (g *Generator) Run(ctx context.Context, req Request) (*Result, error) {
	ds, err := g.store.GetDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}

	prov, err := g.factory(ds.Provider, g.cfg)
	if err != nil {
		return nil, err
	}

	systemPrompt, tmpl, err := g.resolvePrompts(ctx, ds)
	if err != nil {
		return nil, err
	}

	segments, err := g.resolveSegments(ctx, ds, req.SegmentIDs)
	if err != nil {
		return nil, err
	}
	if req.MaxItems > 0 && len(segments) > req.MaxItems {
		segments = segments[:req.MaxItems]
	}

	// Status flips only once every entity has resolved, so a fail-fast
	// abort leaves the dataset exactly as it was.
	if err := g.store.UpdateDatasetStatus(ctx, ds.ID, model.DatasetStatusGenerating); err != nil {
		return nil, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = g.cfg.Generation.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 10
	}

	zap.L().Info("generation run started",
		zap.String("dataset_id", ds.ID),
		zap.String("provider", prov.Name()),
		zap.Int("segments", len(segments)),
		zap.Int("batch_size", batchSize),
	)

	var (
		items  []model.DatasetItem
		failed int
	)
	for start := 0; start < len(segments); start += batchSize {
		end := start + batchSize
		if end > len(segments) {
			end = len(segments)
		}
		ok, bad := g.runBatch(ctx, ds, prov, systemPrompt, tmpl, segments[start:end])
		items = append(items, ok...)
		failed += bad
	}

	committed, err := g.store.CommitGeneration(ctx, ds.ID, items)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(committed))
	for i := range committed {
		ids[i] = committed[i].ID
	}

	zap.L().Info("generation run finished",
		zap.String("dataset_id", ds.ID),
		zap.Int("generated", len(ids)),
		zap.Int("failed", failed),
	)
	return &Result{ItemIDs: ids, Generated: len(ids), Failed: failed}, nil
}

// runBatch generates one candidate per segment. Sequential when concurrency
// is 1; otherwise segments run under an errgroup with a limit, each failure
// isolated so one bad segment never cancels its siblings.
func (g *Generator) runBatch(ctx context.Context, ds *model.Dataset, prov provider.Provider, systemPrompt string, tmpl *model.GenerationTemplate, segments []model.Segment) ([]model.DatasetItem, int) {
	concurrency := g.cfg.Generation.Concurrency
	if concurrency <= 1 {
		var items []model.DatasetItem
		failed := 0
		for i := range segments {
			item, err := g.generateOne(ctx, ds, prov, systemPrompt, tmpl, &segments[i])
			if err != nil {
				g.logSegmentFailure(ds.ID, segments[i].ID, err)
				failed++
				continue
			}
			items = append(items, *item)
		}
		return items, failed
	}

	var (
		mu     sync.Mutex
		items  []model.DatasetItem
		failed int
	)
	eg := errgroup.Group{}
	eg.SetLimit(concurrency)
	for i := range segments {
		seg := &segments[i]
		eg.Go(func() error {
			item, err := g.generateOne(ctx, ds, prov, systemPrompt, tmpl, seg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.logSegmentFailure(ds.ID, seg.ID, err)
				failed++
				return nil
			}
			items = append(items, *item)
			return nil
		})
	}
	_ = eg.Wait() // workers swallow their own errors
	return items, failed
}

// generateOne runs the full per-segment path: render, call, extract, score.
// Providers never retry internally, so a single transient-failure retry
// happens here before the segment is given up on.
func (g *Generator) generateOne(ctx context.Context, ds *model.Dataset, prov provider.Provider, systemPrompt string, tmpl *model.GenerationTemplate, seg *model.Segment) (*model.DatasetItem, error) {
	preq := provider.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   renderUserPrompt(tmpl, seg.Content),
		Model:        ds.TargetModelFamily,
		Temperature:  g.cfg.Generation.Temperature,
		MaxTokens:    g.cfg.Generation.MaxOutputTokens,
	}

	obj, err := g.callProvider(ctx, prov, preq)
	if err != nil && fault.IsTransient(err) {
		zap.L().Warn("transient provider failure, retrying once",
			zap.String("dataset_id", ds.ID),
			zap.String("segment_id", seg.ID),
			zap.Error(err),
		)
		obj, err = g.callProvider(ctx, prov, preq)
	}
	if err != nil {
		return nil, err
	}

	instruction := stringField(obj, "instruction")
	inputText := stringField(obj, "input")
	idealResponse := stringField(obj, "ideal_response")

	res := quality.Score(instruction, idealResponse, inputText)
	now := time.Now().UTC()
	return &model.DatasetItem{
		ID:             uuid.NewString(),
		DatasetID:      ds.ID,
		SegmentID:      seg.ID,
		SourceProvider: prov.Name(),
		Instruction:    instruction,
		InputText:      inputText,
		IdealResponse:  idealResponse,
		BadResponse:    stringField(obj, "bad_response"),
		Explanation:    stringField(obj, "explanation"),
		Status:         model.ItemStatusPending,
		QualityScore:   res.Score,
		QualityFlags:   res.Flags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// callProvider makes one rate-limited, deadline-bound provider call.
func (g *Generator) callProvider(ctx context.Context, prov provider.Provider, preq provider.Request) (map[string]any, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fault.External(prov.Name(), err)
	}

	timeout := time.Duration(g.cfg.Generation.CallTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return prov.GenerateJSON(callCtx, preq)
}

// resolvePrompts loads the dataset's template when one is bound, otherwise
// falls back to the fixed default prompts.
func (g *Generator) resolvePrompts(ctx context.Context, ds *model.Dataset) (string, *model.GenerationTemplate, error) {
	if ds.TemplateID == "" {
		return defaultSystemPrompt, nil, nil
	}
	tmpl, err := g.store.GetTemplate(ctx, ds.TemplateID)
	if err != nil {
		return "", nil, err
	}
	return tmpl.SystemPrompt, tmpl, nil
}

// resolveSegments builds the working set: explicit IDs resolve one by one
// and fail fast on the first missing id, otherwise the dataset's domain,
// use case, and segment-type filter select the set.
func (g *Generator) resolveSegments(ctx context.Context, ds *model.Dataset, segmentIDs []string) ([]model.Segment, error) {
	if len(segmentIDs) > 0 {
		segments := make([]model.Segment, 0, len(segmentIDs))
		for _, id := range segmentIDs {
			seg, err := g.store.GetSegment(ctx, id)
			if err != nil {
				return nil, err
			}
			segments = append(segments, *seg)
		}
		return segments, nil
	}

	filter := store.SegmentFilter{
		DomainID: ds.DomainID,
		UseCase:  ds.UseCase,
	}
	if st, ok := ds.SegmentFilter.SegmentType(); ok {
		if st == "" {
			return nil, fault.Invalid("segment_filter.segment_type must be a non-empty string")
		}
		filter.SegmentType = st
	}
	return g.store.ListSegments(ctx, filter)
}

func (g *Generator) logSegmentFailure(datasetID, segmentID string, err error) {
	zap.L().Warn("segment generation failed, skipping",
		zap.String("dataset_id", datasetID),
		zap.String("segment_id", segmentID),
		zap.Error(err),
	)
}

func renderUserPrompt(tmpl *model.GenerationTemplate, content string) string {
	if tmpl == nil {
		t := model.GenerationTemplate{UserPromptTemplate: defaultUserTemplate}
		return t.RenderUserPrompt(content)
	}
	return tmpl.RenderUserPrompt(content)
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
