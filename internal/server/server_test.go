package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/curation-cli/internal/blob"
	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/export"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/generate"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/provider"
	"github.com/sells-group/curation-cli/internal/review"
	"github.com/sells-group/curation-cli/internal/store"
)

// cannedProvider always returns the same structured object.
type cannedProvider struct{}

func (cannedProvider) Name() string { return "canned" }
func (cannedProvider) Generate(context.Context, provider.Request) (string, error) {
	return "", nil
}
func (cannedProvider) GenerateJSON(context.Context, provider.Request) (map[string]any, error) {
	return map[string]any{
		"instruction":    "Explain the passage to a newcomer.",
		"ideal_response": "The passage covers the deployment workflow in detail.",
	}, nil
}

type testEnv struct {
	handler http.Handler
	store   *store.SQLiteStore
	dataset *model.Dataset
	items   []model.DatasetItem
}

func setup(t *testing.T, itemCount int) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	ds, err := st.CreateDataset(ctx, model.Dataset{
		DomainID: "domain-1", Name: "api fixture", Provider: "canned",
	})
	require.NoError(t, err)

	var items []model.DatasetItem
	if itemCount > 0 {
		seed := make([]model.DatasetItem, itemCount)
		for i := range seed {
			seed[i] = model.DatasetItem{
				Instruction:   "Explain the cache invalidation strategy.",
				IdealResponse: "Entries expire after five minutes or on explicit purge.",
				Status:        model.ItemStatusPending,
			}
		}
		items, err = st.CommitGeneration(ctx, ds.ID, seed)
		require.NoError(t, err)
	}

	cfg := &config.Config{
		Generation: config.GenerationConfig{
			BatchSize: 10, Concurrency: 1, CallTimeoutSecs: 5,
			RequestsPerSecond: 1000, Temperature: 0.7,
		},
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
	}

	storage, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	gen := generate.New(st, cfg, func(string, *config.Config) (provider.Provider, error) {
		return cannedProvider{}, nil
	})
	handler := New(st, gen, review.NewService(st), export.New(st, storage), cfg.Server)

	return &testEnv{handler: handler, store: st, dataset: ds, items: items}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := setup(t, 0)
	rec := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetDataset(t *testing.T) {
	e := setup(t, 0)

	rec := e.do(t, http.MethodGet, "/datasets/"+e.dataset.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var ds model.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, e.dataset.ID, ds.ID)

	rec = e.do(t, http.MethodGet, "/datasets/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	e := setup(t, 0)
	ctx := context.Background()

	_, err := e.store.CreateSegments(ctx, []model.Segment{
		{DomainID: "domain-1", SegmentType: "paragraph", Content: "some content"},
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/datasets/"+e.dataset.ID+"/generate", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res generate.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Generated)

	ds, err := e.store.GetDataset(ctx, e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DatasetStatusReady, ds.Status)
}

func TestGenerateEndpoint_NegativeMaxItems(t *testing.T) {
	e := setup(t, 0)
	rec := e.do(t, http.MethodPost, "/datasets/"+e.dataset.ID+"/generate",
		map[string]any{"max_items": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewEndpoints_ApproveRejectFlow(t *testing.T) {
	e := setup(t, 2)

	rec := e.do(t, http.MethodPost, "/review/items/"+e.items[0].ID+"/approve",
		map[string]any{"reviewer_id": "r1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The response carries both the item and the audit record.
	var approved reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, model.ItemStatusApproved, approved.Item.Status)
	require.NotNil(t, approved.Review)
	assert.Equal(t, model.ReviewActionApprove, approved.Review.Action)
	assert.Equal(t, "r1", approved.Review.ReviewerID)
	assert.Equal(t, e.items[0].ID, approved.Review.DatasetItemID)

	// Second decision on the same item is a contract violation.
	rec = e.do(t, http.MethodPost, "/review/items/"+e.items[0].ID+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Reject without justification fails.
	rec = e.do(t, http.MethodPost, "/review/items/"+e.items[1].ID+"/reject",
		map[string]any{"reviewer_id": "r1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/review/items/"+e.items[1].ID+"/reject",
		map[string]any{"reviewer_id": "r1", "justification": "off topic"})
	require.Equal(t, http.StatusOK, rec.Code)

	ds, err := e.store.GetDataset(context.Background(), e.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.ApprovedItems)
	assert.Equal(t, 1, ds.RejectedItems)
	assert.Equal(t, 0, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())
}

func TestReviewEndpoints_Edit(t *testing.T) {
	e := setup(t, 1)

	rec := e.do(t, http.MethodPost, "/review/items/"+e.items[0].ID+"/edit",
		map[string]any{"ideal_response": "A sharper answer with enough length."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A sharper answer with enough length.", body.Item.IdealResponse)
	assert.Equal(t, model.ItemStatusPending, body.Item.Status)
	require.NotNil(t, body.Review)
	assert.Equal(t, model.ReviewActionEdit, body.Review.Action)
	assert.Contains(t, body.Review.NewValues, "ideal_response")
}

func TestListPendingEndpoint(t *testing.T) {
	e := setup(t, 3)

	rec := e.do(t, http.MethodGet, "/review/pending?dataset_id="+e.dataset.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.DatasetItem `json:"items"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Items, 3)
}

func TestExportEndpoint(t *testing.T) {
	e := setup(t, 1)

	// Approve so the default approved-only export has content.
	rec := e.do(t, http.MethodPost, "/review/items/"+e.items[0].ID+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/datasets/"+e.dataset.ID+"/export", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var exp model.DatasetExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	assert.Equal(t, 1, exp.ExportVersion)
	assert.Equal(t, 1, exp.ItemCount)
}

func TestMalformedBody(t *testing.T) {
	e := setup(t, 1)
	req := httptest.NewRequest(http.MethodPost, "/review/items/"+e.items[0].ID+"/approve",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFaultMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fault.NotFound("dataset", "x"), http.StatusNotFound},
		{fault.Invalid("bad transition"), http.StatusBadRequest},
		{fault.Processing("parse", assert.AnError), http.StatusUnprocessableEntity},
		{fault.External("openai", assert.AnError), http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeFault(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}
