package review

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/store"
)

type fixture struct {
	store   *store.SQLiteStore
	service *Service
	dataset *model.Dataset
	items   []model.DatasetItem
}

func setup(t *testing.T, itemCount int) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	ds, err := st.CreateDataset(ctx, model.Dataset{
		DomainID: "domain-1",
		Name:     "review fixture",
		Provider: "openai",
	})
	require.NoError(t, err)

	items := make([]model.DatasetItem, itemCount)
	for i := range items {
		items[i] = model.DatasetItem{
			Instruction:   "Describe the backup retention policy.",
			IdealResponse: "Backups are kept for thirty days and rotated nightly.",
			Status:        model.ItemStatusPending,
		}
	}
	created, err := st.CommitGeneration(ctx, ds.ID, items)
	require.NoError(t, err)

	ds, err = st.GetDataset(ctx, ds.ID)
	require.NoError(t, err)

	return &fixture{store: st, service: NewService(st), dataset: ds, items: created}
}

func (f *fixture) reload(t *testing.T) *model.Dataset {
	t.Helper()
	ds, err := f.store.GetDataset(context.Background(), f.dataset.ID)
	require.NoError(t, err)
	return ds
}

func TestApprove_MovesCountersAndWritesAudit(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()

	item, rev, err := f.service.Approve(ctx, f.items[0].ID, "reviewer-1", "looks good")
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusApproved, item.Status)

	// The audit record of the decision comes back to the caller.
	require.NotNil(t, rev)
	assert.NotEmpty(t, rev.ID)
	assert.Equal(t, item.ID, rev.DatasetItemID)
	assert.Equal(t, model.ReviewActionApprove, rev.Action)
	assert.Equal(t, "reviewer-1", rev.ReviewerID)
	assert.Equal(t, map[string]string{"status": "pending_review"}, rev.PreviousValues)
	assert.Equal(t, map[string]string{"status": "approved"}, rev.NewValues)

	ds := f.reload(t)
	assert.Equal(t, 3, ds.TotalItems)
	assert.Equal(t, 1, ds.ApprovedItems)
	assert.Equal(t, 0, ds.RejectedItems)
	assert.Equal(t, 2, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())
}

func TestReject_RequiresJustification(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	_, _, err := f.service.Reject(ctx, f.items[0].ID, "reviewer-1", "")
	require.Error(t, err)
	assert.True(t, fault.IsInvalid(err))

	// Nothing moved.
	ds := f.reload(t)
	assert.Equal(t, 1, ds.PendingItems)
	assert.Equal(t, 0, ds.RejectedItems)
}

func TestReject_MovesCounters(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	item, rev, err := f.service.Reject(ctx, f.items[1].ID, "reviewer-1", "hallucinated numbers")
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusRejected, item.Status)
	require.NotNil(t, rev)
	assert.Equal(t, model.ReviewActionReject, rev.Action)
	assert.Equal(t, "hallucinated numbers", rev.Justification)

	ds := f.reload(t)
	assert.Equal(t, 1, ds.RejectedItems)
	assert.Equal(t, 1, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())
}

func TestApprove_TerminalItemRejected(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	_, _, err := f.service.Approve(ctx, f.items[0].ID, "reviewer-1", "")
	require.NoError(t, err)

	_, _, err = f.service.Approve(ctx, f.items[0].ID, "reviewer-2", "")
	require.Error(t, err)
	assert.True(t, fault.IsInvalid(err))

	_, _, err = f.service.Reject(ctx, f.items[0].ID, "reviewer-2", "changed my mind")
	require.Error(t, err)
	assert.True(t, fault.IsInvalid(err))

	// Counters reflect exactly one decision.
	ds := f.reload(t)
	assert.Equal(t, 1, ds.ApprovedItems)
	assert.Equal(t, 0, ds.RejectedItems)
	assert.Equal(t, 0, ds.PendingItems)
	assert.True(t, ds.CountersConsistent())
}

func TestApprove_NotFound(t *testing.T) {
	f := setup(t, 1)
	_, _, err := f.service.Approve(context.Background(), "missing", "", "")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
}

func TestEdit_SnapshotsOnlyChangedFields(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	newResponse := "Backups are kept for ninety days with weekly offsite rotation."
	item, rev, err := f.service.Edit(ctx, f.items[0].ID, "reviewer-1", "tightened wording", FieldUpdates{
		IdealResponse: &newResponse,
	})
	require.NoError(t, err)
	assert.Equal(t, newResponse, item.IdealResponse)
	assert.Equal(t, f.items[0].Instruction, item.Instruction)

	require.NotNil(t, rev)
	assert.Equal(t, model.ReviewActionEdit, rev.Action)
	assert.Equal(t, map[string]string{"ideal_response": f.items[0].IdealResponse}, rev.PreviousValues)
	assert.Equal(t, map[string]string{"ideal_response": newResponse}, rev.NewValues)

	// Status and counters untouched.
	assert.Equal(t, model.ItemStatusPending, item.Status)
	ds := f.reload(t)
	assert.Equal(t, 1, ds.PendingItems)
	assert.Equal(t, 0, ds.ApprovedItems)

	// Quality score is not recomputed.
	stored, err := f.store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, f.items[0].QualityScore, stored.QualityScore)
}

func TestEdit_NoChangesRejected(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	same := f.items[0].Instruction
	_, _, err := f.service.Edit(ctx, f.items[0].ID, "", "", FieldUpdates{Instruction: &same})
	require.Error(t, err)
	assert.True(t, fault.IsInvalid(err))
}

func TestEdit_AllowedOnTerminalItem(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	_, _, err := f.service.Approve(ctx, f.items[0].ID, "reviewer-1", "")
	require.NoError(t, err)

	fixed := "Corrected after approval."
	item, _, err := f.service.Edit(ctx, f.items[0].ID, "reviewer-1", "typo", FieldUpdates{
		Explanation: &fixed,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusApproved, item.Status)
	assert.Equal(t, fixed, item.Explanation)
}

func TestListPending_OrderedAndFiltered(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()

	_, _, err := f.service.Approve(ctx, f.items[1].ID, "reviewer-1", "")
	require.NoError(t, err)

	pending, err := f.service.ListPending(ctx, f.dataset.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, it := range pending {
		assert.Equal(t, model.ItemStatusPending, it.Status)
	}

	all, err := f.service.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
