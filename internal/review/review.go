// Package review implements the item review state machine: pending_review
// transitions to approved or rejected, both terminal; edit rewrites content
// in any state without touching status or counters. Every action commits the
// item change, the counter delta, and the audit record as one atomic unit.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/store"
)

// FieldUpdates carries the subset of item content fields an edit replaces.
// A nil pointer leaves the field alone; a pointer to "" clears it.
type FieldUpdates struct {
	Instruction   *string
	InputText     *string
	IdealResponse *string
	BadResponse   *string
	Explanation   *string
}

// Service applies review actions against one store.
type Service struct {
	store store.Store
}

// NewService creates a review Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Approve moves a pending item to approved, shifting one unit from the
// dataset's pending counter to its approved counter. Returns the updated
// item and the audit record of the decision.
func (s *Service) Approve(ctx context.Context, itemID, reviewerID, justification string) (*model.DatasetItem, *model.DatasetReview, error) {
	return s.decide(ctx, itemID, reviewerID, justification, model.ItemStatusApproved)
}

// Reject moves a pending item to rejected. Justification is required.
func (s *Service) Reject(ctx context.Context, itemID, reviewerID, justification string) (*model.DatasetItem, *model.DatasetReview, error) {
	if justification == "" {
		return nil, nil, fault.Invalid("justification is required to reject an item")
	}
	return s.decide(ctx, itemID, reviewerID, justification, model.ItemStatusRejected)
}

func (s *Service) decide(ctx context.Context, itemID, reviewerID, justification string, target model.ItemStatus) (*model.DatasetItem, *model.DatasetReview, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item.Status.Terminal() {
		return nil, nil, fault.Invalid("dataset item %q was already reviewed (status %s)", item.ID, item.Status)
	}

	prior := item.Status
	action := model.ReviewActionApprove
	delta := &store.CounterDelta{Pending: -1, Approved: 1}
	if target == model.ItemStatusRejected {
		action = model.ReviewActionReject
		delta = &store.CounterDelta{Pending: -1, Rejected: 1}
	}

	item.Status = target
	item.UpdatedAt = time.Now().UTC()

	rev, err := s.store.CommitReview(ctx, item, prior, delta, model.DatasetReview{
		ID:             uuid.NewString(),
		DatasetItemID:  item.ID,
		Action:         action,
		ReviewerID:     reviewerID,
		Justification:  justification,
		PreviousValues: map[string]string{"status": string(prior)},
		NewValues:      map[string]string{"status": string(target)},
		CreatedAt:      item.UpdatedAt,
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("item reviewed",
		zap.String("item_id", item.ID),
		zap.String("dataset_id", item.DatasetID),
		zap.String("action", string(action)),
		zap.String("review_id", rev.ID),
	)
	return item, rev, nil
}

// Edit replaces the supplied content fields on an item in any state. Only
// the fields actually changing are snapshotted into the audit record. The
// quality score is not recomputed; edited content stands as written.
func (s *Service) Edit(ctx context.Context, itemID, reviewerID, justification string, updates FieldUpdates) (*model.DatasetItem, *model.DatasetReview, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	prev := map[string]string{}
	next := map[string]string{}
	apply := func(name string, field *string, update *string) {
		if update == nil || *update == *field {
			return
		}
		prev[name] = *field
		next[name] = *update
		*field = *update
	}
	apply("instruction", &item.Instruction, updates.Instruction)
	apply("input_text", &item.InputText, updates.InputText)
	apply("ideal_response", &item.IdealResponse, updates.IdealResponse)
	apply("bad_response", &item.BadResponse, updates.BadResponse)
	apply("explanation", &item.Explanation, updates.Explanation)

	if len(next) == 0 {
		return nil, nil, fault.Invalid("edit must change at least one field")
	}

	prior := item.Status
	item.UpdatedAt = time.Now().UTC()

	rev, err := s.store.CommitReview(ctx, item, prior, nil, model.DatasetReview{
		ID:             uuid.NewString(),
		DatasetItemID:  item.ID,
		Action:         model.ReviewActionEdit,
		ReviewerID:     reviewerID,
		Justification:  justification,
		PreviousValues: prev,
		NewValues:      next,
		CreatedAt:      item.UpdatedAt,
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("item edited",
		zap.String("item_id", item.ID),
		zap.Int("fields_changed", len(next)),
	)
	return item, rev, nil
}

// ListPending returns items awaiting review ordered by creation time
// ascending, optionally limited to one dataset.
func (s *Service) ListPending(ctx context.Context, datasetID string) ([]model.DatasetItem, error) {
	return s.store.ListItems(ctx, store.ItemFilter{
		DatasetID: datasetID,
		Status:    model.ItemStatusPending,
	})
}
