package store

import (
	"context"

	"github.com/sells-group/curation-cli/internal/model"
)

// SegmentFilter specifies criteria for listing segments. Zero-valued fields
// are ignored. Results are ordered by position ascending.
type SegmentFilter struct {
	DomainID    string `json:"domain_id,omitempty"`
	DocumentID  string `json:"document_id,omitempty"`
	UseCase     string `json:"use_case,omitempty"`
	SegmentType string `json:"segment_type,omitempty"`
}

// ItemFilter specifies criteria for listing dataset items. Results are
// ordered by creation time ascending.
type ItemFilter struct {
	DatasetID string           `json:"dataset_id,omitempty"`
	Status    model.ItemStatus `json:"status,omitempty"`
	Limit     int              `json:"limit,omitempty"`
	Offset    int              `json:"offset,omitempty"`
}

// CounterDelta describes a relative adjustment to a dataset's review
// counters. The pending decrement is floored at zero by the store so the
// counter can never go negative, whatever the caller hands in.
type CounterDelta struct {
	Pending  int
	Approved int
	Rejected int
}

// Store defines the persistence interface for the curation pipeline.
//
// CommitGeneration and CommitReview are the only multi-row mutations; each
// executes as a single atomic unit so partial application (items without
// counters, a review record without the status change) is never observable.
type Store interface {
	// Segments
	CreateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error)
	GetSegment(ctx context.Context, segmentID string) (*model.Segment, error)
	ListSegments(ctx context.Context, filter SegmentFilter) ([]model.Segment, error)

	// Generation templates
	CreateTemplate(ctx context.Context, tmpl model.GenerationTemplate) (*model.GenerationTemplate, error)
	GetTemplate(ctx context.Context, templateID string) (*model.GenerationTemplate, error)

	// Datasets
	CreateDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error)
	GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error)
	UpdateDatasetStatus(ctx context.Context, datasetID string, status model.DatasetStatus) error

	// Items
	GetItem(ctx context.Context, itemID string) (*model.DatasetItem, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]model.DatasetItem, error)

	// CommitGeneration inserts a run's generated items, overwrites the
	// dataset's total/pending counters with the run's item count, and sets
	// the dataset status to ready, all in one transaction.
	CommitGeneration(ctx context.Context, datasetID string, items []model.DatasetItem) ([]model.DatasetItem, error)

	// CommitReview persists one review action atomically: the item row
	// update, the optional counter delta on the owning dataset, and the
	// append-only review record. A nil delta leaves the counters alone
	// (edit actions). The item update only applies while the row still has
	// status expect, which serializes concurrent reviews of the same item;
	// a lost race fails the whole transaction with an invalid fault.
	CommitReview(ctx context.Context, item *model.DatasetItem, expect model.ItemStatus, delta *CounterDelta, review model.DatasetReview) (*model.DatasetReview, error)

	// Exports
	NextExportVersion(ctx context.Context, datasetID string) (int, error)
	CreateExport(ctx context.Context, exp model.DatasetExport) (*model.DatasetExport, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
