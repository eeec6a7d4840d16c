package model

import "time"

// ExportStatus represents the state of a dataset export.
type ExportStatus string

const (
	ExportStatusPending   ExportStatus = "pending"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusFailed    ExportStatus = "failed"
)

// DatasetExport records one JSONL export of a dataset to blob storage.
// Versions count up per dataset.
type DatasetExport struct {
	ID             string       `json:"id"`
	DatasetID      string       `json:"dataset_id"`
	ExportVersion  int          `json:"export_version"`
	Format         string       `json:"format"`
	BlobKey        string       `json:"blob_key"`
	Status         ExportStatus `json:"status"`
	ItemCount      int          `json:"item_count"`
	FiltersApplied Metadata     `json:"filters_applied,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
