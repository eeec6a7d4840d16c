package model

import "time"

// ItemStatus represents the review state of a dataset item.
// pending_review is the initial state; approved and rejected are terminal.
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "pending_review"
	ItemStatusApproved ItemStatus = "approved"
	ItemStatusRejected ItemStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusApproved || s == ItemStatusRejected
}

// DatasetItem is one generated instruction/response training candidate.
// The segment reference is weak: the item survives if its segment is later
// detached or deleted. Items are created by the generation orchestrator and
// mutated only by the review state machine afterwards.
type DatasetItem struct {
	ID             string     `json:"id"`
	DatasetID      string     `json:"dataset_id"`
	SegmentID      string     `json:"segment_id,omitempty"`
	SourceProvider string     `json:"source_provider,omitempty"`
	Instruction    string     `json:"instruction"`
	InputText      string     `json:"input_text,omitempty"`
	IdealResponse  string     `json:"ideal_response"`
	BadResponse    string     `json:"bad_response,omitempty"`
	Explanation    string     `json:"explanation,omitempty"`
	Status         ItemStatus `json:"status"`
	QualityScore   float64    `json:"quality_score"`
	QualityFlags   []string   `json:"quality_flags,omitempty"`
	Metadata       Metadata   `json:"metadata,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
