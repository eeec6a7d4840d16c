package model

import "time"

// ReviewAction identifies what a reviewer did to an item.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionReject  ReviewAction = "reject"
	ReviewActionEdit    ReviewAction = "edit"
)

// DatasetReview is an append-only audit record of one review action.
// PreviousValues and NewValues snapshot only the fields the action touched.
// Reviews are never updated or deleted except by cascading deletion of the
// parent item.
type DatasetReview struct {
	ID             string            `json:"id"`
	DatasetItemID  string            `json:"dataset_item_id"`
	Action         ReviewAction      `json:"action"`
	ReviewerID     string            `json:"reviewer_id,omitempty"`
	Justification  string            `json:"justification,omitempty"`
	PreviousValues map[string]string `json:"previous_values,omitempty"`
	NewValues      map[string]string `json:"new_values,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
