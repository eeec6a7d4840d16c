package model

import "time"

// Segment is an atomic unit of extracted source text used as generation
// input. Immutable once created; owned by its domain and referenced (not
// owned) by generated items.
type Segment struct {
	ID                string    `json:"id"`
	DomainID          string    `json:"domain_id"`
	DocumentID        string    `json:"document_id,omitempty"`
	DocumentVersionID string    `json:"document_version_id,omitempty"`
	UseCase           string    `json:"use_case,omitempty"`
	SegmentType       string    `json:"segment_type"`
	Content           string    `json:"content"`
	Position          int       `json:"position"`
	Metadata          Metadata  `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
