// Package model defines the entities of the dataset-curation pipeline.
package model

import "time"

// DatasetStatus represents the lifecycle state of a dataset.
type DatasetStatus string

const (
	DatasetStatusDraft      DatasetStatus = "draft"
	DatasetStatusGenerating DatasetStatus = "generating"
	DatasetStatusReady      DatasetStatus = "ready"
	DatasetStatusExported   DatasetStatus = "exported"
)

// Metadata is a free-form JSON object attached to several entities. Known keys
// are validated where they are read; unknown keys pass through untouched.
type Metadata map[string]any

// SegmentType returns segment_filter's "segment_type" key if present and a
// string, along with whether it was set at all.
func (m Metadata) SegmentType() (string, bool) {
	v, ok := m["segment_type"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Dataset is the aggregate root for one generation run: a collection of
// training items tied to a domain and a provider.
//
// The four counters satisfy total == approved + rejected + pending after
// every completed mutation. Counters are written only by the generation
// orchestrator's finalize step and the review state machine.
type Dataset struct {
	ID                string        `json:"id"`
	DomainID          string        `json:"domain_id"`
	TemplateID        string        `json:"template_id,omitempty"`
	UseCase           string        `json:"use_case,omitempty"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	Provider          string        `json:"provider"`
	TargetModelFamily string        `json:"target_model_family,omitempty"`
	Status            DatasetStatus `json:"status"`
	Version           int           `json:"version"`
	GenerationConfig  Metadata      `json:"generation_config,omitempty"`
	SegmentFilter     Metadata      `json:"segment_filter,omitempty"`
	TotalItems        int           `json:"total_items"`
	ApprovedItems     int           `json:"approved_items"`
	RejectedItems     int           `json:"rejected_items"`
	PendingItems      int           `json:"pending_items"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// CountersConsistent reports whether the counter invariant holds.
func (d *Dataset) CountersConsistent() bool {
	return d.TotalItems == d.ApprovedItems+d.RejectedItems+d.PendingItems
}
