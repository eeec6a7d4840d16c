// Package export projects reviewed dataset items into JSONL training files
// and records each export against its dataset.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/blob"
	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/store"
)

// FormatMessages is the chat-format JSONL projection, one
// {"messages":[...]} object per line.
const FormatMessages = "messages"

// Options selects what goes into an export.
type Options struct {
	// ApprovedOnly restricts the export to approved items. When false,
	// every item in the dataset is exported regardless of review status.
	ApprovedOnly bool
}

// message is one chat turn in a training record.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// record is one JSONL line.
type record struct {
	Messages []message `json:"messages"`
}

// Exporter writes dataset exports through blob storage.
type Exporter struct {
	store   store.Store
	storage blob.Storage
}

// New creates an Exporter.
func New(st store.Store, storage blob.Storage) *Exporter {
	return &Exporter{store: st, storage: storage}
}

// Run exports a dataset: select items, project to JSONL, write the blob,
// and persist the export record at the next version for the dataset. The
// dataset is marked exported on success.
func (e *Exporter) Run(ctx context.Context, datasetID string, opts Options) (*model.DatasetExport, error) {
	ds, err := e.store.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	items, err := e.selectItems(ctx, ds.ID, opts)
	if err != nil {
		return nil, err
	}

	data, err := Project(items)
	if err != nil {
		return nil, err
	}

	version, err := e.store.NextExportVersion(ctx, ds.ID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/v%d.jsonl", ds.ID, version)
	if err := e.storage.Put(ctx, key, data); err != nil {
		return nil, err
	}

	exp, err := e.store.CreateExport(ctx, model.DatasetExport{
		ID:            uuid.NewString(),
		DatasetID:     ds.ID,
		ExportVersion: version,
		Format:        FormatMessages,
		BlobKey:       key,
		Status:        model.ExportStatusCompleted,
		ItemCount:     len(items),
		FiltersApplied: model.Metadata{
			"approved_only": opts.ApprovedOnly,
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := e.store.UpdateDatasetStatus(ctx, ds.ID, model.DatasetStatusExported); err != nil {
		return nil, err
	}

	zap.L().Info("dataset exported",
		zap.String("dataset_id", ds.ID),
		zap.Int("version", version),
		zap.Int("items", len(items)),
		zap.String("blob_key", key),
	)
	return exp, nil
}

func (e *Exporter) selectItems(ctx context.Context, datasetID string, opts Options) ([]model.DatasetItem, error) {
	filter := store.ItemFilter{DatasetID: datasetID}
	if opts.ApprovedOnly {
		filter.Status = model.ItemStatusApproved
	}
	return e.store.ListItems(ctx, filter)
}

// Project renders items as messages-format JSONL. A non-empty instruction
// becomes the system turn; the user turn carries the input text when present
// and otherwise repeats the instruction; the assistant turn is the ideal
// response.
func Project(items []model.DatasetItem) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, it := range items {
		user := it.InputText
		if user == "" {
			user = it.Instruction
		}
		var msgs []message
		if it.Instruction != "" {
			msgs = append(msgs, message{Role: "system", Content: it.Instruction})
		}
		msgs = append(msgs,
			message{Role: "user", Content: user},
			message{Role: "assistant", Content: it.IdealResponse},
		)
		rec := record{Messages: msgs}
		if err := enc.Encode(rec); err != nil {
			return nil, eris.Wrap(err, "export: encode record")
		}
	}
	return buf.Bytes(), nil
}
