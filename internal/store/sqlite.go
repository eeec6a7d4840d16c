package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS segments (
	id                  TEXT PRIMARY KEY,
	domain_id           TEXT NOT NULL,
	document_id         TEXT,
	document_version_id TEXT,
	use_case            TEXT,
	segment_type        TEXT NOT NULL,
	content             TEXT NOT NULL,
	position            INTEGER NOT NULL DEFAULT 0,
	metadata            TEXT NOT NULL DEFAULT '{}',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS generation_templates (
	id                   TEXT PRIMARY KEY,
	domain_id            TEXT NOT NULL,
	use_case             TEXT,
	name                 TEXT NOT NULL,
	system_prompt        TEXT NOT NULL,
	user_prompt_template TEXT NOT NULL,
	target_model_family  TEXT,
	config               TEXT NOT NULL DEFAULT '{}',
	is_active            INTEGER NOT NULL DEFAULT 1,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS datasets (
	id                  TEXT PRIMARY KEY,
	domain_id           TEXT NOT NULL,
	template_id         TEXT REFERENCES generation_templates(id) ON DELETE SET NULL,
	use_case            TEXT,
	name                TEXT NOT NULL,
	description         TEXT,
	provider            TEXT NOT NULL,
	target_model_family TEXT,
	status              TEXT NOT NULL DEFAULT 'draft',
	version             INTEGER NOT NULL DEFAULT 1,
	generation_config   TEXT NOT NULL DEFAULT '{}',
	segment_filter      TEXT NOT NULL DEFAULT '{}',
	total_items         INTEGER NOT NULL DEFAULT 0,
	approved_items      INTEGER NOT NULL DEFAULT 0,
	rejected_items      INTEGER NOT NULL DEFAULT 0,
	pending_items       INTEGER NOT NULL DEFAULT 0,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_items (
	id              TEXT PRIMARY KEY,
	dataset_id      TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	segment_id      TEXT REFERENCES segments(id) ON DELETE SET NULL,
	source_provider TEXT,
	instruction     TEXT NOT NULL,
	input_text      TEXT,
	ideal_response  TEXT NOT NULL,
	bad_response    TEXT,
	explanation     TEXT,
	status          TEXT NOT NULL DEFAULT 'pending_review',
	quality_score   REAL NOT NULL DEFAULT 0,
	quality_flags   TEXT NOT NULL DEFAULT '[]',
	metadata        TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_reviews (
	id              TEXT PRIMARY KEY,
	dataset_item_id TEXT NOT NULL REFERENCES dataset_items(id) ON DELETE CASCADE,
	action          TEXT NOT NULL,
	reviewer_id     TEXT,
	justification   TEXT,
	previous_values TEXT,
	new_values      TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dataset_exports (
	id              TEXT PRIMARY KEY,
	dataset_id      TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	export_version  INTEGER NOT NULL,
	format          TEXT NOT NULL,
	blob_key        TEXT NOT NULL,
	status          TEXT NOT NULL,
	item_count      INTEGER NOT NULL DEFAULT 0,
	filters_applied TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_segments_domain ON segments(domain_id);
CREATE INDEX IF NOT EXISTS idx_segments_document ON segments(document_id);
CREATE INDEX IF NOT EXISTS idx_dataset_items_dataset ON dataset_items(dataset_id);
CREATE INDEX IF NOT EXISTS idx_dataset_items_status ON dataset_items(status);
CREATE INDEX IF NOT EXISTS idx_dataset_reviews_item ON dataset_reviews(dataset_item_id);
CREATE INDEX IF NOT EXISTS idx_dataset_exports_dataset ON dataset_exports(dataset_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.ID == "" {
			seg.ID = uuid.New().String()
		}
		seg.CreatedAt = now

		metaJSON, err := marshalMeta(seg.Metadata)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO segments (id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seg.ID, seg.DomainID, nullable(seg.DocumentID), nullable(seg.DocumentVersionID),
			nullable(seg.UseCase), seg.SegmentType, seg.Content, seg.Position, metaJSON, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert segment")
		}
		out = append(out, seg)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit segments")
	}
	return out, nil
}

func (s *SQLiteStore) GetSegment(ctx context.Context, segmentID string) (*model.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at
		 FROM segments WHERE id = ?`,
		segmentID,
	)
	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("segment", segmentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get segment %s", segmentID)
	}
	return seg, nil
}

func (s *SQLiteStore) ListSegments(ctx context.Context, filter SegmentFilter) ([]model.Segment, error) {
	query := `SELECT id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at
		 FROM segments WHERE 1=1`
	var args []any

	if filter.DomainID != "" {
		query += ` AND domain_id = ?`
		args = append(args, filter.DomainID)
	}
	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	if filter.UseCase != "" {
		query += ` AND use_case = ?`
		args = append(args, filter.UseCase)
	}
	if filter.SegmentType != "" {
		query += ` AND segment_type = ?`
		args = append(args, filter.SegmentType)
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list segments")
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan segment")
		}
		segments = append(segments, *seg)
	}
	return segments, eris.Wrap(rows.Err(), "sqlite: list segments iterate")
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, tmpl model.GenerationTemplate) (*model.GenerationTemplate, error) {
	if tmpl.ID == "" {
		tmpl.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	cfgJSON, err := marshalMeta(tmpl.Config)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generation_templates (id, domain_id, use_case, name, system_prompt, user_prompt_template, target_model_family, config, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID, tmpl.DomainID, nullable(tmpl.UseCase), tmpl.Name, tmpl.SystemPrompt,
		tmpl.UserPromptTemplate, nullable(tmpl.TargetModelFamily), cfgJSON, tmpl.IsActive, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert template")
	}
	return &tmpl, nil
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, templateID string) (*model.GenerationTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain_id, use_case, name, system_prompt, user_prompt_template, target_model_family, config, is_active, created_at, updated_at
		 FROM generation_templates WHERE id = ?`,
		templateID,
	)

	var t model.GenerationTemplate
	var useCase, family sql.NullString
	var cfgJSON string
	err := row.Scan(&t.ID, &t.DomainID, &useCase, &t.Name, &t.SystemPrompt,
		&t.UserPromptTemplate, &family, &cfgJSON, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("template", templateID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get template %s", templateID)
	}
	t.UseCase = useCase.String
	t.TargetModelFamily = family.String
	if t.Config, err = unmarshalMeta(cfgJSON); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error) {
	if ds.ID == "" {
		ds.ID = uuid.New().String()
	}
	if ds.Status == "" {
		ds.Status = model.DatasetStatusDraft
	}
	if ds.Version == 0 {
		ds.Version = 1
	}
	now := time.Now().UTC()
	ds.CreatedAt = now
	ds.UpdatedAt = now

	cfgJSON, err := marshalMeta(ds.GenerationConfig)
	if err != nil {
		return nil, err
	}
	filterJSON, err := marshalMeta(ds.SegmentFilter)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, domain_id, template_id, use_case, name, description, provider, target_model_family, status, version, generation_config, segment_filter, total_items, approved_items, rejected_items, pending_items, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.DomainID, nullable(ds.TemplateID), nullable(ds.UseCase), ds.Name,
		nullable(ds.Description), ds.Provider, nullable(ds.TargetModelFamily), string(ds.Status),
		ds.Version, cfgJSON, filterJSON,
		ds.TotalItems, ds.ApprovedItems, ds.RejectedItems, ds.PendingItems, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert dataset")
	}
	return &ds, nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain_id, template_id, use_case, name, description, provider, target_model_family, status, version, generation_config, segment_filter, total_items, approved_items, rejected_items, pending_items, created_at, updated_at
		 FROM datasets WHERE id = ?`,
		datasetID,
	)
	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("dataset", datasetID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", datasetID)
	}
	return ds, nil
}

func (s *SQLiteStore) UpdateDatasetStatus(ctx context.Context, datasetID string, status model.DatasetStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE datasets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), datasetID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update dataset status %s", datasetID)
	}
	return checkRowsAffected(res, "dataset", datasetID)
}

func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*model.DatasetItem, error) {
	row := s.db.QueryRowContext(ctx, selectItemSQL+` WHERE id = ?`, itemID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fault.NotFound("dataset item", itemID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get item %s", itemID)
	}
	return item, nil
}

const selectItemSQL = `SELECT id, dataset_id, segment_id, source_provider, instruction, input_text, ideal_response, bad_response, explanation, status, quality_score, quality_flags, metadata, created_at, updated_at FROM dataset_items`

func (s *SQLiteStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.DatasetItem, error) {
	query := selectItemSQL + ` WHERE 1=1`
	var args []any

	if filter.DatasetID != "" {
		query += ` AND dataset_id = ?`
		args = append(args, filter.DatasetID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	var items []model.DatasetItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) CommitGeneration(ctx context.Context, datasetID string, items []model.DatasetItem) ([]model.DatasetItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	out := make([]model.DatasetItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.DatasetID = datasetID
		item.CreatedAt = now
		item.UpdatedAt = now

		flagsJSON, err := json.Marshal(item.QualityFlags)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal quality flags")
		}
		metaJSON, err := marshalMeta(item.Metadata)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO dataset_items (id, dataset_id, segment_id, source_provider, instruction, input_text, ideal_response, bad_response, explanation, status, quality_score, quality_flags, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, datasetID, nullable(item.SegmentID), nullable(item.SourceProvider),
			item.Instruction, nullable(item.InputText), item.IdealResponse,
			nullable(item.BadResponse), nullable(item.Explanation), string(item.Status),
			item.QualityScore, string(flagsJSON), metaJSON, now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert item")
		}
		out = append(out, item)
	}

	// Full overwrite of total/pending: repeated runs replace the prior count.
	res, err := tx.ExecContext(ctx,
		`UPDATE datasets SET total_items = ?, pending_items = ?, status = ?, updated_at = ? WHERE id = ?`,
		len(items), len(items), string(model.DatasetStatusReady), now, datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: finalize generation %s", datasetID)
	}
	if err := checkRowsAffected(res, "dataset", datasetID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit generation")
	}
	return out, nil
}

func (s *SQLiteStore) CommitReview(ctx context.Context, item *model.DatasetItem, expect model.ItemStatus, delta *CounterDelta, review model.DatasetReview) (*model.DatasetReview, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		`UPDATE dataset_items SET instruction = ?, input_text = ?, ideal_response = ?, bad_response = ?, explanation = ?, status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		item.Instruction, nullable(item.InputText), item.IdealResponse,
		nullable(item.BadResponse), nullable(item.Explanation), string(item.Status), now, item.ID, string(expect),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update item %s", item.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return nil, fault.Invalid("dataset item %q was reviewed concurrently or no longer exists", item.ID)
	}

	if delta != nil {
		// Pending is floored at zero: going negative would mean the counters
		// were already inconsistent, and the clamp keeps the damage contained.
		if delta.Pending < 0 {
			var pending int
			err := tx.QueryRowContext(ctx, `SELECT pending_items FROM datasets WHERE id = ?`, item.DatasetID).Scan(&pending)
			if err == nil && pending+delta.Pending < 0 {
				zap.L().Warn("pending counter floored at zero",
					zap.String("dataset_id", item.DatasetID),
					zap.Int("pending_items", pending),
				)
			}
		}
		res, err = tx.ExecContext(ctx,
			`UPDATE datasets SET
				pending_items  = MAX(pending_items + ?, 0),
				approved_items = approved_items + ?,
				rejected_items = rejected_items + ?,
				updated_at     = ?
			 WHERE id = ?`,
			delta.Pending, delta.Approved, delta.Rejected, now, item.DatasetID,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: update counters %s", item.DatasetID)
		}
		if err := checkRowsAffected(res, "dataset", item.DatasetID); err != nil {
			return nil, err
		}
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.DatasetItemID = item.ID
	review.CreatedAt = now

	prevJSON, err := marshalSnapshot(review.PreviousValues)
	if err != nil {
		return nil, err
	}
	newJSON, err := marshalSnapshot(review.NewValues)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dataset_reviews (id, dataset_item_id, action, reviewer_id, justification, previous_values, new_values, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.DatasetItemID, string(review.Action), nullable(review.ReviewerID),
		nullable(review.Justification), prevJSON, newJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert review")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit review")
	}
	return &review, nil
}

func (s *SQLiteStore) NextExportVersion(ctx context.Context, datasetID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(export_version), 0) FROM dataset_exports WHERE dataset_id = ?`,
		datasetID,
	)
	var last int
	if err := row.Scan(&last); err != nil {
		return 0, eris.Wrapf(err, "sqlite: next export version %s", datasetID)
	}
	return last + 1, nil
}

func (s *SQLiteStore) CreateExport(ctx context.Context, exp model.DatasetExport) (*model.DatasetExport, error) {
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	exp.CreatedAt = time.Now().UTC()

	filtersJSON, err := marshalMeta(exp.FiltersApplied)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dataset_exports (id, dataset_id, export_version, format, blob_key, status, item_count, filters_applied, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.DatasetID, exp.ExportVersion, exp.Format, exp.BlobKey,
		string(exp.Status), exp.ItemCount, filtersJSON, exp.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert export")
	}
	return &exp, nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*model.Segment, error) {
	var seg model.Segment
	var docID, docVerID, useCase sql.NullString
	var metaJSON string
	err := row.Scan(&seg.ID, &seg.DomainID, &docID, &docVerID, &useCase,
		&seg.SegmentType, &seg.Content, &seg.Position, &metaJSON, &seg.CreatedAt)
	if err != nil {
		return nil, err
	}
	seg.DocumentID = docID.String
	seg.DocumentVersionID = docVerID.String
	seg.UseCase = useCase.String
	if seg.Metadata, err = unmarshalMeta(metaJSON); err != nil {
		return nil, err
	}
	return &seg, nil
}

func scanDataset(row rowScanner) (*model.Dataset, error) {
	var ds model.Dataset
	var templateID, useCase, description, family sql.NullString
	var status, cfgJSON, filterJSON string
	err := row.Scan(&ds.ID, &ds.DomainID, &templateID, &useCase, &ds.Name, &description,
		&ds.Provider, &family, &status, &ds.Version, &cfgJSON, &filterJSON,
		&ds.TotalItems, &ds.ApprovedItems, &ds.RejectedItems, &ds.PendingItems,
		&ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ds.TemplateID = templateID.String
	ds.UseCase = useCase.String
	ds.Description = description.String
	ds.TargetModelFamily = family.String
	ds.Status = model.DatasetStatus(status)
	if ds.GenerationConfig, err = unmarshalMeta(cfgJSON); err != nil {
		return nil, err
	}
	if ds.SegmentFilter, err = unmarshalMeta(filterJSON); err != nil {
		return nil, err
	}
	return &ds, nil
}

func scanItem(row rowScanner) (*model.DatasetItem, error) {
	var item model.DatasetItem
	var segmentID, provider, inputText, badResponse, explanation sql.NullString
	var status, flagsJSON, metaJSON string
	err := row.Scan(&item.ID, &item.DatasetID, &segmentID, &provider, &item.Instruction,
		&inputText, &item.IdealResponse, &badResponse, &explanation, &status,
		&item.QualityScore, &flagsJSON, &metaJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.SegmentID = segmentID.String
	item.SourceProvider = provider.String
	item.InputText = inputText.String
	item.BadResponse = badResponse.String
	item.Explanation = explanation.String
	item.Status = model.ItemStatus(status)
	if err := json.Unmarshal([]byte(flagsJSON), &item.QualityFlags); err != nil {
		return nil, eris.Wrap(err, "unmarshal quality flags")
	}
	if item.Metadata, err = unmarshalMeta(metaJSON); err != nil {
		return nil, err
	}
	return &item, nil
}

func marshalMeta(m model.Metadata) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", eris.Wrap(err, "marshal metadata")
	}
	return string(b), nil
}

func unmarshalMeta(s string) (model.Metadata, error) {
	if s == "" {
		return model.Metadata{}, nil
	}
	var m model.Metadata
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, eris.Wrap(err, "unmarshal metadata")
	}
	return m, nil
}

func marshalSnapshot(values map[string]string) (any, error) {
	if values == nil {
		return nil, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, eris.Wrap(err, "marshal snapshot")
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return fault.NotFound(entity, id)
	}
	return nil
}
