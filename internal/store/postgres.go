package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/db"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// copyThreshold is the segment count above which CreateSegments switches
// from row-at-a-time inserts to the COPY protocol.
const copyThreshold = 50

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS segments (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain_id           TEXT NOT NULL,
	document_id         TEXT,
	document_version_id TEXT,
	use_case            TEXT,
	segment_type        TEXT NOT NULL,
	content             TEXT NOT NULL,
	position            INTEGER NOT NULL DEFAULT 0,
	metadata            JSONB NOT NULL DEFAULT '{}',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS generation_templates (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain_id            TEXT NOT NULL,
	use_case             TEXT,
	name                 TEXT NOT NULL,
	system_prompt        TEXT NOT NULL,
	user_prompt_template TEXT NOT NULL,
	target_model_family  TEXT,
	config               JSONB NOT NULL DEFAULT '{}',
	is_active            BOOLEAN NOT NULL DEFAULT true,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS datasets (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain_id           TEXT NOT NULL,
	template_id         TEXT REFERENCES generation_templates(id) ON DELETE SET NULL,
	use_case            TEXT,
	name                TEXT NOT NULL,
	description         TEXT,
	provider            TEXT NOT NULL,
	target_model_family TEXT,
	status              TEXT NOT NULL DEFAULT 'draft',
	version             INTEGER NOT NULL DEFAULT 1,
	generation_config   JSONB NOT NULL DEFAULT '{}',
	segment_filter      JSONB NOT NULL DEFAULT '{}',
	total_items         INTEGER NOT NULL DEFAULT 0,
	approved_items      INTEGER NOT NULL DEFAULT 0,
	rejected_items      INTEGER NOT NULL DEFAULT 0,
	pending_items       INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_items (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_id      TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	segment_id      TEXT REFERENCES segments(id) ON DELETE SET NULL,
	source_provider TEXT,
	instruction     TEXT NOT NULL,
	input_text      TEXT,
	ideal_response  TEXT NOT NULL,
	bad_response    TEXT,
	explanation     TEXT,
	status          TEXT NOT NULL DEFAULT 'pending_review',
	quality_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_flags   JSONB NOT NULL DEFAULT '[]',
	metadata        JSONB NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_reviews (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_item_id TEXT NOT NULL REFERENCES dataset_items(id) ON DELETE CASCADE,
	action          TEXT NOT NULL,
	reviewer_id     TEXT,
	justification   TEXT,
	previous_values JSONB,
	new_values      JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dataset_exports (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset_id      TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	export_version  INTEGER NOT NULL,
	format          TEXT NOT NULL,
	blob_key        TEXT NOT NULL,
	status          TEXT NOT NULL,
	item_count      INTEGER NOT NULL DEFAULT 0,
	filters_applied JSONB NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_segments_domain ON segments(domain_id);
CREATE INDEX IF NOT EXISTS idx_segments_document ON segments(document_id);
CREATE INDEX IF NOT EXISTS idx_dataset_items_dataset ON dataset_items(dataset_id);
CREATE INDEX IF NOT EXISTS idx_dataset_items_status ON dataset_items(status);
CREATE INDEX IF NOT EXISTS idx_dataset_reviews_item ON dataset_reviews(dataset_item_id);
CREATE INDEX IF NOT EXISTS idx_dataset_exports_dataset ON dataset_exports(dataset_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateSegments(ctx context.Context, segments []model.Segment) ([]model.Segment, error) {
	now := time.Now().UTC()
	out := make([]model.Segment, 0, len(segments))
	for i := range segments {
		seg := segments[i]
		if seg.ID == "" {
			seg.ID = uuid.New().String()
		}
		seg.CreatedAt = now
		out = append(out, seg)
	}

	if len(out) >= copyThreshold {
		rows := make([][]any, 0, len(out))
		for _, seg := range out {
			metaJSON, err := marshalMeta(seg.Metadata)
			if err != nil {
				return nil, err
			}
			rows = append(rows, []any{
				seg.ID, seg.DomainID, pgNullable(seg.DocumentID), pgNullable(seg.DocumentVersionID),
				pgNullable(seg.UseCase), seg.SegmentType, seg.Content, seg.Position, metaJSON, now,
			})
		}
		_, err := db.CopyFrom(ctx, s.pool, "segments",
			[]string{"id", "domain_id", "document_id", "document_version_id", "use_case", "segment_type", "content", "position", "metadata", "created_at"},
			rows)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, seg := range out {
		metaJSON, err := marshalMeta(seg.Metadata)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO segments (id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			seg.ID, seg.DomainID, pgNullable(seg.DocumentID), pgNullable(seg.DocumentVersionID),
			pgNullable(seg.UseCase), seg.SegmentType, seg.Content, seg.Position, metaJSON, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: insert segment")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit segments")
	}
	return out, nil
}

func (s *PostgresStore) GetSegment(ctx context.Context, segmentID string) (*model.Segment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at
		 FROM segments WHERE id = $1`,
		segmentID,
	)
	seg, err := scanPgSegment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("segment", segmentID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get segment %s", segmentID)
	}
	return seg, nil
}

func (s *PostgresStore) ListSegments(ctx context.Context, filter SegmentFilter) ([]model.Segment, error) {
	query := `SELECT id, domain_id, document_id, document_version_id, use_case, segment_type, content, position, metadata, created_at
		 FROM segments WHERE 1=1`
	var args []any

	if filter.DomainID != "" {
		args = append(args, filter.DomainID)
		query += ` AND domain_id = $` + itoa(len(args))
	}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += ` AND document_id = $` + itoa(len(args))
	}
	if filter.UseCase != "" {
		args = append(args, filter.UseCase)
		query += ` AND use_case = $` + itoa(len(args))
	}
	if filter.SegmentType != "" {
		args = append(args, filter.SegmentType)
		query += ` AND segment_type = $` + itoa(len(args))
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list segments")
	}
	defer rows.Close()

	var segments []model.Segment
	for rows.Next() {
		seg, err := scanPgSegment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan segment")
		}
		segments = append(segments, *seg)
	}
	return segments, eris.Wrap(rows.Err(), "postgres: list segments iterate")
}

func (s *PostgresStore) CreateTemplate(ctx context.Context, tmpl model.GenerationTemplate) (*model.GenerationTemplate, error) {
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
	_, err = s.pool.Exec(ctx,
		`INSERT INTO generation_templates (id, domain_id, use_case, name, system_prompt, user_prompt_template, target_model_family, config, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tmpl.ID, tmpl.DomainID, pgNullable(tmpl.UseCase), tmpl.Name, tmpl.SystemPrompt,
		tmpl.UserPromptTemplate, pgNullable(tmpl.TargetModelFamily), cfgJSON, tmpl.IsActive, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert template")
	}
	return &tmpl, nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (*model.GenerationTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, domain_id, use_case, name, system_prompt, user_prompt_template, target_model_family, config, is_active, created_at, updated_at
		 FROM generation_templates WHERE id = $1`,
		templateID,
	)

	var t model.GenerationTemplate
	var useCase, family *string
	var cfgJSON []byte
	err := row.Scan(&t.ID, &t.DomainID, &useCase, &t.Name, &t.SystemPrompt,
		&t.UserPromptTemplate, &family, &cfgJSON, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("template", templateID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get template %s", templateID)
	}
	t.UseCase = deref(useCase)
	t.TargetModelFamily = deref(family)
	if t.Config, err = unmarshalMeta(string(cfgJSON)); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) CreateDataset(ctx context.Context, ds model.Dataset) (*model.Dataset, error) {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO datasets (id, domain_id, template_id, use_case, name, description, provider, target_model_family, status, version, generation_config, segment_filter, total_items, approved_items, rejected_items, pending_items, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		ds.ID, ds.DomainID, pgNullable(ds.TemplateID), pgNullable(ds.UseCase), ds.Name,
		pgNullable(ds.Description), ds.Provider, pgNullable(ds.TargetModelFamily), string(ds.Status),
		ds.Version, cfgJSON, filterJSON,
		ds.TotalItems, ds.ApprovedItems, ds.RejectedItems, ds.PendingItems, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert dataset")
	}
	return &ds, nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, domain_id, template_id, use_case, name, description, provider, target_model_family, status, version, generation_config, segment_filter, total_items, approved_items, rejected_items, pending_items, created_at, updated_at
		 FROM datasets WHERE id = $1`,
		datasetID,
	)
	ds, err := scanPgDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("dataset", datasetID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", datasetID)
	}
	return ds, nil
}

func (s *PostgresStore) UpdateDatasetStatus(ctx context.Context, datasetID string, status model.DatasetStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE datasets SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), datasetID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update dataset status %s", datasetID)
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("dataset", datasetID)
	}
	return nil
}

const selectPgItemSQL = `SELECT id, dataset_id, segment_id, source_provider, instruction, input_text, ideal_response, bad_response, explanation, status, quality_score, quality_flags, metadata, created_at, updated_at FROM dataset_items`

func (s *PostgresStore) GetItem(ctx context.Context, itemID string) (*model.DatasetItem, error) {
	row := s.pool.QueryRow(ctx, selectPgItemSQL+` WHERE id = $1`, itemID)
	item, err := scanPgItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("dataset item", itemID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item %s", itemID)
	}
	return item, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.DatasetItem, error) {
	query := selectPgItemSQL + ` WHERE 1=1`
	var args []any

	if filter.DatasetID != "" {
		args = append(args, filter.DatasetID)
		query += ` AND dataset_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += ` OFFSET $` + itoa(len(args))
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var items []model.DatasetItem
	for rows.Next() {
		item, err := scanPgItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) CommitGeneration(ctx context.Context, datasetID string, items []model.DatasetItem) ([]model.DatasetItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

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
			return nil, eris.Wrap(err, "postgres: marshal quality flags")
		}
		metaJSON, err := marshalMeta(item.Metadata)
		if err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO dataset_items (id, dataset_id, segment_id, source_provider, instruction, input_text, ideal_response, bad_response, explanation, status, quality_score, quality_flags, metadata, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			item.ID, datasetID, pgNullable(item.SegmentID), pgNullable(item.SourceProvider),
			item.Instruction, pgNullable(item.InputText), item.IdealResponse,
			pgNullable(item.BadResponse), pgNullable(item.Explanation), string(item.Status),
			item.QualityScore, string(flagsJSON), metaJSON, now, now,
		)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: insert item")
		}
		out = append(out, item)
	}

	// Full overwrite of total/pending: repeated runs replace the prior count.
	tag, err := tx.Exec(ctx,
		`UPDATE datasets SET total_items = $1, pending_items = $2, status = $3, updated_at = $4 WHERE id = $5`,
		len(items), len(items), string(model.DatasetStatusReady), now, datasetID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: finalize generation %s", datasetID)
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.NotFound("dataset", datasetID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit generation")
	}
	return out, nil
}

func (s *PostgresStore) CommitReview(ctx context.Context, item *model.DatasetItem, expect model.ItemStatus, delta *CounterDelta, review model.DatasetReview) (*model.DatasetReview, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	tag, err := tx.Exec(ctx,
		`UPDATE dataset_items SET instruction = $1, input_text = $2, ideal_response = $3, bad_response = $4, explanation = $5, status = $6, updated_at = $7 WHERE id = $8 AND status = $9`,
		item.Instruction, pgNullable(item.InputText), item.IdealResponse,
		pgNullable(item.BadResponse), pgNullable(item.Explanation), string(item.Status), now, item.ID, string(expect),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update item %s", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return nil, fault.Invalid("dataset item %q was reviewed concurrently or no longer exists", item.ID)
	}

	if delta != nil {
		if delta.Pending < 0 {
			var pending int
			qerr := tx.QueryRow(ctx, `SELECT pending_items FROM datasets WHERE id = $1`, item.DatasetID).Scan(&pending)
			if qerr == nil && pending+delta.Pending < 0 {
				zap.L().Warn("pending counter floored at zero",
					zap.String("dataset_id", item.DatasetID),
					zap.Int("pending_items", pending),
				)
			}
		}
		tag, err = tx.Exec(ctx,
			`UPDATE datasets SET
				pending_items  = GREATEST(pending_items + $1, 0),
				approved_items = approved_items + $2,
				rejected_items = rejected_items + $3,
				updated_at     = $4
			 WHERE id = $5`,
			delta.Pending, delta.Approved, delta.Rejected, now, item.DatasetID,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: update counters %s", item.DatasetID)
		}
		if tag.RowsAffected() == 0 {
			return nil, fault.NotFound("dataset", item.DatasetID)
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

	_, err = tx.Exec(ctx,
		`INSERT INTO dataset_reviews (id, dataset_item_id, action, reviewer_id, justification, previous_values, new_values, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.DatasetItemID, string(review.Action), pgNullable(review.ReviewerID),
		pgNullable(review.Justification), prevJSON, newJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert review")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit review")
	}
	return &review, nil
}

func (s *PostgresStore) NextExportVersion(ctx context.Context, datasetID string) (int, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(export_version), 0) FROM dataset_exports WHERE dataset_id = $1`,
		datasetID,
	)
	var last int
	if err := row.Scan(&last); err != nil {
		return 0, eris.Wrapf(err, "postgres: next export version %s", datasetID)
	}
	return last + 1, nil
}

func (s *PostgresStore) CreateExport(ctx context.Context, exp model.DatasetExport) (*model.DatasetExport, error) {
	if exp.ID == "" {
		exp.ID = uuid.New().String()
	}
	exp.CreatedAt = time.Now().UTC()

	filtersJSON, err := marshalMeta(exp.FiltersApplied)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO dataset_exports (id, dataset_id, export_version, format, blob_key, status, item_count, filters_applied, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		exp.ID, exp.DatasetID, exp.ExportVersion, exp.Format, exp.BlobKey,
		string(exp.Status), exp.ItemCount, filtersJSON, exp.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert export")
	}
	return &exp, nil
}

// --- scan helpers ---

func scanPgSegment(row pgx.Row) (*model.Segment, error) {
	var seg model.Segment
	var docID, docVerID, useCase *string
	var metaJSON []byte
	err := row.Scan(&seg.ID, &seg.DomainID, &docID, &docVerID, &useCase,
		&seg.SegmentType, &seg.Content, &seg.Position, &metaJSON, &seg.CreatedAt)
	if err != nil {
		return nil, err
	}
	seg.DocumentID = deref(docID)
	seg.DocumentVersionID = deref(docVerID)
	seg.UseCase = deref(useCase)
	if seg.Metadata, err = unmarshalMeta(string(metaJSON)); err != nil {
		return nil, err
	}
	return &seg, nil
}

func scanPgDataset(row pgx.Row) (*model.Dataset, error) {
	var ds model.Dataset
	var templateID, useCase, description, family *string
	var status string
	var cfgJSON, filterJSON []byte
	err := row.Scan(&ds.ID, &ds.DomainID, &templateID, &useCase, &ds.Name, &description,
		&ds.Provider, &family, &status, &ds.Version, &cfgJSON, &filterJSON,
		&ds.TotalItems, &ds.ApprovedItems, &ds.RejectedItems, &ds.PendingItems,
		&ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ds.TemplateID = deref(templateID)
	ds.UseCase = deref(useCase)
	ds.Description = deref(description)
	ds.TargetModelFamily = deref(family)
	ds.Status = model.DatasetStatus(status)
	if ds.GenerationConfig, err = unmarshalMeta(string(cfgJSON)); err != nil {
		return nil, err
	}
	if ds.SegmentFilter, err = unmarshalMeta(string(filterJSON)); err != nil {
		return nil, err
	}
	return &ds, nil
}

func scanPgItem(row pgx.Row) (*model.DatasetItem, error) {
	var item model.DatasetItem
	var segmentID, provider, inputText, badResponse, explanation *string
	var status string
	var flagsJSON, metaJSON []byte
	err := row.Scan(&item.ID, &item.DatasetID, &segmentID, &provider, &item.Instruction,
		&inputText, &item.IdealResponse, &badResponse, &explanation, &status,
		&item.QualityScore, &flagsJSON, &metaJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.SegmentID = deref(segmentID)
	item.SourceProvider = deref(provider)
	item.InputText = deref(inputText)
	item.BadResponse = deref(badResponse)
	item.Explanation = deref(explanation)
	item.Status = model.ItemStatus(status)
	if err := json.Unmarshal(flagsJSON, &item.QualityFlags); err != nil {
		return nil, eris.Wrap(err, "unmarshal quality flags")
	}
	if item.Metadata, err = unmarshalMeta(string(metaJSON)); err != nil {
		return nil, err
	}
	return &item, nil
}

func pgNullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
