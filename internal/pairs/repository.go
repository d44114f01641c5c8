package pairs

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/pagination"
	"github.com/genomecurate/curia/pkg/query"
	"github.com/genomecurate/curia/pkg/repository"
)

const pairColumns = `id, precuration_schema_id, curation_schema_id, scope_id,
		data_mapping, workflow_config, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a workflow pair repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "pairs"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[WorkflowPair], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count pairs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPair)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*WorkflowPair, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPair)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindForSchema(ctx context.Context, precurationSchemaID, scopeID uuid.UUID) (*WorkflowPair, error) {
	return r.findScoped(ctx, "precuration_schema_id", precurationSchemaID, scopeID)
}

func (r *repo) FindForCuration(ctx context.Context, curationSchemaID, scopeID uuid.UUID) (*WorkflowPair, error) {
	return r.findScoped(ctx, "curation_schema_id", curationSchemaID, scopeID)
}

// findScoped prefers a scope-specific pair over the global (NULL scope) one.
func (r *repo) findScoped(ctx context.Context, column string, schemaID, scopeID uuid.UUID) (*WorkflowPair, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM workflow_pairs
		WHERE %s = $1
		  AND (scope_id = $2 OR scope_id IS NULL)
		ORDER BY scope_id NULLS LAST
		LIMIT 1`, pairColumns, column)

	p, err := repository.QueryOne(ctx, r.db, q, []any{schemaID, scopeID}, scanPair)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*WorkflowPair, error) {
	mapping, config, err := marshalPair(cmd.DataMapping, cmd.Config)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO workflow_pairs(
			precuration_schema_id, curation_schema_id, scope_id,
			data_mapping, workflow_config
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, pairColumns)

	args := []any{cmd.PrecurationSchemaID, cmd.CurationSchemaID, cmd.ScopeID, mapping, config}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (WorkflowPair, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPair)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("pair created",
		"id", p.ID,
		"precuration_schema_id", p.PrecurationSchemaID,
		"curation_schema_id", p.CurationSchemaID,
	)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*WorkflowPair, error) {
	mapping, config, err := marshalPair(cmd.DataMapping, cmd.Config)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		UPDATE workflow_pairs
		SET data_mapping = $1, workflow_config = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, pairColumns)

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (WorkflowPair, error) {
		return repository.QueryOne(ctx, tx, q, []any{mapping, config, id}, scanPair)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("pair updated", "id", p.ID)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM workflow_pairs WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("pair deleted", "id", id)
	return nil
}
