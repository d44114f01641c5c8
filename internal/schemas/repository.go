package schemas

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

const schemaColumns = `id, name, version, schema_type, field_definitions,
		validation_rules, workflow_states, scoring_configuration,
		is_active, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a schema repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "schemas"),
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
) (*pagination.PageResult[CurationSchema], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count schemas: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSchema)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*CurationSchema, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	cs, err := repository.QueryOne(ctx, r.db, q, args, scanSchema)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &cs, nil
}

func (r *repo) FindByNameVersion(ctx context.Context, name string, version int) (*CurationSchema, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("Name", name).
		WhereEquals("Version", version).
		BuildSingleOrNull()

	cs, err := repository.QueryOne(ctx, r.db, q, args, scanSchema)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &cs, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*CurationSchema, error) {
	definition, rules, transitions, scoringCfg, err := marshalParts(UpdateCommand{
		Definition:  cmd.Definition,
		Rules:       cmd.Rules,
		Transitions: cmd.Transitions,
		Scoring:     cmd.Scoring,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO curation_schemas(
			name, version, schema_type, field_definitions,
			validation_rules, workflow_states, scoring_configuration
		)
		VALUES ($1, 1, $2, $3, $4, $5, $6)
		RETURNING %s`, schemaColumns)

	args := []any{cmd.Name, cmd.SchemaType, definition, rules, transitions, scoringCfg}

	cs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CurationSchema, error) {
		return repository.QueryOne(ctx, tx, q, args, scanSchema)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema created", "id", cs.ID, "name", cs.Name, "type", cs.SchemaType)
	return &cs, nil
}

// Update edits a schema version in place. Rejected with ErrSchemaInUse once
// any record references the version; publish a new version instead.
func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*CurationSchema, error) {
	definition, rules, transitions, scoringCfg, err := marshalParts(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	q := fmt.Sprintf(`
		UPDATE curation_schemas
		SET field_definitions = $1, validation_rules = $2,
			workflow_states = $3, scoring_configuration = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING %s`, schemaColumns)

	cs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CurationSchema, error) {
		inUse, err := r.referenced(ctx, tx, id)
		if err != nil {
			return CurationSchema{}, err
		}
		if inUse {
			return CurationSchema{}, ErrSchemaInUse
		}

		return repository.QueryOne(ctx, tx, q,
			[]any{definition, rules, transitions, scoringCfg, id},
			scanSchema,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema updated", "id", cs.ID, "name", cs.Name, "version", cs.Version)
	return &cs, nil
}

// NewVersion publishes the next version of a schema name, seeded from the
// given version with the command's parts applied. This is the only mutation
// path once a version is referenced by records.
func (r *repo) NewVersion(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*CurationSchema, error) {
	definition, rules, transitions, scoringCfg, err := marshalParts(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO curation_schemas(
			name, version, schema_type, field_definitions,
			validation_rules, workflow_states, scoring_configuration
		)
		SELECT name,
			(SELECT MAX(version) + 1 FROM curation_schemas c WHERE c.name = curation_schemas.name),
			schema_type, $1, $2, $3, $4
		FROM curation_schemas
		WHERE id = $5
		RETURNING %s`, schemaColumns)

	cs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CurationSchema, error) {
		return repository.QueryOne(ctx, tx, q,
			[]any{definition, rules, transitions, scoringCfg, id},
			scanSchema,
		)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema version published", "id", cs.ID, "name", cs.Name, "version", cs.Version)
	return &cs, nil
}

// Activate marks a version active and deactivates every other version of
// the same name in one transaction.
func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*CurationSchema, error) {
	cs, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (CurationSchema, error) {
		findQ, findArgs := query.NewBuilder(projection).BuildSingle("ID", id)
		target, err := repository.QueryOne(ctx, tx, findQ, findArgs, scanSchema)
		if err != nil {
			return CurationSchema{}, err
		}

		_, err = tx.ExecContext(
			ctx,
			"UPDATE curation_schemas SET is_active = false, updated_at = NOW() WHERE name = $1 AND is_active = true",
			target.Name,
		)
		if err != nil {
			return CurationSchema{}, fmt.Errorf("deactivate current: %w", err)
		}

		activateQ := fmt.Sprintf(`
			UPDATE curation_schemas SET is_active = true, updated_at = NOW()
			WHERE id = $1
			RETURNING %s`, schemaColumns)

		return repository.QueryOne(ctx, tx, activateQ, []any{id}, scanSchema)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema activated", "id", cs.ID, "name", cs.Name, "version", cs.Version)
	return &cs, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		inUse, err := r.referenced(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		if inUse {
			return struct{}{}, ErrSchemaInUse
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM curation_schemas WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("schema deleted", "id", id)
	return nil
}

func (r *repo) referenced(ctx context.Context, q repository.Querier, id uuid.UUID) (bool, error) {
	return repository.Exists(ctx, q, "SELECT 1 FROM records WHERE schema_id = $1", id)
}
