package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genomecurate/curia/internal/reviews"
	"github.com/genomecurate/curia/internal/schemas"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/pagination"
	"github.com/genomecurate/curia/pkg/query"
	"github.com/genomecurate/curia/pkg/repository"
	"github.com/genomecurate/curia/pkg/schema"
	"github.com/genomecurate/curia/pkg/scoring"
)

// rescoreWorkers bounds concurrent recomputation during bulk rescores.
const rescoreWorkers = 8

type repo struct {
	db         *sql.DB
	schemas    schemas.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a record repository implementing the System interface.
func New(
	db *sql.DB,
	schemaSys schemas.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		schemas:    schemaSys,
		logger:     logger.With("system", "records"),
		pagination: pagination,
	}
}

func (r *repo) Handler(engine TransitionEngine, reviewSys reviews.System) *Handler {
	return NewHandler(r, engine, reviewSys, r.logger, r.pagination)
}

// scopeFilter restricts a query to the actor's scope memberships.
// It reports false when the actor can see nothing at all.
func scopeFilter(b *query.Builder, actor session.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if len(actor.Scopes) == 0 {
		return false
	}
	b.WhereIn("ScopeID", actor.ScopeIDs())
	return true
}

func (r *repo) List(
	ctx context.Context,
	actor session.Actor,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Summary], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(summaryProjection, defaultSort)
	if !scopeFilter(qb, actor) {
		result := pagination.NewPageResult([]Summary{}, 0, page.Page, page.PageSize)
		return &result, nil
	}
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, actor session.Actor, id uuid.UUID) (*Record, error) {
	qb := query.NewBuilder(projection)
	if !scopeFilter(qb, actor) {
		return nil, ErrNotFound
	}

	q, args := qb.BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, ScanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Create(ctx context.Context, actor session.Actor, cmd CreateCommand) (*Record, error) {
	if cmd.RecordType != TypePrecuration && cmd.RecordType != TypeCuration {
		return nil, ErrInvalidBody
	}
	if !actor.IsAdmin() && !slices.Contains(actor.Scopes, cmd.ScopeID) {
		return nil, ErrForbidden
	}

	cs, err := r.schemas.Find(ctx, cmd.SchemaID)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			return nil, ErrInvalidBody
		}
		return nil, err
	}
	if cs.SchemaType != schema.TypeCombined && string(cs.SchemaType) != string(cmd.RecordType) {
		return nil, ErrInvalidBody
	}

	if cmd.Evidence == nil {
		cmd.Evidence = map[string]any{}
	}

	// Creation is a draft save: structural typing only.
	if res := schema.ValidateTypes(cs.Definition, cmd.Evidence); !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	evidence, scores, computed, err := MarshalScored(cmd.Evidence, cs.Scoring)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		INSERT INTO records(
			record_type, gene_id, scope_id, schema_id, schema_version,
			status, workflow_stage, evidence_data, computed_scores,
			computed_fields, is_draft, lock_version, created_by, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, 1, $11, $11)
		RETURNING %s`, Columns)

	args := []any{
		cmd.RecordType, cmd.GeneID, cmd.ScopeID, cs.ID, cs.Version,
		StatusDraft, schema.StageEntry, evidence, scores, computed,
		actor.ID,
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, q, args, ScanRecord)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("record created",
		"id", rec.ID,
		"record_type", rec.RecordType,
		"schema_id", rec.SchemaID,
		"schema_version", rec.SchemaVersion,
	)
	return &rec, nil
}

func (r *repo) Update(ctx context.Context, actor session.Actor, id uuid.UUID, cmd UpdateCommand) (*Record, error) {
	return r.saveEvidence(ctx, actor, id, cmd, false)
}

func (r *repo) SaveDraft(ctx context.Context, actor session.Actor, id uuid.UUID, cmd UpdateCommand) (*Record, error) {
	return r.saveEvidence(ctx, actor, id, cmd, true)
}

// saveEvidence replaces a record's evidence under optimistic concurrency.
// Draft saves check structural typing only; full saves enforce every rule.
func (r *repo) saveEvidence(
	ctx context.Context,
	actor session.Actor,
	id uuid.UUID,
	cmd UpdateCommand,
	draft bool,
) (*Record, error) {
	current, err := r.Find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusArchived {
		return nil, ErrNotFound
	}
	if draft && current.Status != StatusDraft {
		return nil, ErrConflict
	}

	cs, err := r.schemas.Find(ctx, current.SchemaID)
	if err != nil {
		return nil, err
	}

	if cmd.Evidence == nil {
		cmd.Evidence = map[string]any{}
	}

	var res schema.Result
	if draft {
		res = schema.ValidateTypes(cs.Definition, cmd.Evidence)
	} else {
		res = schema.Validate(cs.Definition, cs.Rules, cmd.Evidence)
	}
	if !res.Valid {
		return nil, &ValidationError{Result: res}
	}

	evidence, scores, computed, err := MarshalScored(cmd.Evidence, cs.Scoring)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		UPDATE records
		SET evidence_data = $1, computed_scores = $2, computed_fields = $3,
			lock_version = lock_version + 1, updated_by = $4, updated_at = NOW()
		WHERE id = $5 AND lock_version = $6 AND status <> 'archived'
		RETURNING %s`, Columns)

	args := []any{evidence, scores, computed, actor.ID, id, cmd.LockVersion}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Record, error) {
		return repository.QueryOne(ctx, tx, q, args, ScanRecord)
	})

	if err != nil {
		return nil, r.mapWrite(ctx, actor, id, err)
	}

	r.logger.Info("record saved",
		"id", rec.ID,
		"draft", draft,
		"lock_version", rec.LockVersion,
		"classification", rec.Scores.Classification,
	)
	return &rec, nil
}

func (r *repo) Archive(ctx context.Context, actor session.Actor, id uuid.UUID, cmd ArchiveCommand) error {
	current, err := r.Find(ctx, actor, id)
	if err != nil {
		return err
	}
	if current.Status == StatusArchived {
		return nil
	}
	if current.Status != StatusDraft && !actor.IsAdmin() {
		return ErrForbidden
	}

	q := `
		UPDATE records
		SET status = $1, is_draft = FALSE, lock_version = lock_version + 1,
			updated_by = $2, updated_at = NOW()
		WHERE id = $3 AND lock_version = $4`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, q, StatusArchived, actor.ID, id, cmd.LockVersion)
		return struct{}{}, err
	})

	if err != nil {
		return r.mapWrite(ctx, actor, id, err)
	}

	r.logger.Info("record archived", "id", id)
	return nil
}

func (r *repo) Transitions(ctx context.Context, actor session.Actor, id uuid.UUID) ([]Transition, error) {
	if _, err := r.Find(ctx, actor, id); err != nil {
		return nil, err
	}

	q := `
		SELECT id, record_id, from_stage, to_stage, from_status, to_status,
			actor_id, notes, created_at
		FROM record_transitions
		WHERE record_id = $1
		ORDER BY created_at`

	return repository.QueryMany(ctx, r.db, q, []any{id}, scanTransition)
}

func (r *repo) RescoreBySchema(ctx context.Context, schemaID uuid.UUID) (int, error) {
	cs, err := r.schemas.Find(ctx, schemaID)
	if err != nil {
		if errors.Is(err, schemas.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	type row struct {
		id          uuid.UUID
		evidence    []byte
		lockVersion int
	}

	rows, err := repository.QueryMany(ctx, r.db,
		"SELECT id, evidence_data, lock_version FROM records WHERE schema_id = $1 AND status <> 'archived'",
		[]any{schemaID},
		func(s repository.Scanner) (row, error) {
			var v row
			err := s.Scan(&v.id, &v.evidence, &v.lockVersion)
			return v, err
		},
	)
	if err != nil {
		return 0, err
	}

	update := `
		UPDATE records
		SET computed_scores = $1, computed_fields = $2,
			lock_version = lock_version + 1, updated_at = NOW()
		WHERE id = $3 AND lock_version = $4`

	var count atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rescoreWorkers)

	for _, v := range rows {
		g.Go(func() error {
			var evidence map[string]any
			if err := json.Unmarshal(v.evidence, &evidence); err != nil {
				return fmt.Errorf("record %s: %w", v.id, err)
			}

			_, scores, computed, err := MarshalScored(evidence, cs.Scoring)
			if err != nil {
				return fmt.Errorf("record %s: %w", v.id, err)
			}

			res, err := r.db.ExecContext(ctx, update, scores, computed, v.id, v.lockVersion)
			if err != nil {
				return fmt.Errorf("record %s: %w", v.id, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("record %s: %w", v.id, err)
			}
			// A concurrent write moved the record past the version read
			// above; its scores already reflect the newer evidence.
			if affected == 0 {
				return nil
			}

			count.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(count.Load()), err
	}

	r.logger.Info("records rescored",
		"schema_id", schemaID,
		"schema_version", cs.Version,
		"count", count.Load(),
	)
	return int(count.Load()), nil
}

// mapWrite disambiguates a zero-row guarded write: the record either does not
// exist (in the actor's visible scopes) or the supplied lock version is stale.
func (r *repo) mapWrite(ctx context.Context, actor session.Actor, id uuid.UUID, err error) error {
	exists := true
	if _, ferr := r.Find(ctx, actor, id); errors.Is(ferr, ErrNotFound) {
		exists = false
	}
	return repository.MapVersioned(err, exists, ErrNotFound, ErrConflict)
}

// MarshalScored scores an evidence document and marshals the evidence,
// score result, and derived computed fields for JSONB storage. Shared with
// the workflow engine, which persists re-scored records in its own
// transactions.
func MarshalScored(evidence map[string]any, cfg scoring.Config) (evidenceJSON, scoresJSON, computedJSON []byte, err error) {
	result := scoring.Score(evidence, cfg)
	computed := map[string]any{
		"total":          result.Total,
		"classification": result.Classification,
	}

	if evidenceJSON, err = json.Marshal(evidence); err != nil {
		return
	}
	if scoresJSON, err = json.Marshal(result); err != nil {
		return
	}
	computedJSON, err = json.Marshal(computed)
	return
}
