package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/records"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/repository"
	"github.com/genomecurate/curia/pkg/schema"
)

// store runs one transition's row operations inside a single transaction.
// A returned error rolls back everything the callback wrote.
type store interface {
	transition(ctx context.Context, fn func(tx transitionTx) (records.Record, error)) (records.Record, error)
}

// transitionTx is the set of row operations available inside one transition
// transaction.
type transitionTx interface {
	load(ctx context.Context, actor session.Actor, id uuid.UUID, lockVersion int) (*records.Record, error)
	persist(ctx context.Context, rec *records.Record, actor session.Actor, ch change) (records.Record, error)
	approvedReviews(ctx context.Context, recordID uuid.UUID) (int, error)
	insertCuration(ctx context.Context, cur curationRow) (uuid.UUID, error)
	preReviewStage(ctx context.Context, rec *records.Record) (schema.Stage, error)
}

// curationRow carries the linked curation the approval saga inserts.
type curationRow struct {
	precuration   *records.Record
	schemaID      uuid.UUID
	schemaVersion int
	evidence      []byte
	scores        []byte
	computed      []byte
	actorID       uuid.UUID
}

type sqlStore struct {
	db *sql.DB
}

func (s *sqlStore) transition(ctx context.Context, fn func(tx transitionTx) (records.Record, error)) (records.Record, error) {
	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (records.Record, error) {
		return fn(&sqlTx{tx: tx})
	})
}

type sqlTx struct {
	tx *sql.Tx
}

// load reads the record under a row lock and enforces scope visibility and
// the supplied lock version before any workflow logic runs.
func (s *sqlTx) load(
	ctx context.Context,
	actor session.Actor,
	id uuid.UUID,
	lockVersion int,
) (*records.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM records WHERE id = $1 FOR UPDATE", records.Columns)

	rec, err := repository.QueryOne(ctx, s.tx, q, []any{id}, records.ScanRecord)
	if err != nil {
		return nil, repository.MapError(err, records.ErrNotFound, records.ErrDuplicate)
	}

	if rec.Status == records.StatusArchived {
		return nil, records.ErrNotFound
	}
	if !actor.IsAdmin() && !slices.Contains(actor.Scopes, rec.ScopeID) {
		return nil, records.ErrNotFound
	}
	if rec.LockVersion != lockVersion {
		return nil, records.ErrConflict
	}

	return &rec, nil
}

// persist writes the transition outcome and appends the history row.
func (s *sqlTx) persist(
	ctx context.Context,
	rec *records.Record,
	actor session.Actor,
	ch change,
) (records.Record, error) {
	var (
		q    string
		args []any
	)

	if ch.evidence != nil {
		q = fmt.Sprintf(`
			UPDATE records
			SET status = $1, workflow_stage = $2, is_draft = $3,
				evidence_data = $4, computed_scores = $5, computed_fields = $6,
				lock_version = lock_version + 1, updated_by = $7, updated_at = NOW()
			WHERE id = $8 AND lock_version = $9
			RETURNING %s`, records.Columns)
		args = []any{
			ch.status, ch.stage, ch.isDraft,
			ch.evidence, ch.scores, ch.computed,
			actor.ID, rec.ID, rec.LockVersion,
		}
	} else {
		q = fmt.Sprintf(`
			UPDATE records
			SET status = $1, workflow_stage = $2, is_draft = $3,
				lock_version = lock_version + 1, updated_by = $4, updated_at = NOW()
			WHERE id = $5 AND lock_version = $6
			RETURNING %s`, records.Columns)
		args = []any{
			ch.status, ch.stage, ch.isDraft,
			actor.ID, rec.ID, rec.LockVersion,
		}
	}

	updated, err := repository.QueryOne(ctx, s.tx, q, args, records.ScanRecord)
	if err != nil {
		return records.Record{}, repository.MapError(err, records.ErrConflict, records.ErrDuplicate)
	}

	history := `
		INSERT INTO record_transitions(
			record_id, from_stage, to_stage, from_status, to_status,
			actor_id, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.tx.ExecContext(ctx, history,
		rec.ID, rec.Stage, ch.stage, rec.Status, ch.status, actor.ID, ch.notes)
	if err != nil {
		return records.Record{}, err
	}

	return updated, nil
}

func (s *sqlTx) approvedReviews(ctx context.Context, recordID uuid.UUID) (int, error) {
	var count int
	err := s.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reviews WHERE record_id = $1 AND status = 'approved'",
		recordID,
	).Scan(&count)
	return count, err
}

func (s *sqlTx) insertCuration(ctx context.Context, cur curationRow) (uuid.UUID, error) {
	q := `
		INSERT INTO records(
			record_type, gene_id, scope_id, schema_id, schema_version,
			status, workflow_stage, evidence_data, computed_scores,
			computed_fields, is_draft, lock_version, precuration_id,
			created_by, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, 1, $11, $12, $12)
		RETURNING id`

	var id uuid.UUID
	err := s.tx.QueryRowContext(ctx, q,
		records.TypeCuration, cur.precuration.GeneID, cur.precuration.ScopeID,
		cur.schemaID, cur.schemaVersion, records.StatusDraft, schema.StageCuration,
		cur.evidence, cur.scores, cur.computed, cur.precuration.ID, cur.actorID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// preReviewStage finds the stage the record occupied before entering review,
// from the most recent transition into review.
func (s *sqlTx) preReviewStage(ctx context.Context, rec *records.Record) (schema.Stage, error) {
	var prior schema.Stage
	err := s.tx.QueryRowContext(ctx, `
		SELECT from_stage FROM record_transitions
		WHERE record_id = $1 AND to_stage = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		rec.ID, schema.StageReview,
	).Scan(&prior)

	if errors.Is(err, sql.ErrNoRows) {
		return schema.StageEntry, nil
	}
	if err != nil {
		return "", err
	}
	return prior, nil
}
