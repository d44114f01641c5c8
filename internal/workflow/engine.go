// Package workflow implements the stage state machine over evidence records:
// transition validation against the record's schema snapshot, transition
// history, and the precuration-approval saga that spawns a linked curation.
// Every transition executes in a single transaction; a storage failure
// anywhere rolls the whole transition back.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/pairs"
	"github.com/genomecurate/curia/internal/records"
	"github.com/genomecurate/curia/internal/schemas"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/schema"
)

// schemaFinder is the slice of schemas.System the engine consumes.
type schemaFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*schemas.CurationSchema, error)
}

// pairResolver is the slice of pairs.System the engine consumes.
type pairResolver interface {
	FindForSchema(ctx context.Context, precurationSchemaID, scopeID uuid.UUID) (*pairs.WorkflowPair, error)
	FindForCuration(ctx context.Context, curationSchemaID, scopeID uuid.UUID) (*pairs.WorkflowPair, error)
}

// Engine executes workflow stage transitions. It satisfies
// records.TransitionEngine so the record handler can expose the transition
// endpoints.
type Engine struct {
	store   store
	schemas schemaFinder
	pairs   pairResolver
	logger  *slog.Logger
}

var _ records.TransitionEngine = (*Engine)(nil)

// NewEngine creates a workflow engine over the shared database pool and the
// schema and pair systems.
func NewEngine(
	db *sql.DB,
	schemaSys schemas.System,
	pairSys pairs.System,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:   &sqlStore{db: db},
		schemas: schemaSys,
		pairs:   pairSys,
		logger:  logger.With("system", "workflow"),
	}
}

// change describes the record mutation a transition persists. A nil evidence
// payload leaves the stored evidence and scores untouched.
type change struct {
	stage    schema.Stage
	status   records.Status
	isDraft  bool
	evidence []byte
	scores   []byte
	computed []byte
	notes    string
}

// Submit moves a record into review after full validation and re-scoring.
func (e *Engine) Submit(ctx context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	actor, ok := session.FromContext(ctx)
	if !ok {
		return nil, session.ErrUnauthenticated
	}

	rec, err := e.store.transition(ctx, func(tx transitionTx) (records.Record, error) {
		rec, err := tx.load(ctx, actor, id, cmd.LockVersion)
		if err != nil {
			return records.Record{}, err
		}

		cs, err := e.schemas.Find(ctx, rec.SchemaID)
		if err != nil {
			return records.Record{}, err
		}

		if !cs.Transitions.Allows(rec.Stage, schema.StageReview) {
			return records.Record{}, &TransitionError{
				From:   rec.Stage,
				To:     schema.StageReview,
				Reason: "not a legal next stage for this schema",
			}
		}

		if res := schema.Validate(cs.Definition, cs.Rules, rec.Evidence); !res.Valid {
			return records.Record{}, &records.ValidationError{Result: res}
		}

		evidence, scores, computed, err := records.MarshalScored(rec.Evidence, cs.Scoring)
		if err != nil {
			return records.Record{}, err
		}

		return tx.persist(ctx, rec, actor, change{
			stage:    schema.StageReview,
			status:   records.StatusSubmitted,
			isDraft:  false,
			evidence: evidence,
			scores:   scores,
			computed: computed,
			notes:    cmd.Notes,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("record submitted", "id", rec.ID, "lock_version", rec.LockVersion)
	return &rec, nil
}

// Approve moves a record out of review as approved. For precurations with an
// auto-create pair, the linked curation is created in the same transaction;
// if that insert fails, the approval rolls back with it.
func (e *Engine) Approve(ctx context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	actor, ok := session.FromContext(ctx)
	if !ok {
		return nil, session.ErrUnauthenticated
	}

	var spawned *uuid.UUID

	rec, err := e.store.transition(ctx, func(tx transitionTx) (records.Record, error) {
		rec, err := tx.load(ctx, actor, id, cmd.LockVersion)
		if err != nil {
			return records.Record{}, err
		}

		cs, err := e.schemas.Find(ctx, rec.SchemaID)
		if err != nil {
			return records.Record{}, err
		}

		if !cs.Transitions.Allows(rec.Stage, schema.StageActive) {
			return records.Record{}, &TransitionError{
				From:   rec.Stage,
				To:     schema.StageActive,
				Reason: "not a legal next stage for this schema",
			}
		}

		// Independent review: the creator never approves their own record.
		if actor.ID == rec.CreatedBy {
			return records.Record{}, &TransitionError{
				From:   rec.Stage,
				To:     schema.StageActive,
				Reason: "a record's creator cannot approve it",
			}
		}

		if res := schema.Validate(cs.Definition, cs.Rules, rec.Evidence); !res.Valid {
			return records.Record{}, &records.ValidationError{Result: res}
		}

		pair, err := e.pairFor(ctx, rec)
		if err != nil {
			return records.Record{}, err
		}

		if pair != nil && pair.Config.MinReviewers > 0 {
			approved, err := tx.approvedReviews(ctx, rec.ID)
			if err != nil {
				return records.Record{}, err
			}
			if approved < pair.Config.MinReviewers {
				return records.Record{}, &TransitionError{
					From: rec.Stage,
					To:   schema.StageActive,
					Reason: fmt.Sprintf("%d of %d required reviewer approvals",
						approved, pair.Config.MinReviewers),
				}
			}
		}

		evidence, scores, computed, err := records.MarshalScored(rec.Evidence, cs.Scoring)
		if err != nil {
			return records.Record{}, err
		}

		updated, err := tx.persist(ctx, rec, actor, change{
			stage:    schema.StageActive,
			status:   records.StatusApproved,
			isDraft:  false,
			evidence: evidence,
			scores:   scores,
			computed: computed,
			notes:    cmd.Notes,
		})
		if err != nil {
			return records.Record{}, err
		}

		if rec.RecordType == records.TypePrecuration && pair != nil && pair.Config.AutoCreateCuration {
			curationID, err := e.spawnCuration(ctx, tx, &updated, pair, actor)
			if err != nil {
				return records.Record{}, fmt.Errorf("create linked curation: %w", err)
			}
			spawned = &curationID
		}

		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	if spawned != nil {
		e.logger.Info("record approved",
			"id", rec.ID,
			"record_type", rec.RecordType,
			"curation_id", *spawned,
		)
	} else {
		e.logger.Info("record approved", "id", rec.ID, "record_type", rec.RecordType)
	}
	return &rec, nil
}

// Reject returns a record from review to its pre-review stage. The reason is
// mandatory and recorded in the transition history. Computed scores are
// retained as a record of the rejected assessment.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID, cmd records.TransitionCommand) (*records.Record, error) {
	actor, ok := session.FromContext(ctx)
	if !ok {
		return nil, session.ErrUnauthenticated
	}
	if cmd.Reason == "" {
		return nil, &ReasonError{}
	}

	rec, err := e.store.transition(ctx, func(tx transitionTx) (records.Record, error) {
		rec, err := tx.load(ctx, actor, id, cmd.LockVersion)
		if err != nil {
			return records.Record{}, err
		}

		if rec.Stage != schema.StageReview {
			return records.Record{}, &TransitionError{
				From:   rec.Stage,
				To:     rec.Stage,
				Reason: "record is not in review",
			}
		}

		prior, err := tx.preReviewStage(ctx, rec)
		if err != nil {
			return records.Record{}, err
		}

		return tx.persist(ctx, rec, actor, change{
			stage:   prior,
			status:  records.StatusRejected,
			isDraft: false,
			notes:   cmd.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("record rejected", "id", rec.ID, "returned_to", rec.Stage)
	return &rec, nil
}

// pairFor resolves the workflow pair governing a record's schema, preferring
// a scope-specific pair. No pair means no quorum or saga requirements.
func (e *Engine) pairFor(ctx context.Context, rec *records.Record) (*pairs.WorkflowPair, error) {
	var (
		pair *pairs.WorkflowPair
		err  error
	)

	switch rec.RecordType {
	case records.TypePrecuration:
		pair, err = e.pairs.FindForSchema(ctx, rec.SchemaID, rec.ScopeID)
	case records.TypeCuration:
		pair, err = e.pairs.FindForCuration(ctx, rec.SchemaID, rec.ScopeID)
	default:
		return nil, nil
	}

	if errors.Is(err, pairs.ErrNotFound) {
		return nil, nil
	}
	return pair, err
}

// mapEvidence seeds a curation's evidence from its precuration by walking the
// pair's mapping rules into (possibly nested) target paths. Absent sources
// are skipped, never errors.
func mapEvidence(source map[string]any, rules []pairs.MappingRule) map[string]any {
	target := make(map[string]any)
	for _, rule := range rules {
		if value, ok := schema.Lookup(source, rule.Source); ok {
			schema.Set(target, rule.Target, value)
		}
	}
	return target
}

// spawnCuration builds the linked curation's evidence from the pair's data
// mapping and inserts the curation as a draft at the curation stage. The
// precuration link is set here and nowhere else.
func (e *Engine) spawnCuration(
	ctx context.Context,
	tx transitionTx,
	precuration *records.Record,
	pair *pairs.WorkflowPair,
	actor session.Actor,
) (uuid.UUID, error) {
	cs, err := e.schemas.Find(ctx, pair.CurationSchemaID)
	if err != nil {
		return uuid.Nil, err
	}

	seeded := mapEvidence(precuration.Evidence, pair.DataMapping)
	evidence, scores, computed, err := records.MarshalScored(seeded, cs.Scoring)
	if err != nil {
		return uuid.Nil, err
	}

	return tx.insertCuration(ctx, curationRow{
		precuration:   precuration,
		schemaID:      cs.ID,
		schemaVersion: cs.Version,
		evidence:      evidence,
		scores:        scores,
		computed:      computed,
		actorID:       actor.ID,
	})
}
