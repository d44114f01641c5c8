package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/repository"
)

const reviewColumns = `id, record_id, reviewer_id, status, comments,
		created_at, updated_at`

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a review repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "reviews"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Review, error) {
	q := fmt.Sprintf("SELECT %s FROM reviews WHERE id = $1", reviewColumns)

	rv, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanReview)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rv, nil
}

func (r *repo) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]Review, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM reviews WHERE record_id = $1 ORDER BY created_at",
		reviewColumns,
	)
	return repository.QueryMany(ctx, r.db, q, []any{recordID}, scanReview)
}

func (r *repo) Assign(ctx context.Context, recordID uuid.UUID, cmd AssignCommand) (*Review, error) {
	insert := fmt.Sprintf(`
		INSERT INTO reviews(record_id, reviewer_id, status)
		VALUES ($1, $2, $3)
		RETURNING %s`, reviewColumns)

	rv, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Review, error) {
		var createdBy uuid.UUID
		err := tx.QueryRowContext(ctx,
			"SELECT created_by FROM records WHERE id = $1 AND status <> 'archived'",
			recordID,
		).Scan(&createdBy)
		if err != nil {
			if err == sql.ErrNoRows {
				return Review{}, ErrRecordNotFound
			}
			return Review{}, err
		}

		if createdBy == cmd.ReviewerID {
			return Review{}, ErrSelfReview
		}

		return repository.QueryOne(ctx, tx, insert,
			[]any{recordID, cmd.ReviewerID, StatusPending}, scanReview)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("reviewer assigned",
		"review_id", rv.ID,
		"record_id", rv.RecordID,
		"reviewer_id", rv.ReviewerID,
	)
	return &rv, nil
}

func (r *repo) Verdict(ctx context.Context, actor session.Actor, id uuid.UUID, cmd VerdictCommand) (*Review, error) {
	if cmd.Status != StatusApproved && cmd.Status != StatusRejected {
		return nil, ErrInvalidVerdict
	}

	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.ReviewerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	q := fmt.Sprintf(`
		UPDATE reviews
		SET status = $1, comments = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING %s`, reviewColumns)

	rv, err := repository.QueryOne(ctx, r.db, q,
		[]any{cmd.Status, cmd.Comments, id}, scanReview)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("verdict recorded",
		"review_id", rv.ID,
		"record_id", rv.RecordID,
		"status", rv.Status,
	)
	return &rv, nil
}

func scanReview(s repository.Scanner) (Review, error) {
	var rv Review
	err := s.Scan(
		&rv.ID,
		&rv.RecordID,
		&rv.ReviewerID,
		&rv.Status,
		&rv.Comments,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	return rv, err
}
