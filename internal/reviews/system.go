package reviews

import (
	"context"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/session"
)

// System defines the public contract for review operations.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, id uuid.UUID) (*Review, error)
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]Review, error)

	// Assign adds a reviewer to a record. The record's creator is rejected
	// with ErrSelfReview; a repeat assignment with ErrDuplicate.
	Assign(ctx context.Context, recordID uuid.UUID, cmd AssignCommand) (*Review, error)

	// Verdict records the assessment of the assigned reviewer.
	Verdict(ctx context.Context, actor session.Actor, id uuid.UUID, cmd VerdictCommand) (*Review, error)
}
