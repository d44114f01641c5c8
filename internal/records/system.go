package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/internal/reviews"
	"github.com/genomecurate/curia/internal/session"
	"github.com/genomecurate/curia/pkg/pagination"
)

// System defines the public contract for evidence record operations.
// Every method filters by the actor's scope memberships before any other
// logic; the admin role bypasses the filter.
type System interface {
	Handler(engine TransitionEngine, reviews reviews.System) *Handler

	List(
		ctx context.Context,
		actor session.Actor,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Summary], error)

	Find(ctx context.Context, actor session.Actor, id uuid.UUID) (*Record, error)

	// Create validates the evidence structurally, scores it, and stores a new
	// draft record at the entry stage with the schema version snapshot.
	Create(ctx context.Context, actor session.Actor, cmd CreateCommand) (*Record, error)

	// Update replaces evidence under full validation and rescores.
	Update(ctx context.Context, actor session.Actor, id uuid.UUID, cmd UpdateCommand) (*Record, error)

	// SaveDraft replaces evidence under structural typing only, bypassing
	// required-field rules, and rescores. Draft records only.
	SaveDraft(ctx context.Context, actor session.Actor, id uuid.UUID, cmd UpdateCommand) (*Record, error)

	// Archive soft-deletes a record. Non-draft records require the admin role.
	Archive(ctx context.Context, actor session.Actor, id uuid.UUID, cmd ArchiveCommand) error

	Transitions(ctx context.Context, actor session.Actor, id uuid.UUID) ([]Transition, error)

	// RescoreBySchema recomputes stored scores for every live record of a
	// schema and returns the number of records rescored.
	RescoreBySchema(ctx context.Context, schemaID uuid.UUID) (int, error)
}
