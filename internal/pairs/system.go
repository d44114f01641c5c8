package pairs

import (
	"context"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/pagination"
)

// System defines the public contract for workflow pair operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[WorkflowPair], error)

	Find(ctx context.Context, id uuid.UUID) (*WorkflowPair, error)

	// FindForSchema resolves the pair governing a precuration schema.
	// A scope-specific pair is preferred over the global (NULL scope) pair.
	FindForSchema(ctx context.Context, precurationSchemaID uuid.UUID, scopeID uuid.UUID) (*WorkflowPair, error)

	// FindForCuration resolves the pair governing a curation schema, with the
	// same scope preference as FindForSchema.
	FindForCuration(ctx context.Context, curationSchemaID uuid.UUID, scopeID uuid.UUID) (*WorkflowPair, error)

	Create(ctx context.Context, cmd CreateCommand) (*WorkflowPair, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*WorkflowPair, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
