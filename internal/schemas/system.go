package schemas

import (
	"context"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/pagination"
)

// System defines the public contract for schema domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[CurationSchema], error)

	Find(ctx context.Context, id uuid.UUID) (*CurationSchema, error)
	FindByNameVersion(ctx context.Context, name string, version int) (*CurationSchema, error)
	Create(ctx context.Context, cmd CreateCommand) (*CurationSchema, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*CurationSchema, error)
	NewVersion(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*CurationSchema, error)
	Activate(ctx context.Context, id uuid.UUID) (*CurationSchema, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
