package api

import (
	"github.com/genomecurate/curia/internal/pairs"
	"github.com/genomecurate/curia/internal/records"
	"github.com/genomecurate/curia/internal/reviews"
	"github.com/genomecurate/curia/internal/schemas"
	"github.com/genomecurate/curia/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Schemas  schemas.System
	Pairs    pairs.System
	Records  records.System
	Reviews  reviews.System
	Workflow *workflow.Engine
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	schemaSystem := schemas.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	pairSystem := pairs.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	recordSystem := records.New(
		db,
		schemaSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	reviewSystem := reviews.New(db, runtime.Logger)

	engine := workflow.NewEngine(
		db,
		schemaSystem,
		pairSystem,
		runtime.Logger,
	)

	return &Domain{
		Schemas:  schemaSystem,
		Pairs:    pairSystem,
		Records:  recordSystem,
		Reviews:  reviewSystem,
		Workflow: engine,
	}
}
