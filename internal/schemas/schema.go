// Package schemas implements the curation schema domain: versioned,
// user-authored schema definitions with validation rules, workflow stage
// tables, and scoring configuration. Schemas referenced by any evidence
// record are immutable; changes are published as new versions.
package schemas

import (
	"time"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/schema"
	"github.com/genomecurate/curia/pkg/scoring"
)

// CurationSchema is one version of a named curation schema.
// Name and Version are unique together.
type CurationSchema struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Version     int                `json:"version"`
	SchemaType  schema.Type        `json:"schema_type"`
	Definition  schema.Definition  `json:"field_definitions"`
	Rules       schema.Rules       `json:"validation_rules"`
	Transitions schema.Transitions `json:"workflow_states"`
	Scoring     scoring.Config     `json:"scoring_configuration"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CreateCommand carries the data needed to publish version 1 of a new schema.
type CreateCommand struct {
	Name        string             `json:"name"`
	SchemaType  schema.Type        `json:"schema_type"`
	Definition  schema.Definition  `json:"field_definitions"`
	Rules       schema.Rules       `json:"validation_rules"`
	Transitions schema.Transitions `json:"workflow_states"`
	Scoring     scoring.Config     `json:"scoring_configuration"`
}

// UpdateCommand carries in-place edits to an unreferenced schema version.
// Referenced versions reject updates with ErrSchemaInUse.
type UpdateCommand struct {
	Definition  schema.Definition  `json:"field_definitions"`
	Rules       schema.Rules       `json:"validation_rules"`
	Transitions schema.Transitions `json:"workflow_states"`
	Scoring     scoring.Config     `json:"scoring_configuration"`
}
