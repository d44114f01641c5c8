// Package pairs implements the workflow pair domain: the link between a
// precuration schema and the curation schema its approved records hand
// off to, including the declarative field mapping used for prefill.
package pairs

import (
	"time"

	"github.com/google/uuid"
)

// MappingRule copies one precuration evidence field into the new curation's
// evidence during the approval handoff. Source and Target are flat or
// dot-path keys.
type MappingRule struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// WorkflowConfig governs how the pair's handoff behaves.
type WorkflowConfig struct {
	PrecurationRequired bool `json:"precuration_required"`
	MinReviewers        int  `json:"min_reviewers"`
	AutoCreateCuration  bool `json:"auto_create_curation"`
}

// WorkflowPair links one precuration schema to one curation schema,
// optionally scoped. A NULL scope makes the pair the global default.
type WorkflowPair struct {
	ID                  uuid.UUID      `json:"id"`
	PrecurationSchemaID uuid.UUID      `json:"precuration_schema_id"`
	CurationSchemaID    uuid.UUID      `json:"curation_schema_id"`
	ScopeID             *uuid.UUID     `json:"scope_id"`
	DataMapping         []MappingRule  `json:"data_mapping"`
	Config              WorkflowConfig `json:"workflow_config"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// CreateCommand carries the data needed to create a new workflow pair.
type CreateCommand struct {
	PrecurationSchemaID uuid.UUID      `json:"precuration_schema_id"`
	CurationSchemaID    uuid.UUID      `json:"curation_schema_id"`
	ScopeID             *uuid.UUID     `json:"scope_id"`
	DataMapping         []MappingRule  `json:"data_mapping"`
	Config              WorkflowConfig `json:"workflow_config"`
}

// UpdateCommand carries the data needed to update an existing workflow pair.
type UpdateCommand struct {
	DataMapping []MappingRule  `json:"data_mapping"`
	Config      WorkflowConfig `json:"workflow_config"`
}
