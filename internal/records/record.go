// Package records implements the evidence record store: precuration and
// curation records holding schema-validated JSON evidence, with optimistic
// concurrency on every write and scope-filtered visibility on every read.
package records

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/schema"
	"github.com/genomecurate/curia/pkg/scoring"
)

// Type distinguishes the two evidence record kinds sharing one table.
type Type string

// Valid record types.
const (
	TypePrecuration Type = "precuration"
	TypeCuration    Type = "curation"
)

// Status is the workflow status of an evidence record.
type Status string

// Valid record statuses.
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusArchived  Status = "archived"
)

// Record is one precuration or curation evidence record. SchemaID and
// SchemaVersion snapshot the schema the evidence was validated and scored
// against, so historic records stay interpretable after new versions publish.
// LockVersion increments on every persisted change; writers must supply the
// version they last read.
type Record struct {
	ID             uuid.UUID      `json:"id"`
	RecordType     Type           `json:"record_type"`
	GeneID         uuid.UUID      `json:"gene_id"`
	ScopeID        uuid.UUID      `json:"scope_id"`
	SchemaID       uuid.UUID      `json:"schema_id"`
	SchemaVersion  int            `json:"schema_version"`
	Status         Status         `json:"status"`
	Stage          schema.Stage   `json:"workflow_stage"`
	Evidence       map[string]any `json:"evidence_data"`
	Scores         scoring.Result `json:"computed_scores"`
	ComputedFields map[string]any `json:"computed_fields"`
	IsDraft        bool           `json:"is_draft"`
	LockVersion    int            `json:"lock_version"`
	PrecurationID  *uuid.UUID     `json:"precuration_id,omitempty"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	UpdatedBy      uuid.UUID      `json:"updated_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Summary is the list projection of a record: identity, workflow position,
// and classification without the evidence payload.
type Summary struct {
	ID             uuid.UUID    `json:"id"`
	RecordType     Type         `json:"record_type"`
	GeneID         uuid.UUID    `json:"gene_id"`
	ScopeID        uuid.UUID    `json:"scope_id"`
	SchemaID       uuid.UUID    `json:"schema_id"`
	SchemaVersion  int          `json:"schema_version"`
	Status         Status       `json:"status"`
	Stage          schema.Stage `json:"workflow_stage"`
	Classification string       `json:"classification,omitempty"`
	IsDraft        bool         `json:"is_draft"`
	LockVersion    int          `json:"lock_version"`
	CreatedBy      uuid.UUID    `json:"created_by"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Transition is one row of a record's stage-transition history.
type Transition struct {
	ID         uuid.UUID    `json:"id"`
	RecordID   uuid.UUID    `json:"record_id"`
	FromStage  schema.Stage `json:"from_stage"`
	ToStage    schema.Stage `json:"to_stage"`
	FromStatus Status       `json:"from_status"`
	ToStatus   Status       `json:"to_status"`
	ActorID    uuid.UUID    `json:"actor_id"`
	Notes      string       `json:"notes,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CreateCommand carries the data needed to create a new evidence record.
// New records start in draft status at the entry stage.
type CreateCommand struct {
	RecordType Type           `json:"record_type"`
	GeneID     uuid.UUID      `json:"gene_id"`
	ScopeID    uuid.UUID      `json:"scope_id"`
	SchemaID   uuid.UUID      `json:"schema_id"`
	Evidence   map[string]any `json:"evidence_data"`
}

// UpdateCommand replaces a record's evidence. LockVersion must match the
// stored value or the write is rejected with ErrConflict.
type UpdateCommand struct {
	Evidence    map[string]any `json:"evidence_data"`
	LockVersion int            `json:"lock_version"`
}

// ArchiveCommand soft-deletes a record.
type ArchiveCommand struct {
	LockVersion int `json:"lock_version"`
}

// TransitionCommand requests a workflow stage transition.
// Reason is mandatory for rejections.
type TransitionCommand struct {
	LockVersion int    `json:"lock_version"`
	Notes       string `json:"notes,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// TransitionEngine executes workflow stage transitions against records.
// Implemented by the workflow engine; consumed by the record handler so the
// transition endpoints live alongside the record resource.
type TransitionEngine interface {
	Submit(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Record, error)
	Approve(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Record, error)
	Reject(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Record, error)
}
