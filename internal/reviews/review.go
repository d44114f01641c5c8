// Package reviews implements review assignments on evidence records and the
// independent-review rule: a record's creator can never be assigned as its
// reviewer, checked here at assignment time and again by the workflow engine
// at approval time.
package reviews

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of one reviewer's assessment.
type Status string

// Valid review statuses.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Review is one reviewer's assignment to one evidence record.
// A reviewer is assigned at most once per record.
type Review struct {
	ID         uuid.UUID `json:"id"`
	RecordID   uuid.UUID `json:"record_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Status     Status    `json:"status"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AssignCommand assigns a reviewer to a record. The review starts pending.
type AssignCommand struct {
	ReviewerID uuid.UUID `json:"reviewer_id"`
}

// VerdictCommand records the assigned reviewer's assessment.
type VerdictCommand struct {
	Status   Status `json:"status"`
	Comments string `json:"comments,omitempty"`
}
