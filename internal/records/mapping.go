package records

import (
	"database/sql"
	"encoding/json"
	"net/url"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/query"
	"github.com/genomecurate/curia/pkg/repository"
	"github.com/genomecurate/curia/pkg/schema"
)

// Columns is the full column list of the records table, in scan order for
// ScanRecord. Shared with the workflow engine, which reads and writes
// records inside its own transactions.
const Columns = `id, record_type, gene_id, scope_id, schema_id, schema_version,
		status, workflow_stage, evidence_data, computed_scores, computed_fields,
		is_draft, lock_version, precuration_id, created_by, updated_by,
		created_at, updated_at`

var projection = query.
	NewProjectionMap("public", "records", "r").
	Project("id", "ID").
	Project("record_type", "RecordType").
	Project("gene_id", "GeneID").
	Project("scope_id", "ScopeID").
	Project("schema_id", "SchemaID").
	Project("schema_version", "SchemaVersion").
	Project("status", "Status").
	Project("workflow_stage", "Stage").
	Project("evidence_data", "Evidence").
	Project("computed_scores", "Scores").
	Project("computed_fields", "ComputedFields").
	Project("is_draft", "IsDraft").
	Project("lock_version", "LockVersion").
	Project("precuration_id", "PrecurationID").
	Project("created_by", "CreatedBy").
	Project("updated_by", "UpdatedBy").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

// summaryProjection omits the JSONB payloads and surfaces the stored
// classification for list views.
var summaryProjection = query.
	NewProjectionMap("public", "records", "r").
	Project("id", "ID").
	Project("record_type", "RecordType").
	Project("gene_id", "GeneID").
	Project("scope_id", "ScopeID").
	Project("schema_id", "SchemaID").
	Project("schema_version", "SchemaVersion").
	Project("status", "Status").
	Project("workflow_stage", "Stage").
	Project("computed_fields->>'classification'", "Classification").
	Project("is_draft", "IsDraft").
	Project("lock_version", "LockVersion").
	Project("created_by", "CreatedBy").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for record queries.
type Filters struct {
	RecordType *Type         `json:"record_type,omitempty"`
	GeneID     *uuid.UUID    `json:"gene_id,omitempty"`
	ScopeID    *uuid.UUID    `json:"scope_id,omitempty"`
	SchemaID   *uuid.UUID    `json:"schema_id,omitempty"`
	Status     *Status       `json:"status,omitempty"`
	Stage      *schema.Stage `json:"workflow_stage,omitempty"`
}

// Apply adds filter conditions to a query builder. Archived records are
// excluded unless explicitly requested via the status filter.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("RecordType", f.RecordType).
		WhereEquals("GeneID", f.GeneID).
		WhereEquals("ScopeID", f.ScopeID).
		WhereEquals("SchemaID", f.SchemaID).
		WhereEquals("Stage", f.Stage)

	if f.Status != nil {
		b.WhereEquals("Status", f.Status)
	} else {
		b.WhereNot("Status", StatusArchived)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("record_type"); v != "" {
		t := Type(v)
		f.RecordType = &t
	}

	if v := values.Get("gene_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.GeneID = &id
		}
	}

	if v := values.Get("scope_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.ScopeID = &id
		}
	}

	if v := values.Get("schema_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.SchemaID = &id
		}
	}

	if v := values.Get("status"); v != "" {
		s := Status(v)
		f.Status = &s
	}

	if v := values.Get("stage"); v != "" {
		if s, err := schema.ParseStage(v); err == nil {
			f.Stage = &s
		}
	}

	return f
}

// ScanRecord scans a full record row in Columns order.
func ScanRecord(s repository.Scanner) (Record, error) {
	var (
		rec      Record
		evidence []byte
		scores   []byte
		computed []byte
	)

	err := s.Scan(
		&rec.ID,
		&rec.RecordType,
		&rec.GeneID,
		&rec.ScopeID,
		&rec.SchemaID,
		&rec.SchemaVersion,
		&rec.Status,
		&rec.Stage,
		&evidence,
		&scores,
		&computed,
		&rec.IsDraft,
		&rec.LockVersion,
		&rec.PrecurationID,
		&rec.CreatedBy,
		&rec.UpdatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return rec, err
	}

	if err := json.Unmarshal(evidence, &rec.Evidence); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(scores, &rec.Scores); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(computed, &rec.ComputedFields); err != nil {
		return rec, err
	}

	return rec, nil
}

func scanSummary(s repository.Scanner) (Summary, error) {
	var (
		sum            Summary
		classification sql.NullString
	)

	err := s.Scan(
		&sum.ID,
		&sum.RecordType,
		&sum.GeneID,
		&sum.ScopeID,
		&sum.SchemaID,
		&sum.SchemaVersion,
		&sum.Status,
		&sum.Stage,
		&classification,
		&sum.IsDraft,
		&sum.LockVersion,
		&sum.CreatedBy,
		&sum.UpdatedAt,
	)
	if err != nil {
		return sum, err
	}

	sum.Classification = classification.String
	return sum, nil
}

func scanTransition(s repository.Scanner) (Transition, error) {
	var t Transition
	err := s.Scan(
		&t.ID,
		&t.RecordID,
		&t.FromStage,
		&t.ToStage,
		&t.FromStatus,
		&t.ToStatus,
		&t.ActorID,
		&t.Notes,
		&t.CreatedAt,
	)
	return t, err
}
