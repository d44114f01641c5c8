package pairs

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"

	"github.com/genomecurate/curia/pkg/query"
	"github.com/genomecurate/curia/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "workflow_pairs", "p").
	Project("id", "ID").
	Project("precuration_schema_id", "PrecurationSchemaID").
	Project("curation_schema_id", "CurationSchemaID").
	Project("scope_id", "ScopeID").
	Project("data_mapping", "DataMapping").
	Project("workflow_config", "Config").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for pair queries.
type Filters struct {
	PrecurationSchemaID *uuid.UUID `json:"precuration_schema_id,omitempty"`
	CurationSchemaID    *uuid.UUID `json:"curation_schema_id,omitempty"`
	ScopeID             *uuid.UUID `json:"scope_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("PrecurationSchemaID", f.PrecurationSchemaID).
		WhereEquals("CurationSchemaID", f.CurationSchemaID).
		WhereEquals("ScopeID", f.ScopeID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("precuration_schema_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.PrecurationSchemaID = &id
		}
	}

	if v := values.Get("curation_schema_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.CurationSchemaID = &id
		}
	}

	if v := values.Get("scope_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.ScopeID = &id
		}
	}

	return f
}

func marshalPair(rules []MappingRule, cfg WorkflowConfig) (mapping, config []byte, err error) {
	if rules == nil {
		rules = []MappingRule{}
	}
	if mapping, err = json.Marshal(rules); err != nil {
		return
	}
	config, err = json.Marshal(cfg)
	return
}

func scanPair(s repository.Scanner) (WorkflowPair, error) {
	var (
		p       WorkflowPair
		mapping []byte
		config  []byte
	)

	err := s.Scan(
		&p.ID,
		&p.PrecurationSchemaID,
		&p.CurationSchemaID,
		&p.ScopeID,
		&mapping,
		&config,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(mapping, &p.DataMapping); err != nil {
		return p, err
	}
	if err := json.Unmarshal(config, &p.Config); err != nil {
		return p, err
	}

	return p, nil
}
