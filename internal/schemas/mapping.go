package schemas

import (
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/genomecurate/curia/pkg/query"
	"github.com/genomecurate/curia/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "curation_schemas", "s").
	Project("id", "ID").
	Project("name", "Name").
	Project("version", "Version").
	Project("schema_type", "SchemaType").
	Project("field_definitions", "Definition").
	Project("validation_rules", "Rules").
	Project("workflow_states", "Transitions").
	Project("scoring_configuration", "Scoring").
	Project("is_active", "IsActive").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "Name"},
	{Field: "Version", Descending: true},
}

// Filters contains optional filtering criteria for schema queries.
type Filters struct {
	Name       *string `json:"name,omitempty"`
	SchemaType *string `json:"schema_type,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Name", f.Name).
		WhereEquals("SchemaType", f.SchemaType).
		WhereEquals("IsActive", f.IsActive)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if st := values.Get("schema_type"); st != "" {
		f.SchemaType = &st
	}

	if a := values.Get("is_active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.IsActive = &v
		}
	}

	return f
}

func scanSchema(s repository.Scanner) (CurationSchema, error) {
	var (
		cs          CurationSchema
		definition  []byte
		rules       []byte
		transitions []byte
		scoringCfg  []byte
	)

	err := s.Scan(
		&cs.ID,
		&cs.Name,
		&cs.Version,
		&cs.SchemaType,
		&definition,
		&rules,
		&transitions,
		&scoringCfg,
		&cs.IsActive,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		return cs, err
	}

	if err := json.Unmarshal(definition, &cs.Definition); err != nil {
		return cs, err
	}
	if err := json.Unmarshal(rules, &cs.Rules); err != nil {
		return cs, err
	}
	if err := json.Unmarshal(transitions, &cs.Transitions); err != nil {
		return cs, err
	}
	if err := json.Unmarshal(scoringCfg, &cs.Scoring); err != nil {
		return cs, err
	}

	return cs, nil
}

func marshalParts(cmd UpdateCommand) (definition, rules, transitions, scoringCfg []byte, err error) {
	if definition, err = json.Marshal(cmd.Definition); err != nil {
		return
	}
	if rules, err = json.Marshal(cmd.Rules); err != nil {
		return
	}
	if transitions, err = json.Marshal(cmd.Transitions); err != nil {
		return
	}
	scoringCfg, err = json.Marshal(cmd.Scoring)
	return
}
