package schema_test

import (
	"fmt"
	"testing"

	"github.com/genomecurate/curia/pkg/schema"
)

func testDefinition() schema.Definition {
	return schema.Definition{
		Sections: []schema.Section{
			{
				ID:    "gene_disease",
				Label: "Gene / Disease",
				Fields: []schema.Field{
					{ID: "gene_symbol", Label: "Gene Symbol", Type: schema.FieldText, Required: true},
					{ID: "disease_id", Label: "Disease", Type: schema.FieldReference, Pattern: `^MONDO:\d{7}$`},
					{ID: "mode_of_inheritance", Label: "Mode of Inheritance", Type: schema.FieldSelect, Options: []schema.Option{
						{Value: "autosomal_dominant", Label: "Autosomal Dominant"},
						{Value: "autosomal_recessive", Label: "Autosomal Recessive"},
						{Value: "other", Label: "Other"},
					}},
					{ID: "onset_date", Label: "Onset", Type: schema.FieldDate},
					{ID: "assertion_count", Label: "Assertions", Type: schema.FieldNumber},
					{ID: "published", Label: "Published", Type: schema.FieldBoolean},
					{ID: "tags", Label: "Tags", Type: schema.FieldMultiselect, Options: []schema.Option{
						{Value: "lumping", Label: "Lumping"},
						{Value: "splitting", Label: "Splitting"},
					}},
				},
			},
			{
				ID:    "evidence",
				Label: "Evidence",
				Fields: []schema.Field{
					{ID: "summary", Label: "Summary", Type: schema.FieldObject, Fields: []schema.Field{
						{ID: "conclusion", Label: "Conclusion", Type: schema.FieldText, Required: true},
						{ID: "confidence", Label: "Confidence", Type: schema.FieldNumber},
					}},
					{ID: "variants", Label: "Variants", Type: schema.FieldArray, Items: &schema.Field{
						ID: "variant", Label: "Variant", Type: schema.FieldObject, Fields: []schema.Field{
							{ID: "hgvs", Label: "HGVS", Type: schema.FieldText},
							{ID: "points", Label: "Points", Type: schema.FieldNumber},
						},
					}},
				},
			},
		},
	}
}

func validEvidence() map[string]any {
	return map[string]any{
		"gene_symbol":         "BRCA2",
		"disease_id":          "MONDO:0012345",
		"mode_of_inheritance": "autosomal_dominant",
		"onset_date":          "2024-03-01",
		"assertion_count":     float64(3),
		"published":           true,
		"tags":                []any{"lumping"},
		"summary": map[string]any{
			"conclusion": "definitive association",
			"confidence": float64(0.9),
		},
		"variants": []any{
			map[string]any{"hgvs": "c.1310_1313del", "points": float64(2)},
		},
	}
}

func errorPaths(result schema.Result) map[string]bool {
	paths := make(map[string]bool, len(result.Errors))
	for _, e := range result.Errors {
		paths[e.Path] = true
	}
	return paths
}

func TestValidateAccepts(t *testing.T) {
	result := schema.Validate(testDefinition(), schema.Rules{}, validEvidence())
	if !result.Valid {
		t.Fatalf("Validate() invalid, errors: %v", result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Validate() errors = %v, want none", result.Errors)
	}
}

func TestValidateTypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"text gets number", "gene_symbol", float64(42)},
		{"number gets text", "assertion_count", "three"},
		{"boolean gets text", "published", "yes"},
		{"date not parseable", "onset_date", "March 1st"},
		{"select not an option", "mode_of_inheritance", "x_linked"},
		{"reference bad format", "disease_id", "OMIM:123"},
		{"object gets scalar", "summary", "summary text"},
		{"array gets scalar", "variants", "v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence := validEvidence()
			evidence[tt.field] = tt.value

			result := schema.Validate(testDefinition(), schema.Rules{}, evidence)
			if result.Valid {
				t.Fatal("Validate() valid, want type error")
			}
			if !errorPaths(result)[tt.field] {
				t.Errorf("no error at path %q, got %v", tt.field, result.Errors)
			}
		})
	}
}

func TestValidateNestedPaths(t *testing.T) {
	evidence := validEvidence()
	evidence["summary"] = map[string]any{
		"conclusion": "ok",
		"confidence": "high",
	}
	evidence["variants"] = []any{
		map[string]any{"hgvs": "c.1A>G", "points": float64(1)},
		map[string]any{"hgvs": float64(7), "points": float64(1)},
	}

	result := schema.Validate(testDefinition(), schema.Rules{}, evidence)
	if result.Valid {
		t.Fatal("Validate() valid, want nested errors")
	}

	paths := errorPaths(result)
	if !paths["summary.confidence"] {
		t.Errorf("no error at summary.confidence, got %v", result.Errors)
	}
	if !paths["variants[1].hgvs"] {
		t.Errorf("no error at variants[1].hgvs, got %v", result.Errors)
	}
}

func TestValidateRequired(t *testing.T) {
	evidence := validEvidence()
	delete(evidence, "gene_symbol")
	evidence["summary"] = map[string]any{"confidence": float64(0.5)}

	result := schema.Validate(testDefinition(), schema.Rules{}, evidence)
	if result.Valid {
		t.Fatal("Validate() valid, want required errors")
	}

	paths := errorPaths(result)
	if !paths["gene_symbol"] {
		t.Errorf("no error at gene_symbol, got %v", result.Errors)
	}
	if !paths["summary.conclusion"] {
		t.Errorf("no error at summary.conclusion, got %v", result.Errors)
	}
}

// A field whose select value pulls in a dependent requirement: choosing
// "other" for mode of inheritance makes the lumping/splitting rationale
// mandatory.
func TestValidateConditionalRequired(t *testing.T) {
	rules := schema.Rules{
		ConditionalRequired: []schema.ConditionalRequirement{
			{
				Field: "lumping_splitting_rationale",
				When: schema.Predicate{
					Field:    "mode_of_inheritance",
					Operator: schema.OpEquals,
					Value:    "other",
				},
			},
		},
	}

	t.Run("predicate false leaves field optional", func(t *testing.T) {
		result := schema.Validate(testDefinition(), rules, validEvidence())
		if !result.Valid {
			t.Errorf("Validate() invalid, errors: %v", result.Errors)
		}
	})

	t.Run("predicate true requires field", func(t *testing.T) {
		evidence := validEvidence()
		evidence["mode_of_inheritance"] = "other"

		result := schema.Validate(testDefinition(), rules, evidence)
		if result.Valid {
			t.Fatal("Validate() valid, want conditional required error")
		}
		if !errorPaths(result)["lumping_splitting_rationale"] {
			t.Errorf("no error at lumping_splitting_rationale, got %v", result.Errors)
		}
	})

	t.Run("predicate true and field present", func(t *testing.T) {
		evidence := validEvidence()
		evidence["mode_of_inheritance"] = "other"
		evidence["lumping_splitting_rationale"] = "distinct phenotype spectrum"

		result := schema.Validate(testDefinition(), rules, evidence)
		if !result.Valid {
			t.Errorf("Validate() invalid, errors: %v", result.Errors)
		}
	})
}

func TestValidateAbsentOptionalObject(t *testing.T) {
	// summary itself is optional; leaving it out must not surface its
	// required children. Anything else would reject evidence the
	// ToJSONSchema projection declares valid.
	evidence := validEvidence()
	delete(evidence, "summary")

	result := schema.Validate(testDefinition(), schema.Rules{}, evidence)
	if !result.Valid {
		t.Fatalf("Validate() invalid, errors: %v", result.Errors)
	}
	if errorPaths(result)["summary.conclusion"] {
		t.Errorf("required child enforced under absent optional object: %v", result.Errors)
	}
}

func TestValidateDuplicateRequiredDeclarations(t *testing.T) {
	// gene_symbol is required by its field definition and again by the
	// rules; a missing value still reports exactly once for the path.
	rules := schema.Rules{Required: []string{"gene_symbol"}}
	evidence := validEvidence()
	delete(evidence, "gene_symbol")

	result := schema.Validate(testDefinition(), rules, evidence)
	if result.Valid {
		t.Fatal("Validate() valid, want required error")
	}

	count := 0
	for _, e := range result.Errors {
		if e.Path == "gene_symbol" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("errors at gene_symbol = %d, want 1: %v", count, result.Errors)
	}
}

func TestValidateConditionalDisplay(t *testing.T) {
	def := schema.Definition{
		Sections: []schema.Section{
			{ID: "s", Fields: []schema.Field{
				{ID: "has_panel", Type: schema.FieldBoolean},
				{
					ID:       "panel_name",
					Type:     schema.FieldText,
					Required: true,
					Condition: &schema.Predicate{
						Field:    "has_panel",
						Operator: schema.OpEquals,
						Value:    true,
					},
				},
			}},
		},
	}

	t.Run("hidden field is not required", func(t *testing.T) {
		result := schema.Validate(def, schema.Rules{}, map[string]any{"has_panel": false})
		if !result.Valid {
			t.Errorf("Validate() invalid, errors: %v", result.Errors)
		}
	})

	t.Run("shown field is required", func(t *testing.T) {
		result := schema.Validate(def, schema.Rules{}, map[string]any{"has_panel": true})
		if result.Valid {
			t.Fatal("Validate() valid, want required error for panel_name")
		}
	})
}

func TestValidatePatternRules(t *testing.T) {
	rules := schema.Rules{
		Patterns: []schema.PatternRule{
			{Name: "hgnc", Field: "gene_symbol", Pattern: `^[A-Z0-9]+$`, Message: "gene symbols are uppercase"},
		},
	}

	t.Run("match passes", func(t *testing.T) {
		result := schema.Validate(testDefinition(), rules, validEvidence())
		if !result.Valid {
			t.Errorf("Validate() invalid, errors: %v", result.Errors)
		}
	})

	t.Run("mismatch yields field error", func(t *testing.T) {
		evidence := validEvidence()
		evidence["gene_symbol"] = "brca2"

		result := schema.Validate(testDefinition(), rules, evidence)
		if result.Valid {
			t.Fatal("Validate() valid, want pattern error")
		}
		if result.Errors[0].Message != "gene symbols are uppercase" {
			t.Errorf("message = %q, want custom message", result.Errors[0].Message)
		}
	})

	t.Run("absent field is skipped", func(t *testing.T) {
		evidence := validEvidence()
		delete(evidence, "gene_symbol")

		result := schema.Validate(testDefinition(), rules, evidence)
		for _, e := range result.Errors {
			if e.Message == "gene symbols are uppercase" {
				t.Errorf("pattern applied to absent field: %v", result.Errors)
			}
		}
	})
}

func TestValidateTypesSkipsRequired(t *testing.T) {
	// Draft-save pass: empty evidence is structurally fine even though
	// required fields are missing.
	result := schema.ValidateTypes(testDefinition(), map[string]any{})
	if !result.Valid {
		t.Errorf("ValidateTypes() invalid, errors: %v", result.Errors)
	}

	result = schema.ValidateTypes(testDefinition(), map[string]any{"published": "yes"})
	if result.Valid {
		t.Error("ValidateTypes() valid, want type error for published")
	}
}

func TestValidateUnknownFieldTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Validate() did not panic on unknown field type")
		}
	}()

	def := schema.Definition{
		Sections: []schema.Section{
			{ID: "s", Fields: []schema.Field{{ID: "f", Type: schema.FieldType("hologram")}}},
		},
	}
	schema.Validate(def, schema.Rules{}, map[string]any{"f": "x"})
}

func TestValidateMultiselectOptionPaths(t *testing.T) {
	evidence := validEvidence()
	evidence["tags"] = []any{"lumping", "merging"}

	result := schema.Validate(testDefinition(), schema.Rules{}, evidence)
	if result.Valid {
		t.Fatal("Validate() valid, want option error")
	}
	if !errorPaths(result)[fmt.Sprintf("tags[%d]", 1)] {
		t.Errorf("no error at tags[1], got %v", result.Errors)
	}
}
