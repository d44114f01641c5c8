// Package schema defines the user-authored curation schema model:
// field definitions, validation rules, workflow stage transitions,
// and the validator that checks evidence documents against them.
package schema

import (
	"encoding/json"
	"slices"
)

// Type categorizes what part of the curation workflow a schema drives.
type Type string

// Valid schema types.
const (
	TypePrecuration Type = "precuration"
	TypeCuration    Type = "curation"
	TypeCombined    Type = "combined"
)

var types = []Type{
	TypePrecuration,
	TypeCuration,
	TypeCombined,
}

// Types returns the list of valid schema types.
func Types() []Type {
	return types
}

// UnmarshalJSON validates that the decoded string is a known schema type.
func (t *Type) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Type(raw)
	if !slices.Contains(types, v) {
		return ErrInvalidType
	}
	*t = v
	return nil
}

// ParseType validates a string as a known schema type.
func ParseType(s string) (Type, error) {
	v := Type(s)
	if !slices.Contains(types, v) {
		return "", ErrInvalidType
	}
	return v, nil
}

// Stage represents a workflow stage an evidence record can occupy.
type Stage string

// Valid workflow stages.
const (
	StageEntry       Stage = "entry"
	StagePrecuration Stage = "precuration"
	StageCuration    Stage = "curation"
	StageReview      Stage = "review"
	StageActive      Stage = "active"
)

var stages = []Stage{
	StageEntry,
	StagePrecuration,
	StageCuration,
	StageReview,
	StageActive,
}

// Stages returns the list of valid workflow stages.
func Stages() []Stage {
	return stages
}

// ParseStage validates a string as a known workflow stage.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}

// Transitions maps each stage to the set of stages a record may move to next.
// A schema declares only the stages it uses; an absent stage has no legal
// transitions.
type Transitions map[Stage][]Stage

// Allows reports whether moving from one stage to another is legal.
func (t Transitions) Allows(from, to Stage) bool {
	return slices.Contains(t[from], to)
}

// FieldType identifies the structural kind of a schema field.
type FieldType string

// Valid field types.
const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldBoolean     FieldType = "boolean"
	FieldDate        FieldType = "date"
	FieldSelect      FieldType = "select"
	FieldMultiselect FieldType = "multiselect"
	FieldReference   FieldType = "reference"
	FieldObject      FieldType = "object"
	FieldArray       FieldType = "array"
)

var fieldTypes = []FieldType{
	FieldText,
	FieldTextarea,
	FieldNumber,
	FieldBoolean,
	FieldDate,
	FieldSelect,
	FieldMultiselect,
	FieldReference,
	FieldObject,
	FieldArray,
}

// FieldTypes returns the list of valid field types.
func FieldTypes() []FieldType {
	return fieldTypes
}

// Option is a single selectable value for select and multiselect fields.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field describes one evidence field: its identity, structural type, and
// the nested schema for object and array fields. Condition controls
// conditional display and is evaluated against the candidate evidence.
type Field struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Type      FieldType  `json:"type"`
	Required  bool       `json:"required"`
	Options   []Option   `json:"options,omitempty"`
	Pattern   string     `json:"pattern,omitempty"`
	Condition *Predicate `json:"condition,omitempty"`
	Fields    []Field    `json:"fields,omitempty"`
	Items     *Field     `json:"items,omitempty"`
}

// Section groups related fields for form layout.
type Section struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Fields []Field `json:"fields"`
}

// Definition is the ordered field layout of a curation schema.
type Definition struct {
	Sections []Section `json:"sections"`
}

// FieldCount returns the number of top-level fields across all sections.
func (d Definition) FieldCount() int {
	count := 0
	for _, s := range d.Sections {
		count += len(s.Fields)
	}
	return count
}

// ConditionalRequirement marks a field required only when its predicate
// evaluates true against the candidate evidence.
type ConditionalRequirement struct {
	Field string    `json:"field"`
	When  Predicate `json:"when"`
}

// PatternRule applies a named regular expression to a field's string value.
type PatternRule struct {
	Name    string `json:"name"`
	Field   string `json:"field"`
	Pattern string `json:"pattern"`
	Message string `json:"message,omitempty"`
}

// Rules holds the validation rules of a schema beyond structural typing.
type Rules struct {
	Required            []string                 `json:"required,omitempty"`
	ConditionalRequired []ConditionalRequirement `json:"conditional_required,omitempty"`
	Patterns            []PatternRule            `json:"patterns,omitempty"`
}

// FieldError reports a single validation failure scoped to a field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of validating an evidence document.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

func (r *Result) add(path, message string) {
	r.Errors = append(r.Errors, FieldError{Path: path, Message: message})
}

// dedupe keeps the first error per field path. A field declared required in
// its definition and again in the rules would otherwise report twice.
func (r *Result) dedupe() {
	seen := make(map[string]struct{}, len(r.Errors))
	kept := r.Errors[:0]
	for _, e := range r.Errors {
		if _, ok := seen[e.Path]; ok {
			continue
		}
		seen[e.Path] = struct{}{}
		kept = append(kept, e)
	}
	r.Errors = kept
}

func newResult() Result {
	return Result{Valid: true, Errors: []FieldError{}}
}
