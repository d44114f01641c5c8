package schema

import (
	"fmt"
	"regexp"
	"time"
)

// Validate checks an evidence document against a schema's field definitions
// and validation rules. All failures are returned as field-path errors;
// the only panic path is a definition declaring an unknown field type,
// which is a programmer error in the schema author's tooling.
func Validate(def Definition, rules Rules, evidence map[string]any) Result {
	result := ValidateTypes(def, evidence)

	for _, section := range def.Sections {
		checkRequiredFields(&result, section.Fields, "", evidence)
	}

	for _, path := range rules.Required {
		if isEmpty(lookupOrNil(evidence, path)) {
			result.add(path, "required field is missing")
		}
	}

	for _, cond := range rules.ConditionalRequired {
		if !cond.When.Eval(evidence) {
			continue
		}
		if isEmpty(lookupOrNil(evidence, cond.Field)) {
			result.add(cond.Field, "required field is missing")
		}
	}

	for _, rule := range rules.Patterns {
		checkPattern(&result, rule, evidence)
	}

	result.dedupe()
	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateTypes performs the structural-typing pass only. Draft saves use
// this so partial evidence can be persisted without required-field checks.
func ValidateTypes(def Definition, evidence map[string]any) Result {
	result := newResult()

	for _, section := range def.Sections {
		checkFieldTypes(&result, section.Fields, "", evidence)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func checkFieldTypes(result *Result, fields []Field, prefix string, evidence map[string]any) {
	for _, field := range fields {
		path := joinPath(prefix, field.ID)
		value, ok := Lookup(evidence, path)
		if !ok || value == nil {
			continue
		}
		checkValue(result, field, path, value, evidence)
	}
}

func checkValue(result *Result, field Field, path string, value any, evidence map[string]any) {
	switch field.Type {
	case FieldText, FieldTextarea:
		if _, ok := value.(string); !ok {
			result.add(path, "expected text value")
		}
	case FieldNumber:
		if _, ok := toFloat(value); !ok {
			result.add(path, "expected numeric value")
		}
	case FieldBoolean:
		if _, ok := value.(bool); !ok {
			result.add(path, "expected boolean value")
		}
	case FieldDate:
		s, ok := value.(string)
		if !ok {
			result.add(path, "expected date string")
			return
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			result.add(path, "expected date in YYYY-MM-DD format")
		}
	case FieldSelect:
		s, ok := value.(string)
		if !ok {
			result.add(path, "expected selected option")
			return
		}
		if !validOption(field.Options, s) {
			result.add(path, fmt.Sprintf("value %q is not an allowed option", s))
		}
	case FieldMultiselect:
		items, ok := value.([]any)
		if !ok {
			result.add(path, "expected list of selected options")
			return
		}
		for i, item := range items {
			s, ok := item.(string)
			if !ok || !validOption(field.Options, s) {
				result.add(fmt.Sprintf("%s[%d]", path, i), "value is not an allowed option")
			}
		}
	case FieldReference:
		s, ok := value.(string)
		if !ok {
			result.add(path, "expected reference identifier")
			return
		}
		if field.Pattern != "" {
			matched, err := regexp.MatchString(field.Pattern, s)
			if err != nil || !matched {
				result.add(path, fmt.Sprintf("identifier %q does not match required format", s))
			}
		}
	case FieldObject:
		nested, ok := value.(map[string]any)
		if !ok {
			result.add(path, "expected object value")
			return
		}
		for _, child := range field.Fields {
			childPath := joinPath(path, child.ID)
			childValue, present := nested[child.ID]
			if !present || childValue == nil {
				continue
			}
			checkValue(result, child, childPath, childValue, evidence)
		}
	case FieldArray:
		items, ok := value.([]any)
		if !ok {
			result.add(path, "expected array value")
			return
		}
		if field.Items == nil {
			return
		}
		for i, item := range items {
			checkValue(result, *field.Items, fmt.Sprintf("%s[%d]", path, i), item, evidence)
		}
	default:
		panic(fmt.Sprintf("schema: unknown field type %q at %s", field.Type, path))
	}
}

func checkRequiredFields(result *Result, fields []Field, prefix string, evidence map[string]any) {
	for _, field := range fields {
		path := joinPath(prefix, field.ID)

		// Hidden fields are never required.
		if field.Condition != nil && !field.Condition.Eval(evidence) {
			continue
		}

		if field.Required && isEmpty(lookupOrNil(evidence, path)) {
			result.add(path, "required field is missing")
			continue
		}

		if field.Type == FieldObject {
			// An absent optional object imposes nothing on its children.
			if value, ok := Lookup(evidence, path); !ok || value == nil {
				continue
			}
			checkRequiredFields(result, field.Fields, path, evidence)
		}
	}
}

func checkPattern(result *Result, rule PatternRule, evidence map[string]any) {
	value, ok := Lookup(evidence, rule.Field)
	if !ok || value == nil {
		return
	}

	s, ok := value.(string)
	if !ok || s == "" {
		return
	}

	matched, err := regexp.MatchString(rule.Pattern, s)
	if err != nil || !matched {
		message := rule.Message
		if message == "" {
			message = fmt.Sprintf("value does not match %s format", rule.Name)
		}
		result.add(rule.Field, message)
	}
}

func validOption(options []Option, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

func lookupOrNil(evidence map[string]any, path string) any {
	value, ok := Lookup(evidence, path)
	if !ok {
		return nil
	}
	return value
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func joinPath(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "." + id
}
