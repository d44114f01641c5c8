package schema

import "fmt"

// ToJSONSchema projects a definition into a generic JSON-Schema-like
// structure for form-rendering collaborators. Every field type has a
// mapping; a definition field that produced no property would render an
// unusable form, so unknown types panic rather than drop silently.
func ToJSONSchema(def Definition) map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, section := range def.Sections {
		for _, field := range section.Fields {
			properties[field.ID] = fieldSchema(field)
			if field.Required && field.Condition == nil {
				required = append(required, field.ID)
			}
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func fieldSchema(field Field) map[string]any {
	prop := map[string]any{
		"title": field.Label,
	}

	switch field.Type {
	case FieldText:
		prop["type"] = "string"
	case FieldTextarea:
		prop["type"] = "string"
		prop["x-display"] = "textarea"
	case FieldNumber:
		prop["type"] = "number"
	case FieldBoolean:
		prop["type"] = "boolean"
	case FieldDate:
		prop["type"] = "string"
		prop["format"] = "date"
	case FieldSelect:
		prop["type"] = "string"
		prop["enum"] = optionValues(field.Options)
	case FieldMultiselect:
		prop["type"] = "array"
		prop["items"] = map[string]any{
			"type": "string",
			"enum": optionValues(field.Options),
		}
	case FieldReference:
		prop["type"] = "string"
		if field.Pattern != "" {
			prop["pattern"] = field.Pattern
		}
	case FieldObject:
		prop["type"] = "object"
		nested := make(map[string]any)
		nestedRequired := make([]string, 0)
		for _, child := range field.Fields {
			nested[child.ID] = fieldSchema(child)
			if child.Required && child.Condition == nil {
				nestedRequired = append(nestedRequired, child.ID)
			}
		}
		prop["properties"] = nested
		prop["required"] = nestedRequired
	case FieldArray:
		prop["type"] = "array"
		if field.Items != nil {
			prop["items"] = fieldSchema(*field.Items)
		}
	default:
		panic(fmt.Sprintf("schema: no JSON-Schema mapping for field type %q", field.Type))
	}

	if field.Condition != nil {
		prop["x-condition"] = field.Condition
	}

	return prop
}

func optionValues(options []Option) []string {
	values := make([]string, len(options))
	for i, opt := range options {
		values[i] = opt.Value
	}
	return values
}
