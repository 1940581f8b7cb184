package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCategorizationSchema describes the categorization response. Category
// values are not constrained to the vocabulary here; unknown labels are
// canonicalized during the merge. A null element means the model gave no
// answer for that item.
func BuildCategorizationSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": []string{"object", "null"},
			"properties": map[string]any{
				"category":         map[string]any{"type": "string"},
				"subcategory":      map[string]any{"type": "string"},
				"confidence":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"cleanDescription": map[string]any{"type": "string"},
			},
		},
	}
}

// BuildHeaderSchema describes the header enrichment response.
func BuildHeaderSchema() map[string]any {
	str := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"supplier_name":    str,
			"invoice_date":     map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"invoice_number":   str,
			"total_amount":     map[string]any{"type": "string", "pattern": `^-?\d+(\.\d+)?$`},
			"currency":         map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
			"payment_terms":    str,
			"line_items_count": map[string]any{"type": "integer", "minimum": 0},
			"invoice_type":     str,
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
