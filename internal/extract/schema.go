package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/istmo-digital/docintel/constants"
)

// BuildRecordJSONSchema returns the JSON-Schema (draft 2020-12 subset) that
// every persisted ExtractedRecord must satisfy.
func BuildRecordJSONSchema() map[string]any {
	fieldValue := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":      map[string]any{"type": "string"},
			"number":     map[string]any{"type": "number"},
			"normalized": map[string]any{"type": "boolean"},
			"provenance": map[string]any{
				"type": "string",
				"enum": []string{string(ProvenanceText), string(ProvenanceQuery), string(ProvenanceInferred)},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 100.0},
		},
		"required": []string{"value", "provenance"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"document_type": map[string]any{
				"type": "string",
				"enum": []string{
					string(constants.DocTypeIdentity), string(constants.DocTypeContract),
					string(constants.DocTypeFinancial), string(constants.DocTypeGeneric),
					string(constants.DocTypeUnknown),
				},
			},
			"type_id": map[string]any{"type": "string", "minLength": 1},
			"fields": map[string]any{
				"type":                 "object",
				"additionalProperties": fieldValue,
			},
			"source_channel": map[string]any{
				"type": "string",
				"enum": []string{string(ChannelTextRegex), string(ChannelTargetedQuery), string(ChannelReconciled)},
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 0.95},
			"validation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"errors":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"warnings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"is_valid": map[string]any{"type": "boolean"},
				},
				"required": []string{"is_valid"},
			},
		},
		"required": []string{"document_type", "type_id", "fields", "source_channel", "confidence", "validation"},
	}
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		schemaBytes, err := json.Marshal(BuildRecordJSONSchema())
		if err != nil {
			recordSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.json", bytes.NewReader(schemaBytes)); err != nil {
			recordSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = compiler.Compile("record.json")
	})
	return recordSchema, recordSchemaErr
}

// ValidateRecordJSON validates a serialized record against the record schema.
func ValidateRecordJSON(data []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}

// MarshalRecord serializes a record after checking it against the schema.
// Records persisted through the repositories go through this gate so that
// malformed payloads never reach the database.
func MarshalRecord(record *ExtractedRecord) ([]byte, error) {
	if record.Fields == nil {
		record.Fields = map[string]FieldValue{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	if err := ValidateRecordJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}
