// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

package record

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID identifies the generated record schema document.
const SchemaID = "https://nyudlts.github.io/ultraviolet-access/record.schema.json"

// schemaCache holds the compiled schema to avoid recompilation.
var schemaCache *jschema.Schema

// GenerateSchema generates a JSON Schema for the record subset read by
// the permission layer.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		// Records carry many fields beyond the permission subset;
		// validation must not reject them.
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(&Record{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "UltraViolet Record (permission subset)"
	schema.Description = "Schema for the record fields read by access policies"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("record").Wrapf(err, "marshal schema")
	}
	return data, nil
}

// DecodeLoose parses a record document written in YAML or JSON (YAML is
// a superset of JSON, so both paths go through the YAML parser), then
// validates it against the generated schema before decoding into the
// typed Record. Intended for hand-written fixtures and CLI input; host
// requests carry records as JSON and use Decode directly.
func DecodeLoose(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, oops.In("record").
			Code("INVALID_RECORD").
			Errorf("record document is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.In("record").
			Code("INVALID_RECORD").
			Wrapf(err, "invalid record document")
	}
	doc = convertToJSONTypes(doc)

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, oops.In("record").Wrapf(err, "re-encode record document")
	}
	return Decode(jsonData)
}

// validateDocument checks a decoded document against the record schema.
func validateDocument(doc any) error {
	sch, err := getCompiledSchema()
	if err != nil {
		return oops.In("record").Wrapf(err, "compile record schema")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.In("record").
			Code("INVALID_RECORD").
			Wrapf(err, "record schema validation failed")
	}
	return nil
}

// getCompiledSchema returns the cached compiled schema or compiles it.
func getCompiledSchema() (*jschema.Schema, error) {
	if schemaCache != nil {
		return schemaCache, nil
	}

	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.In("record").Wrapf(err, "parse schema JSON")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("record.schema.json", schemaData); err != nil {
		return nil, oops.In("record").Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile("record.schema.json")
	if err != nil {
		return nil, oops.In("record").Wrapf(err, "compile schema")
	}

	schemaCache = sch
	return sch, nil
}

// convertToJSONTypes converts YAML-parsed data to JSON-compatible types.
// YAML produces map[string]any which is already compatible; nested
// structures are walked recursively.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = convertToJSONTypes(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = convertToJSONTypes(item)
		}
		return result
	case string, int, int64, float64, bool, nil:
		return val
	default:
		// Other YAML types go through a JSON round-trip.
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}
