package unifiedllm

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[reflect.Type]*jsonschema.Schema)
)

// RegisterType maps a custom Go type to a JSON Schema type/format in
// generated schemas. emptyInstance is a value of the type (e.g. uuid.UUID{});
// jsonType is the JSON Schema type ("string", "number", ...); format is
// optional. Pointer fields (*T) use the same mapping as T. Call at startup,
// before the first NewTool.
func RegisterType(emptyInstance any, jsonType, format string) {
	if emptyInstance == nil {
		panic("unifiedllm: RegisterType emptyInstance must not be nil")
	}
	if jsonType == "" {
		panic("unifiedllm: RegisterType jsonType must not be empty")
	}
	t := reflect.TypeOf(emptyInstance)
	s := &jsonschema.Schema{Type: jsonType, Format: format}
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[t] = s
}

func buildTypeSchemas() map[reflect.Type]*jsonschema.Schema {
	customTypesMu.RLock()
	defer customTypesMu.RUnlock()
	out := make(map[reflect.Type]*jsonschema.Schema, len(customTypes))
	for t, s := range customTypes {
		if s != nil {
			out[t] = s.CloneSchemas()
		}
	}
	return out
}

var errNilSchema = errors.New("schema reflection returned nil")

// generateSchema produces the JSON Schema map and a compiled validator for
// argument type T. Called once per tool, at construction time. strict sets
// additionalProperties: false on every object (OpenAI Structured Outputs).
func generateSchema[T any](strict bool) (map[string]any, *jsonschema.Resolved, error) {
	opts := &jsonschema.ForOptions{TypeSchemas: buildTypeSchemas()}
	schema, err := jsonschema.For[T](opts)
	if err != nil {
		return nil, nil, err
	}
	if schema == nil {
		return nil, nil, errNilSchema
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, nil, err
	}
	enrichSchemaFromStructTags(schemaMap, reflect.TypeOf(*new(T)))
	if strict {
		applyStrictMode(schemaMap)
	}
	stripSchemaIDs(schemaMap)
	resolved, err := compileRawSchema(schemaMap)
	if err != nil {
		return nil, nil, err
	}
	return schemaMap, resolved, nil
}

// enrichSchemaFromStructTags copies description, enum, and default struct
// tags into the root-level properties. The json tag (first part before the
// comma) matches property keys. Defaults are parsed as JSON scalars first,
// falling back to plain strings.
func enrichSchemaFromStructTags(schemaMap map[string]any, typ reflect.Type) {
	if schemaMap == nil || typ == nil {
		return
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return
	}
	props, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return
	}
	jsonToField := make(map[string]reflect.StructField)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		jsonToField[jsonTag] = field
	}
	for key, val := range props {
		prop, ok := val.(map[string]any)
		if !ok {
			continue
		}
		field, ok := jsonToField[key]
		if !ok {
			continue
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]any, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			prop["enum"] = enum
		}
		if defStr, ok := field.Tag.Lookup("default"); ok {
			prop["default"] = parseDefaultTag(defStr)
		}
	}
}

func parseDefaultTag(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// walkSchema visits every map node in the schema tree, including $defs.
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					walkSchema(m, visit)
				}
			}
		}
	}
}

// applyStrictMode sets additionalProperties: false and full required lists on
// every object in the schema.
func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		if props, isObj := n["properties"].(map[string]any); isObj {
			n["additionalProperties"] = false
			keys := make([]string, 0, len(props))
			for k := range props {
				keys = append(keys, k)
			}
			if len(keys) > 0 {
				slices.Sort(keys)
				required := make([]any, len(keys))
				for i, k := range keys {
					required[i] = k
				}
				n["required"] = required
			}
		}
	})
}

// compileRawSchema compiles a raw schema map into a resolved validator
// without mutating the map.
func compileRawSchema(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}

// stripSchemaIDs removes id and $id so resolution does not depend on them.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}

// applyDefaults fills absent top-level properties that declare a "default" in
// the schema into the parsed argument object. Reports whether anything
// changed.
func applyDefaults(schemaMap map[string]any, args map[string]any) bool {
	props, ok := schemaMap["properties"].(map[string]any)
	if !ok {
		return false
	}
	changed := false
	for key, val := range props {
		prop, ok := val.(map[string]any)
		if !ok {
			continue
		}
		def, ok := prop["default"]
		if !ok {
			continue
		}
		if _, present := args[key]; !present {
			args[key] = def
			changed = true
		}
	}
	return changed
}
