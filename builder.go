package unifiedllm

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Validatable is implemented by argument structs that need custom business
// validation, run after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (map[string]any from
// json.Unmarshal). *jsonschema.Resolved implements it.
type schemaValidator interface {
	Validate(v any) error
}

// argValidator is implemented by tools that can check raw argument JSON
// against their schema without executing. Registry.Validate uses it when
// available.
type argValidator interface {
	ValidateArgs(argsJSON []byte) error
}

// tool is the internal Tool built by NewTool or NewDynamicTool.
type tool struct {
	name        string
	description string
	schema      map[string]any
	validator   schemaValidator
	execute     func(context.Context, []byte) ([]byte, error)
	opts        toolOptions
}

// NewTool builds a Tool from a typed function. The argument struct's json,
// description, enum, and default tags drive both the schema shown to the
// model and the validation of incoming JSON. Absent optional arguments that
// declare a default are filled in before fn runs. Schema generation failures
// return *SchemaError.
func NewTool[T any, R any](
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (Tool, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	schemaMap, resolved, err := generateSchema[T](o.strict)
	if err != nil {
		return nil, &SchemaError{Tool: name, Err: err}
	}
	execute := func(ctx context.Context, argsJSON []byte) ([]byte, error) {
		args, err := parseArgs[T](schemaMap, resolved, argsJSON)
		if err != nil {
			return nil, err
		}
		res, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(res)
		if err != nil {
			return nil, &ToolExecutionError{ToolName: name, Err: fmt.Errorf("result not serializable: %w", err)}
		}
		return b, nil
	}
	return &tool{
		name:        name,
		description: description,
		schema:      schemaMap,
		validator:   resolved,
		execute:     execute,
		opts:        o,
	}, nil
}

// NewDynamicTool creates a Tool from a raw JSON Schema map and a function
// that receives validated argument JSON. It is the schema-literal variant of
// NewTool: both produce the same Tool value, so tools derived from runtime
// definitions (external configs, remote catalogs) go through the same
// execution pipeline. The provided schemaMap is deep-copied, never mutated.
func NewDynamicTool(
	name, description string,
	schemaMap map[string]any,
	fn func(ctx context.Context, argsJSON []byte) ([]byte, error),
	opts ...ToolOption,
) (Tool, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	if schemaMap == nil {
		return nil, &SchemaError{Tool: name, Err: fmt.Errorf("schema map must not be nil")}
	}
	if fn == nil {
		return nil, &SchemaError{Tool: name, Err: fmt.Errorf("handler must not be nil")}
	}
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, &SchemaError{Tool: name, Err: err}
	}
	var schemaCopy map[string]any
	if err := json.Unmarshal(data, &schemaCopy); err != nil {
		return nil, &SchemaError{Tool: name, Err: err}
	}
	if o.strict {
		applyStrictMode(schemaCopy)
	}
	stripSchemaIDs(schemaCopy)
	compiled, err := compileRawSchema(schemaCopy)
	if err != nil {
		return nil, &SchemaError{Tool: name, Err: err}
	}
	execute := func(ctx context.Context, argsJSON []byte) ([]byte, error) {
		var v any
		if err := json.Unmarshal(argsJSON, &v); err != nil {
			return nil, wrapJSONParseError(err)
		}
		if err := validateAgainstSchema(compiled, v); err != nil {
			return nil, err
		}
		return fn(ctx, argsJSON)
	}
	return &tool{
		name:        name,
		description: description,
		schema:      schemaCopy,
		validator:   compiled,
		execute:     execute,
		opts:        o,
	}, nil
}

// parseArgs deserializes argsJSON into T: schema validation, default filling,
// then Validatable.Validate if T implements it. Validation failures come back
// as *ValidationError so the message can be sent to the model.
func parseArgs[T any](schemaMap map[string]any, validator schemaValidator, argsJSON []byte) (T, error) {
	var zero T
	if len(argsJSON) == 0 {
		argsJSON = []byte("{}")
	}
	var v any
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateAgainstSchema(validator, v); err != nil {
		return zero, err
	}
	if obj, ok := v.(map[string]any); ok {
		if applyDefaults(schemaMap, obj) {
			filled, err := json.Marshal(obj)
			if err != nil {
				return zero, wrapJSONParseError(err)
			}
			argsJSON = filled
		}
	}
	var args T
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateCustom(any(args)); err != nil {
		if IsValidationError(err) {
			return zero, err
		}
		return zero, &ValidationError{Reason: err.Error(), Err: ErrValidation}
	}
	return args, nil
}

func (t *tool) Name() string        { return t.name }
func (t *tool) Description() string { return t.description }

// Parameters returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps are shared; callers must not mutate them.
func (t *tool) Parameters() map[string]any { return maps.Clone(t.schema) }

func (t *tool) Execute(ctx context.Context, argsJSON []byte) ([]byte, error) {
	return t.execute(ctx, argsJSON)
}

// ValidateArgs checks raw argument JSON against the tool's schema without
// executing it.
func (t *tool) ValidateArgs(argsJSON []byte) error {
	if len(argsJSON) == 0 {
		argsJSON = []byte("{}")
	}
	var v any
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		return wrapJSONParseError(err)
	}
	return validateAgainstSchema(t.validator, v)
}

func (t *tool) Timeout() time.Duration { return t.opts.timeout }

// validateAgainstSchema runs schema validation on an already-parsed value.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ValidationError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Validatable if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

var (
	_ Tool         = (*tool)(nil)
	_ argValidator = (*tool)(nil)
)
