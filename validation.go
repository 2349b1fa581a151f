package unifiedllm

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Validate checks a tool call against the registry without executing it.
// It reports all problems it can find rather than stopping at the first:
// an unknown tool name, arguments that are not a JSON object, and schema
// violations when the tool supports argument validation.
func (r *Registry) Validate(call ToolCall) []error {
	var errs []error

	if call.Name == "" {
		errs = append(errs, &ValidationError{Reason: "tool call has no name", Err: ErrValidation})
		return errs
	}

	tool, ok := r.Tool(call.Name)
	if !ok {
		errs = append(errs, fmt.Errorf("tool %q not found (available: %s): %w",
			call.Name, strings.Join(r.toolNames(), ", "), ErrToolNotFound))
		return errs
	}

	args := call.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(args), &obj); err != nil {
		errs = append(errs, &ValidationError{
			Reason: fmt.Sprintf("tool %q arguments are not a JSON object", call.Name),
			Err:    err,
		})
		return errs
	}

	if v, ok := tool.(argValidator); ok {
		if err := v.ValidateArgs([]byte(args)); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Registry) toolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
