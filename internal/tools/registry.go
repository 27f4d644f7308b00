package tools

import (
	"context"
	"encoding/json"

	relicerrors "github.com/relic-io/relic/internal/errors"
)

// Handler executes one named operation. Params arrive as a JSON object of
// named parameters; the result must be JSON-marshalable.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Tool is one operation exposed to the transport layer.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

// ErrorObject is the structured error crossing the tool boundary. The core
// never raises an opaque failure across it.
type ErrorObject struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Registry holds the exposed tools in registration order.
type Registry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the handler.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.byName[t.Name] = t
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.byName[name])
	}
	return tools
}

// Call invokes a tool by name. Exactly one of result and errObj is non-nil.
func (r *Registry) Call(ctx context.Context, name string, params json.RawMessage) (interface{}, *ErrorObject) {
	tool, ok := r.byName[name]
	if !ok {
		return nil, &ErrorObject{
			Kind:    string(relicerrors.KindValidation),
			Message: "unknown tool: " + name,
		}
	}

	result, err := tool.Handler(ctx, params)
	if err != nil {
		return nil, &ErrorObject{
			Kind:    string(relicerrors.KindOf(err)),
			Message: err.Error(),
		}
	}
	return result, nil
}

// decodeParams unmarshals the parameter object, mapping malformed input to
// a validation error.
func decodeParams(params json.RawMessage, target interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return relicerrors.Wrap(relicerrors.KindValidation, "invalid tool parameters", err)
	}
	return nil
}
