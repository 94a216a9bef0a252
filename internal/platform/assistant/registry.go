// Package assistant provides the AI helper: a chat flow that can call a
// small set of read-only, patient-scoped tools, and a summarize flow for
// medical record text. The tool registry is decoupled from the model
// client so either side can be tested alone.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrBadArgs     = errors.New("invalid tool arguments")
)

// Param describes one tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "number", "boolean"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolHandler executes a tool on behalf of userID. Handlers only receive
// validated args and must restrict results to what userID may see.
type ToolHandler func(ctx context.Context, userID uuid.UUID, args map[string]interface{}) (interface{}, error)

// Tool is one callable capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     ToolHandler
}

// Registry holds the tools offered to the model. Registration happens at
// startup; lookups are read-only afterwards, so no locking.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q has no handler", t.Name)
	}
	if _, dup := r.tools[t.Name]; dup {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Call validates args against the tool's params and runs its handler.
func (r *Registry) Call(ctx context.Context, userID uuid.UUID, name string, args map[string]interface{}) (interface{}, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	if err := validateArgs(t.Params, args); err != nil {
		return nil, err
	}
	return t.Handler(ctx, userID, args)
}

func validateArgs(params []Param, args map[string]interface{}) error {
	known := make(map[string]Param, len(params))
	for _, p := range params {
		known[p.Name] = p
		if _, present := args[p.Name]; p.Required && !present {
			return fmt.Errorf("%w: missing required %q", ErrBadArgs, p.Name)
		}
	}
	for name, value := range args {
		p, ok := known[name]
		if !ok {
			return fmt.Errorf("%w: unexpected argument %q", ErrBadArgs, name)
		}
		if !typeMatches(p.Type, value) {
			return fmt.Errorf("%w: %q must be a %s", ErrBadArgs, name, p.Type)
		}
	}
	return nil
}

func typeMatches(paramType string, value interface{}) bool {
	switch paramType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		// JSON numbers decode to float64.
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	}
	return false
}
