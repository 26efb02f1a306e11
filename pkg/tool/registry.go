// Package tool defines the tool registry and the safety-gated executor
// that every agent-initiated operation funnels through.
package tool

import (
	"context"

	"github.com/steward-dev/steward/pkg/types"
)

// Handler is the contract every concrete tool implements. Expected
// failures are reported in the ToolResult, not the error; the error is
// for conditions the handler itself could not express as a result.
// Handlers must honor ec.DryRun.
type Handler func(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error)

// Definition is the immutable record describing one registered tool.
// Registered once at startup and never mutated afterwards.
type Definition struct {
	Name             string
	Description      string
	Category         types.ToolCategory
	Parameters       types.JSONSchema
	Risk             types.RiskLevel
	RequiresApproval bool
	// SandboxAllowed marks tools that are safe to run while sandbox
	// mode is on. Tools that escape the sandbox (arbitrary shell with
	// sandboxing disabled, network fetches) leave this false.
	SandboxAllowed bool
	// TargetArgs names the string arguments that identify the files the
	// tool mutates. The executor snapshots these paths before the call,
	// so a file the handler creates and then fails on is deleted by the
	// rollback rather than left behind.
	TargetArgs []string
	Handler    Handler
}

// Registry maps tool names to definitions. Registration is
// last-write-wins; re-registering a name replaces the old definition,
// which is how dynamically discovered tools override builtins.
//
// Not safe for concurrent registration. Register everything during
// startup, before the executor starts serving calls.
type Registry struct {
	tools map[string]Definition
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register inserts or replaces the definition by name.
func (r *Registry) Register(def Definition) {
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = def
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// List returns all definitions in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ListByCategory filters the registry by category.
func (r *Registry) ListByCategory(cat types.ToolCategory) []Definition {
	var out []Definition
	for _, name := range r.order {
		if def := r.tools[name]; def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// ApprovalRequired returns the tools that need gate confirmation.
func (r *Registry) ApprovalRequired() []Definition {
	var out []Definition
	for _, name := range r.order {
		if def := r.tools[name]; def.RequiresApproval {
			out = append(out, def)
		}
	}
	return out
}

// Specs renders the registry as provider-facing tool specs for LLM
// function calling.
func (r *Registry) Specs() []types.ToolSpec {
	out := make([]types.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name]
		out = append(out, types.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return out
}
