package tool

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/types"
)

// DefaultHandlerTimeout bounds a single tool invocation.
const DefaultHandlerTimeout = 2 * time.Minute

// ExecutionRecord is one entry in the per-session history.
type ExecutionRecord struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Tool         string           `json:"tool"`
	Arguments    map[string]any   `json:"arguments,omitempty"`
	Result       types.ToolResult `json:"result"`
	CheckpointID string           `json:"checkpoint_id,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
}

// Executor runs registered tools behind the safety gate. The sequence
// for every call is fixed: checkpoint, approval, dry-run short circuit,
// sandbox check, bounded handler invocation, history append. A handler
// failure restores the checkpoint taken at the start, so a failed call
// never leaves the tree partially mutated.
//
// Calls within one session are expected to be serialized by the caller;
// concurrent calls against the same working directory may race on
// checkpoint capture.
type Executor struct {
	registry    *Registry
	checkpoints *checkpoint.Store
	gate        *approval.Gate
	timeout     time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	history map[string][]ExecutionRecord
}

// NewExecutor wires an executor over its collaborators.
func NewExecutor(registry *Registry, checkpoints *checkpoint.Store, gate *approval.Gate, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		registry:    registry,
		checkpoints: checkpoints,
		gate:        gate,
		timeout:     DefaultHandlerTimeout,
		log:         log,
		history:     make(map[string][]ExecutionRecord),
	}
}

// SetTimeout overrides the per-invocation handler bound.
func (e *Executor) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

func failure(err error) types.ToolResult {
	return types.ToolResult{Success: false, Error: err.Error()}
}

// Execute runs one tool call end to end. Handler errors are converted
// to a failed ToolResult here; nothing escapes as a panic or raw error
// to the caller.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, ec types.ExecutionContext) types.ToolResult {
	def, ok := e.registry.Get(name)
	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrToolNotFound, name))
	}

	started := time.Now()

	// Checkpoint before anything else. The gate may still deny the
	// call, but by then the pre-call state is already captured. Declared
	// target paths are passed explicitly so files the handler is about
	// to create are captured as deletions.
	var checkpointID string
	if !ec.DryRun {
		id, err := e.checkpoints.Create(ec.SessionID, "Before: "+name, targetPaths(def, args, ec.WorkingDir)...)
		if err != nil {
			return failure(fmt.Errorf("checkpoint before %s: %w", name, err))
		}
		checkpointID = id
	}

	if def.RequiresApproval && !ec.PreApproved {
		approved, err := e.requestApproval(ctx, def, args, ec)
		if err != nil {
			return e.record(ec, name, args, checkpointID, started, failure(fmt.Errorf("approval for %s: %w", name, err)))
		}
		if !approved {
			// Nothing was mutated yet, so no rollback.
			e.log.Info("tool denied by gate", "tool", name, "session", ec.SessionID)
			return e.record(ec, name, args, checkpointID, started, failure(fmt.Errorf("%w: %s", ErrPolicyDenied, name)))
		}
	}

	if ec.DryRun {
		return e.record(ec, name, args, checkpointID, started, types.ToolResult{
			Success: true,
			Output:  fmt.Sprintf("[dry run] would execute tool %q with %s", name, renderArgs(args)),
		})
	}

	if ec.SandboxEnabled && !def.SandboxAllowed {
		e.log.Warn("tool blocked by sandbox mode", "tool", name)
		return e.record(ec, name, args, checkpointID, started, failure(fmt.Errorf("%w: tool %s is not sandbox-allowed", ErrSandboxRejected, name)))
	}

	result, err := e.invoke(ctx, def, args, ec)
	if err != nil || !result.Success {
		if checkpointID != "" {
			if rbErr := e.rollback(checkpointID); rbErr != nil {
				e.log.Error("rollback failed after tool error", "tool", name, "error", rbErr)
			}
		}
		if err != nil {
			result = failure(fmt.Errorf("%w: %s: %v", ErrToolExecutionFailed, name, err))
		}
	}
	result.DurationMS = time.Since(started).Milliseconds()

	return e.record(ec, name, args, checkpointID, started, result)
}

// rollback restores the pre-call checkpoint. A miss means the
// checkpoint id is unknown or was already consumed.
func (e *Executor) rollback(checkpointID string) error {
	if !e.checkpoints.Restore(checkpointID) {
		return fmt.Errorf("%w: %s", ErrCheckpointMiss, checkpointID)
	}
	return nil
}

// targetPaths resolves the tool's declared target arguments into the
// paths the pre-call checkpoint must cover.
func targetPaths(def Definition, args map[string]any, workDir string) []string {
	var out []string
	for _, key := range def.TargetArgs {
		p, ok := args[key].(string)
		if !ok || p == "" {
			continue
		}
		if !filepath.IsAbs(p) && workDir != "" {
			p = filepath.Join(workDir, p)
		}
		out = append(out, p)
	}
	return out
}

// invoke runs the handler with a bounded timeout and panic containment.
func (e *Executor) invoke(ctx context.Context, def Definition, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		result types.ToolResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		res, err := def.Handler(ctx, args, ec)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return types.ToolResult{}, fmt.Errorf("%w: %s after %s", ErrTimeout, def.Name, e.timeout)
		}
		return types.ToolResult{}, ctx.Err()
	}
}

func (e *Executor) requestApproval(ctx context.Context, def Definition, args map[string]any, ec types.ExecutionContext) (bool, error) {
	description := fmt.Sprintf("%s: %s", def.Name, def.Description)
	operations := []string{fmt.Sprintf("%s %s", def.Name, renderArgs(args))}

	// A context-supplied callback takes precedence over the shared
	// gate. Any callback error counts as a denial.
	if ec.Approve != nil {
		approved, err := ec.Approve(description, operations, def.Risk)
		if err != nil {
			return false, nil
		}
		return approved, nil
	}

	decision, err := e.gate.Decide(ctx, ec.SessionID, def.Name, description, operations, def.Risk)
	if err != nil {
		return false, err
	}
	return decision.Approved, nil
}

func (e *Executor) record(ec types.ExecutionContext, name string, args map[string]any, checkpointID string, started time.Time, result types.ToolResult) types.ToolResult {
	rec := ExecutionRecord{
		ID:           types.GenerateExecutionID(),
		SessionID:    ec.SessionID,
		Tool:         name,
		Arguments:    args,
		Result:       result,
		CheckpointID: checkpointID,
		StartedAt:    started,
	}
	e.mu.Lock()
	e.history[ec.SessionID] = append(e.history[ec.SessionID], rec)
	e.mu.Unlock()

	e.log.Debug("tool executed", "tool", name, "session", ec.SessionID, "success", result.Success)
	return result
}

// History returns the execution records for a session, oldest first.
func (e *Executor) History(sessionID string) []ExecutionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExecutionRecord, len(e.history[sessionID]))
	copy(out, e.history[sessionID])
	return out
}

func renderArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
