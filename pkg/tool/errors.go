package tool

import "errors"

// Sentinel errors for the execution core. They are matched with
// errors.Is and converted to a failed ToolResult at the executor
// boundary; nothing above the executor sees a raw error from a handler.
var (
	// ErrPolicyDenied means the approval gate refused the operation.
	// A normal negative outcome, never retried.
	ErrPolicyDenied = errors.New("operation denied by approval policy")

	// ErrSandboxRejected means a path or command failed sandbox
	// validation. Fatal for the operation, never retried.
	ErrSandboxRejected = errors.New("operation rejected by sandbox")

	// ErrToolExecutionFailed wraps a handler failure that triggered a
	// checkpoint rollback.
	ErrToolExecutionFailed = errors.New("tool execution failed")

	// ErrCheckpointMiss means a restore targeted an unknown or already
	// consumed checkpoint. Logged, never fatal.
	ErrCheckpointMiss = errors.New("checkpoint not found")

	// ErrTimeout means a handler or child process exceeded its bound.
	// Retryable.
	ErrTimeout = errors.New("tool execution timed out")

	// ErrToolNotFound means the registry has no tool with the requested name.
	ErrToolNotFound = errors.New("tool not found")
)
