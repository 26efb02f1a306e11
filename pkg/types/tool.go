package types

// ToolCategory groups tools for policy checks and registry listing.
type ToolCategory string

const (
	CategoryFilesystem  ToolCategory = "filesystem"
	CategoryShell       ToolCategory = "shell"
	CategoryGit         ToolCategory = "git"
	CategorySearch      ToolCategory = "search"
	CategoryInteraction ToolCategory = "interaction"
)

// ToolResult represents the output of a tool execution. It is immutable
// once produced; the executor appends it to the session history.
type ToolResult struct {
	Success      bool     `json:"success"`
	Output       string   `json:"output"`
	Error        string   `json:"error,omitempty"`
	FilesChanged []string `json:"files_changed,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// ApprovalFunc is the boundary to the UI/terminal. Any error or
// non-affirmative outcome is treated as a denial by the core.
type ApprovalFunc func(description string, operations []string, risk RiskLevel) (bool, error)

// ExecutionContext is the per-call value object handed to tool handlers.
// It is created per invocation and never shared across calls.
type ExecutionContext struct {
	WorkingDir     string `json:"working_dir"`
	DryRun         bool   `json:"dry_run"`
	SandboxEnabled bool   `json:"sandbox_enabled"`
	SessionID      string `json:"session_id"`

	// PreApproved marks a call whose plan already passed the approval
	// gate, so the executor skips per-tool confirmation.
	PreApproved bool `json:"pre_approved"`

	// Approve, when set, overrides the gate's interactive callback for
	// this call only.
	Approve ApprovalFunc `json:"-"`
}
