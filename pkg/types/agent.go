package types

import "time"

// Phase enumerates the pipeline phases, executed strictly in order.
type Phase string

const (
	PhasePlan    Phase = "plan"
	PhasePropose Phase = "propose"
	PhaseApprove Phase = "approve"
	PhaseExecute Phase = "execute"
	PhaseVerify  Phase = "verify"
	PhaseExplain Phase = "explain"
)

// AgentTask is a natural-language request plus the context it runs in.
type AgentTask struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	Request    string            `json:"request"`
	WorkingDir string            `json:"working_dir"`
	Context    map[string]string `json:"context,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PlanStep is one ordered step in a plan, carrying its own risk.
type PlanStep struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Tool        string         `json:"tool"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Risk        RiskLevel      `json:"risk"`
}

// Plan is the PLAN phase output: an ordered step list, an overall risk
// estimate and a rendered textual form for display.
type Plan struct {
	Steps         []PlanStep `json:"steps"`
	EstimatedRisk RiskLevel  `json:"estimated_risk"`
	Rendered      string     `json:"rendered"`
}

// AgentStep records one phase action. Steps are immutable once appended
// to the run's step log.
type AgentStep struct {
	ID         string    `json:"id"`
	Phase      Phase     `json:"phase"`
	Action     string    `json:"action"`
	Result     string    `json:"result,omitempty"`
	Approved   *bool     `json:"approved,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
}

// PipelineResult is the structured outcome of a pipeline run. Phase
// failures surface here rather than as panics so a CLI caller can always
// render a clean message and exit code.
type PipelineResult struct {
	TaskID       string       `json:"task_id"`
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	Steps        []AgentStep  `json:"steps"`
	ToolResults  []ToolResult `json:"tool_results,omitempty"`
	CheckpointID string       `json:"checkpoint_id,omitempty"`
	Explanation  string       `json:"explanation,omitempty"`
}
