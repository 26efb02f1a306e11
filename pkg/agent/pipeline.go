package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/llm"
	"github.com/steward-dev/steward/pkg/tool"
	"github.com/steward-dev/steward/pkg/types"
)

// Pipeline drives one task through the six phases. A task is single
// flow: phases run strictly in order with no parallel step execution.
type Pipeline struct {
	planner     *Planner
	executor    *tool.Executor
	gate        *approval.Gate
	checkpoints *checkpoint.Store
	gateway     *llm.Gateway
	log         *slog.Logger

	// DryRun and SandboxEnabled are propagated into every execution
	// context the pipeline creates.
	DryRun         bool
	SandboxEnabled bool
}

func NewPipeline(planner *Planner, executor *tool.Executor, gate *approval.Gate, checkpoints *checkpoint.Store, gateway *llm.Gateway, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		planner:     planner,
		executor:    executor,
		gate:        gate,
		checkpoints: checkpoints,
		gateway:     gateway,
		log:         log,
	}
}

type run struct {
	task   *types.AgentTask
	result *types.PipelineResult
}

func (r *run) step(phase types.Phase, action string) *types.AgentStep {
	r.result.Steps = append(r.result.Steps, types.AgentStep{
		ID:        types.GenerateStepID(),
		Phase:     phase,
		Action:    action,
		Timestamp: time.Now(),
	})
	return &r.result.Steps[len(r.result.Steps)-1]
}

func finishStep(s *types.AgentStep, result string) {
	s.Result = result
	s.DurationMS = time.Since(s.Timestamp).Milliseconds()
}

// Run executes the full pipeline for one task. It never panics and
// never returns an error; every failure mode is expressed in the
// PipelineResult.
func (p *Pipeline) Run(ctx context.Context, task *types.AgentTask) *types.PipelineResult {
	if task.ID == "" {
		task.ID = types.GenerateTaskID()
	}
	if task.SessionID == "" {
		task.SessionID = types.GenerateSessionID()
	}

	r := &run{
		task:   task,
		result: &types.PipelineResult{TaskID: task.ID},
	}

	// PLAN
	planStep := r.step(types.PhasePlan, "produce step list")
	plan, err := p.planner.Plan(ctx, task)
	if err != nil {
		finishStep(planStep, fmt.Sprintf("planning failed: %v", err))
		r.result.Error = fmt.Sprintf("plan: %v", err)
		return r.result
	}
	finishStep(planStep, fmt.Sprintf("%d steps, estimated risk %s", len(plan.Steps), plan.EstimatedRisk))

	// PROPOSE: surface the plan, no state change.
	proposeStep := r.step(types.PhasePropose, "surface plan")
	finishStep(proposeStep, plan.Rendered)

	// APPROVE: low risk skips the gate entirely.
	if plan.EstimatedRisk != types.RiskLow {
		approveStep := r.step(types.PhaseApprove, "route plan through approval gate")
		approved, err := p.approvePlan(ctx, task, plan)
		approveStep.Approved = &approved
		if err != nil {
			finishStep(approveStep, fmt.Sprintf("approval error: %v", err))
			r.result.Error = fmt.Sprintf("approve: %v", err)
			return r.result
		}
		if !approved {
			finishStep(approveStep, "plan denied")
			r.result.Error = "plan denied by approval gate"
			return r.result
		}
		finishStep(approveStep, "plan approved")
	}

	// EXECUTE
	execOK := p.execute(ctx, r, plan)

	// An abort before any step was dispatched means nothing executed, so
	// there is nothing to verify or explain.
	if !execOK && r.result.Error != "" {
		return r.result
	}

	// VERIFY runs whenever execution occurred, even after a failure.
	verifyStep := r.step(types.PhaseVerify, "inspect last tool result")
	verifyOK, verifyMsg := verify(r.result.ToolResults)
	finishStep(verifyStep, verifyMsg)

	// EXPLAIN is reporting only; it never gates the outcome.
	explainStep := r.step(types.PhaseExplain, "summarize run")
	r.result.Explanation = p.explain(ctx, task, plan, execOK, verifyOK)
	finishStep(explainStep, r.result.Explanation)

	r.result.Success = execOK && verifyOK
	if !r.result.Success && r.result.Error == "" {
		if !execOK {
			r.result.Error = "execution failed"
		} else {
			r.result.Error = verifyMsg
		}
	}

	p.log.Info("pipeline finished",
		"task", task.ID, "success", r.result.Success, "steps", len(plan.Steps))
	return r.result
}

// approvePlan routes the whole plan through the gate as one request.
func (p *Pipeline) approvePlan(ctx context.Context, task *types.AgentTask, plan *types.Plan) (bool, error) {
	operations := make([]string, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		operations = append(operations, fmt.Sprintf("%s: %s", step.Tool, step.Description))
	}

	decision, err := p.gate.Decide(ctx, task.SessionID, "plan", task.Request, operations, plan.EstimatedRisk)
	if err != nil {
		return false, err
	}
	return decision.Approved, nil
}

// execute takes the phase checkpoint and dispatches each step through
// the executor. It stops at the first failed step.
func (p *Pipeline) execute(ctx context.Context, r *run, plan *types.Plan) bool {
	execStep := r.step(types.PhaseExecute, fmt.Sprintf("dispatch %d steps", len(plan.Steps)))

	if !p.DryRun {
		id, err := p.checkpoints.Create(r.task.SessionID, "Before plan: "+r.task.Request)
		if err != nil {
			finishStep(execStep, fmt.Sprintf("checkpoint failed: %v", err))
			r.result.Error = fmt.Sprintf("execute: checkpoint: %v", err)
			return false
		}
		r.result.CheckpointID = id
	}

	ec := types.ExecutionContext{
		WorkingDir:     r.task.WorkingDir,
		DryRun:         p.DryRun,
		SandboxEnabled: p.SandboxEnabled,
		SessionID:      r.task.SessionID,
		// The plan already passed the gate (or was low risk), so the
		// per-tool confirmation is skipped.
		PreApproved: true,
	}

	for i, step := range plan.Steps {
		res := p.executor.Execute(ctx, step.Tool, step.Arguments, ec)
		r.result.ToolResults = append(r.result.ToolResults, res)
		if !res.Success {
			finishStep(execStep, fmt.Sprintf("step %d/%d (%s) failed: %s", i+1, len(plan.Steps), step.Tool, res.Error))
			return false
		}
	}

	finishStep(execStep, fmt.Sprintf("%d steps completed", len(plan.Steps)))
	return true
}

// verify inspects the last tool result: absent, failed, or empty output
// all count as verification failure.
func verify(results []types.ToolResult) (bool, string) {
	if len(results) == 0 {
		return false, "no tool results to verify"
	}
	last := results[len(results)-1]
	if !last.Success {
		return false, fmt.Sprintf("last tool result failed: %s", last.Error)
	}
	if strings.TrimSpace(last.Output) == "" {
		return false, "last tool result has empty output"
	}
	return true, "last tool result ok"
}

// explain produces the run summary, via the model when available.
func (p *Pipeline) explain(ctx context.Context, task *types.AgentTask, plan *types.Plan, execOK, verifyOK bool) string {
	fallback := fmt.Sprintf("Ran %d step(s) for %q: execute=%v, verify=%v.",
		len(plan.Steps), task.Request, execOK, verifyOK)

	if p.gateway == nil {
		return fallback
	}

	resp, err := p.gateway.Chat(ctx, &llm.Request{
		Messages: []types.Message{
			{Role: "system", Content: "Summarize the agent run for the user in one short paragraph."},
			{Role: "user", Content: fallback + "\n" + plan.Rendered},
		},
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return fallback
	}
	return resp.Content
}
