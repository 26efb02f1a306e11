// Package agent sequences a task through the pipeline phases PLAN,
// PROPOSE, APPROVE, EXECUTE, VERIFY and EXPLAIN, with the tool executor
// as the only mutation mechanism.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/steward-dev/steward/pkg/intent"
	"github.com/steward-dev/steward/pkg/llm"
	"github.com/steward-dev/steward/pkg/tool"
	"github.com/steward-dev/steward/pkg/types"
)

// Planner turns a task request into an ordered, risk-annotated plan.
// With a gateway it asks the model for a JSON plan; without one, or when
// the model output is unusable, it falls back to the intent classifier.
type Planner struct {
	gateway  *llm.Gateway
	registry *tool.Registry
	log      *slog.Logger
}

func NewPlanner(gateway *llm.Gateway, registry *tool.Registry, log *slog.Logger) *Planner {
	if log == nil {
		log = slog.Default()
	}
	return &Planner{gateway: gateway, registry: registry, log: log}
}

const planSystemPrompt = `You are a planning assistant for a command-running agent.
Given the user's request, produce a JSON object with this shape and nothing else:
{"steps":[{"description":"...","tool":"<tool name>","arguments":{...},"risk":"low|medium|high|critical"}]}
Only use tools from the provided list. Keep plans short and concrete.`

// Plan produces the step list for a task.
func (p *Planner) Plan(ctx context.Context, task *types.AgentTask) (*types.Plan, error) {
	if p.gateway != nil {
		plan, err := p.planWithModel(ctx, task)
		if err == nil {
			return plan, nil
		}
		if llm.IsRetryable(err) {
			// One retry for transient provider failures.
			if plan, err = p.planWithModel(ctx, task); err == nil {
				return plan, nil
			}
		}
		p.log.Warn("model planning failed, using heuristic plan", "error", err)
	}
	return p.heuristicPlan(task), nil
}

func (p *Planner) planWithModel(ctx context.Context, task *types.AgentTask) (*types.Plan, error) {
	req := &llm.Request{
		Messages: []types.Message{
			{Role: "system", Content: planSystemPrompt},
			{Role: "user", Content: task.Request},
		},
		Tools: p.registry.Specs(),
	}

	resp, err := p.gateway.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	plan, err := parsePlanJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse plan from model: %w", err)
	}

	for i := range plan.Steps {
		plan.Steps[i].ID = types.GenerateStepID()
		if _, ok := p.registry.Get(plan.Steps[i].Tool); !ok {
			return nil, fmt.Errorf("plan references unknown tool %q", plan.Steps[i].Tool)
		}
		// The registry's risk rating is authoritative; the model can
		// only raise it, never lower it.
		if def, _ := p.registry.Get(plan.Steps[i].Tool); def.Risk.Rank() > plan.Steps[i].Risk.Rank() {
			plan.Steps[i].Risk = def.Risk
		}
	}
	finishPlan(plan)
	return plan, nil
}

// parsePlanJSON tolerates models that wrap the JSON in a code fence or
// surrounding prose.
func parsePlanJSON(content string) (*types.Plan, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var plan types.Plan
	if err := json.Unmarshal([]byte(content[start:end+1]), &plan); err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	return &plan, nil
}

// heuristicPlan maps the request to a single best-effort step using the
// keyword classifier.
func (p *Planner) heuristicPlan(task *types.AgentTask) *types.Plan {
	in := intent.Classify(task.Request)

	step := types.PlanStep{
		ID:          types.GenerateStepID(),
		Description: task.Request,
		Risk:        in.Risk,
	}

	switch in.Category {
	case types.CategoryShell:
		step.Tool = "run_shell"
		step.Arguments = map[string]any{"command": task.Request}
	case types.CategorySearch:
		step.Tool = "search_files"
		step.Arguments = map[string]any{"query": strings.Join(in.Matched, " ")}
	case types.CategoryGit:
		step.Tool = "git_status"
	default:
		step.Tool = "list_dir"
		step.Arguments = map[string]any{"path": "."}
	}

	plan := &types.Plan{Steps: []types.PlanStep{step}}
	finishPlan(plan)
	return plan
}

// finishPlan computes the overall risk and the rendered textual form.
func finishPlan(plan *types.Plan) {
	risk := types.RiskLow
	var sb strings.Builder
	sb.WriteString("Plan:\n")
	for i, step := range plan.Steps {
		risk = types.MaxRisk(risk, step.Risk)
		fmt.Fprintf(&sb, "  %d. [%s] %s (%s)\n", i+1, step.Risk, step.Description, step.Tool)
	}
	plan.EstimatedRisk = risk
	plan.Rendered = sb.String()
}
