package approval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/steward-dev/steward/pkg/types"
)

// DefaultTTL bounds how long an interactive request may sit unanswered.
// An expired request counts as denied.
const DefaultTTL = 5 * time.Minute

// PromptFunc asks the user synchronously. When nil, the gate waits for
// an asynchronous Respond call instead (e.g. from the HTTP API).
type PromptFunc func(ctx context.Context, req *types.ApprovalRequest) (approved, remember bool, err error)

// Decision is the gate's answer plus enough context to log and audit it.
type Decision struct {
	Approved  bool
	Reason    string
	RequestID string
}

// AuditFunc receives every resolved request, e.g. for persistence.
type AuditFunc func(req types.ApprovalRequest)

// Gate combines the deterministic policy with the interactive fallback
// and keeps an audit trail of every request it created.
type Gate struct {
	policy *Policy
	waiter *Waiter
	prompt PromptFunc
	ttl    time.Duration
	log    *slog.Logger
	sink   AuditFunc

	mu    sync.RWMutex
	audit map[string]*types.ApprovalRequest
}

// NewGate wires a gate over the given policy. prompt may be nil.
func NewGate(policy *Policy, prompt PromptFunc, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		policy: policy,
		waiter: NewWaiter(),
		prompt: prompt,
		ttl:    DefaultTTL,
		log:    log,
		audit:  make(map[string]*types.ApprovalRequest),
	}
}

// SetTTL overrides the interactive timeout.
func (g *Gate) SetTTL(d time.Duration) {
	if d > 0 {
		g.ttl = d
	}
}

// Policy exposes the underlying policy for rule persistence.
func (g *Gate) Policy() *Policy { return g.policy }

// SetAuditSink installs a callback invoked with every resolved request,
// after its final status is recorded.
func (g *Gate) SetAuditSink(fn AuditFunc) {
	g.sink = fn
}

// Respond resolves a pending request from outside the blocked caller,
// typically the HTTP approval endpoint.
func (g *Gate) Respond(requestID string, approved, remember bool) error {
	return g.waiter.Respond(requestID, approved, remember)
}

// Decide runs the full decision ladder for one proposed operation.
// requestType groups operations for "remember" purposes (usually the
// tool name), description and operations are what the user sees.
// sessionID scopes the audit record.
func (g *Gate) Decide(ctx context.Context, sessionID, requestType, description string, operations []string, risk types.RiskLevel) (Decision, error) {
	switch g.policy.Verdict(requestType, risk) {
	case types.VerdictAlways:
		g.log.Debug("approval granted by policy", "type", requestType, "risk", risk)
		return Decision{Approved: true, Reason: "policy"}, nil
	case types.VerdictNever:
		g.log.Info("approval denied by policy", "type", requestType, "risk", risk)
		return Decision{Approved: false, Reason: "policy"}, nil
	}
	return g.confirm(ctx, sessionID, requestType, description, operations, risk)
}

func (g *Gate) confirm(ctx context.Context, sessionID, requestType, description string, operations []string, risk types.RiskLevel) (Decision, error) {
	now := time.Now()
	req := &types.ApprovalRequest{
		ID:          types.GenerateApprovalID(),
		SessionID:   sessionID,
		Type:        requestType,
		Description: description,
		Operations:  operations,
		Risk:        risk,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.ttl),
		Status:      types.ApprovalPending,
	}

	g.mu.Lock()
	g.audit[req.ID] = req
	g.mu.Unlock()

	approved, remember, err := g.ask(ctx, req)

	status := types.ApprovalDenied
	if approved {
		status = types.ApprovalApproved
	}
	g.mu.Lock()
	req.Status = status
	resolved := *req
	g.mu.Unlock()

	if g.sink != nil {
		g.sink(resolved)
	}

	if err != nil {
		g.log.Warn("approval request failed", "id", req.ID, "error", err)
		if err == ErrTimeout {
			// Expiry is a denial, not an execution error.
			return Decision{Approved: false, Reason: "expired", RequestID: req.ID}, nil
		}
		return Decision{Approved: false, Reason: "error", RequestID: req.ID}, err
	}

	if remember {
		verdict := types.VerdictNever
		if approved {
			verdict = types.VerdictAlways
		}
		g.policy.Remember(requestType, verdict)
	}

	g.log.Info("approval resolved", "id", req.ID, "approved", approved, "remember", remember)
	return Decision{Approved: approved, Reason: "user", RequestID: req.ID}, nil
}

func (g *Gate) ask(ctx context.Context, req *types.ApprovalRequest) (approved, remember bool, err error) {
	if g.prompt != nil {
		return g.prompt(ctx, req)
	}
	ch := g.waiter.register(req.ID)
	resp, err := g.waiter.wait(ctx, req.ID, ch, g.ttl)
	if err != nil {
		return false, false, err
	}
	return resp.Approved, resp.Remember, nil
}

// Status returns the audited request by id.
func (g *Gate) Status(requestID string) (*types.ApprovalRequest, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	req, ok := g.audit[requestID]
	if !ok {
		return nil, false
	}
	cp := *req
	return &cp, true
}

// ListPending returns the requests still awaiting an answer.
func (g *Gate) ListPending() []types.ApprovalRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()
	now := time.Now()
	var out []types.ApprovalRequest
	for _, req := range g.audit {
		if req.Status == types.ApprovalPending && !req.Expired(now) {
			out = append(out, *req)
		}
	}
	return out
}

// History returns every audited request, resolved or not.
func (g *Gate) History() []types.ApprovalRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.ApprovalRequest, 0, len(g.audit))
	for _, req := range g.audit {
		out = append(out, *req)
	}
	return out
}
