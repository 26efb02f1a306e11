// Package approval decides whether a proposed operation may run. The
// gate is the single choke point between "the agent wants to" and "the
// tool executes": every mutating tool call passes through Decide.
package approval

import (
	"sync"
	"time"

	"github.com/steward-dev/steward/pkg/config"
	"github.com/steward-dev/steward/pkg/types"
)

// Policy holds the non-interactive part of the decision: global flags
// plus remembered per-type verdicts. It is deterministic; given the
// same flags, rules, and request it always returns the same answer.
type Policy struct {
	autoApprove       bool
	autoApproveLow    bool
	autoApproveMedium bool
	confirmHigh       bool
	confirmCritical   bool

	mu    sync.RWMutex
	rules map[string]types.PermissionRule // keyed by request type
}

// NewPolicy builds a policy from the security config.
func NewPolicy(cfg config.SecurityConfig) *Policy {
	return &Policy{
		autoApprove:       cfg.AutoApprove,
		autoApproveLow:    cfg.AutoApproveLowRisk,
		autoApproveMedium: cfg.AutoApproveMediumRisk,
		confirmHigh:       cfg.ConfirmHighRisk,
		confirmCritical:   cfg.ConfirmCriticalRisk,
		rules:             make(map[string]types.PermissionRule),
	}
}

// Verdict resolves a request type and risk against the policy without
// any interaction. VerdictAsk means the caller must confirm with the
// user.
//
// Precedence: the global auto-approve flag wins over everything, then a
// remembered rule for the type, then the per-risk flags.
func (p *Policy) Verdict(requestType string, risk types.RiskLevel) types.PolicyVerdict {
	if p.autoApprove {
		return types.VerdictAlways
	}

	p.mu.RLock()
	rule, ok := p.rules[requestType]
	p.mu.RUnlock()
	if ok && rule.Verdict != types.VerdictAsk {
		return rule.Verdict
	}

	switch risk {
	case types.RiskLow:
		if p.autoApproveLow {
			return types.VerdictAlways
		}
	case types.RiskMedium:
		if p.autoApproveMedium {
			return types.VerdictAlways
		}
	case types.RiskHigh:
		if !p.confirmHigh {
			return types.VerdictAlways
		}
	case types.RiskCritical:
		if !p.confirmCritical {
			return types.VerdictAlways
		}
	}
	return types.VerdictAsk
}

// Remember stores a per-type verdict so future requests of the same
// type skip the interactive step.
func (p *Policy) Remember(requestType string, verdict types.PolicyVerdict) types.PermissionRule {
	rule := types.PermissionRule{
		ID:        types.GenerateApprovalID(),
		Type:      requestType,
		Verdict:   verdict,
		CreatedAt: time.Now(),
	}
	p.mu.Lock()
	p.rules[requestType] = rule
	p.mu.Unlock()
	return rule
}

// Forget drops a remembered verdict.
func (p *Policy) Forget(requestType string) {
	p.mu.Lock()
	delete(p.rules, requestType)
	p.mu.Unlock()
}

// Rules returns a copy of the remembered verdicts, e.g. for persistence.
func (p *Policy) Rules() []types.PermissionRule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.PermissionRule, 0, len(p.rules))
	for _, r := range p.rules {
		out = append(out, r)
	}
	return out
}

// Restore re-installs previously persisted rules.
func (p *Policy) Restore(rules []types.PermissionRule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range rules {
		p.rules[r.Type] = r
	}
}
