package types

import "time"

// ApprovalStatus is write-once: pending -> approved | denied. A request
// that reaches ExpiresAt while still pending must be treated as denied.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// PolicyVerdict is the remembered per-type preference.
type PolicyVerdict string

const (
	VerdictAlways PolicyVerdict = "always"
	VerdictNever  PolicyVerdict = "never"
	VerdictAsk    PolicyVerdict = "ask"
)

// ApprovalRequest is created by the gate when policy requires an
// interactive confirmation.
type ApprovalRequest struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id,omitempty"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Operations  []string       `json:"operations"`
	Risk        RiskLevel      `json:"risk"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Status      ApprovalStatus `json:"status"`
}

// Expired reports whether the request outlived its TTL without an answer.
func (r *ApprovalRequest) Expired(now time.Time) bool {
	return r.Status == ApprovalPending && now.After(r.ExpiresAt)
}

// PermissionRule is a persisted "remember this" decision for a request type.
type PermissionRule struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Verdict   PolicyVerdict `json:"verdict"`
	CreatedAt time.Time     `json:"created_at"`
}
