package dto

import (
	"time"

	"github.com/steward-dev/steward/pkg/types"
)

// TaskResponse is the response for a single task. Result is set once
// the task has finished.
type TaskResponse struct {
	ID        string                `json:"id"`
	SessionID string                `json:"session_id"`
	Request   string                `json:"request"`
	Status    string                `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	Result    *types.PipelineResult `json:"result,omitempty"`
}

// TaskListResponse is the response for listing tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// ApprovalListResponse lists approval requests awaiting an answer.
type ApprovalListResponse struct {
	Approvals []types.ApprovalRequest `json:"approvals"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AckResponse acknowledges a state-changing call with no payload.
type AckResponse struct {
	OK bool `json:"ok"`
}
