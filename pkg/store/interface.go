package store

import (
	"context"
	"errors"

	"github.com/steward-dev/steward/pkg/types"
)

var ErrNotFound = errors.New("not found")

// Store is the persistence contract for session artifacts: pipeline
// run outcomes, the approval audit trail, and remembered permission
// rules. Checkpoints have their own persistence inside the checkpoint
// store; they are not duplicated here.
type Store interface {
	// Lifecycle
	Open(ctx context.Context) error
	Close() error

	// Run history (append-only per session)
	AppendRun(ctx context.Context, sessionID string, result *types.PipelineResult) error
	ListRuns(ctx context.Context, sessionID string) ([]types.PipelineResult, error)

	// Approval audit (append-only per session)
	AppendApproval(ctx context.Context, sessionID string, req types.ApprovalRequest) error
	ListApprovals(ctx context.Context, sessionID string) ([]types.ApprovalRequest, error)

	// Permission rules (global, replace-on-save)
	SaveRules(ctx context.Context, rules []types.PermissionRule) error
	LoadRules(ctx context.Context) ([]types.PermissionRule, error)
}
