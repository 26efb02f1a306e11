package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-dev/steward/pkg/agent"
	"github.com/steward-dev/steward/pkg/api/dto"
	"github.com/steward-dev/steward/pkg/api/service"
	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/config"
	"github.com/steward-dev/steward/pkg/llm"
	"github.com/steward-dev/steward/pkg/llm/mock"
	"github.com/steward-dev/steward/pkg/store"
	"github.com/steward-dev/steward/pkg/tool"
	"github.com/steward-dev/steward/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type serverFixture struct {
	srv         *Server
	gate        *approval.Gate
	checkpoints *checkpoint.Store
	workDir     string
}

// newServerFixture wires a full pipeline behind the API with a scripted
// planner and no prompt callback, so approvals resolve through HTTP.
func newServerFixture(t *testing.T, planJSON, apiKey string) *serverFixture {
	t.Helper()
	dir := t.TempDir()

	reg := tool.NewRegistry()
	reg.Register(tool.Definition{
		Name:           "noop_low",
		Description:    "harmless",
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler: func(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
			return types.ToolResult{Success: true, Output: "done"}, nil
		},
	})
	reg.Register(tool.Definition{
		Name:             "risky_high",
		Description:      "dangerous",
		Risk:             types.RiskHigh,
		RequiresApproval: true,
		SandboxAllowed:   true,
		Handler: func(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
			return types.ToolResult{Success: true, Output: "did the risky thing"}, nil
		},
	})

	cps := checkpoint.NewStore(dir, checkpoint.Options{}, nil)
	gate := approval.NewGate(approval.NewPolicy(config.Default().Security), nil, nil)
	exec := tool.NewExecutor(reg, cps, gate, nil)

	history := store.NewFSStore(t.TempDir())
	require.NoError(t, history.Open(context.Background()))
	t.Cleanup(func() { _ = history.Close() })
	gate.SetAuditSink(func(req types.ApprovalRequest) {
		_ = history.AppendApproval(context.Background(), req.SessionID, req)
	})

	gateway := llm.NewGateway(mock.New(planJSON), config.ProviderOptions{})
	planner := agent.NewPlanner(gateway, reg, nil)
	pipeline := agent.NewPipeline(planner, exec, gate, cps, gateway, nil)

	svc := service.NewTaskService(pipeline, cps, history, dir, nil)
	srv := NewServer(config.HTTPConfig{APIKey: apiKey}, svc, gate, nil)

	return &serverFixture{srv: srv, gate: gate, checkpoints: cps, workDir: dir}
}

func (f *serverFixture) do(method, path, body, apiKey string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(w, req)
	return w
}

func TestSubmitTaskWait(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "")

	w := f.do(http.MethodPost, "/v1/tasks", `{"request":"list things","wait":true}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.StatusFinished, resp.Status)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Success, "result error: %s", resp.Result.Error)
}

func TestSubmitTaskAsync(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "")

	w := f.do(http.MethodPost, "/v1/tasks", `{"request":"list things"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp dto.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)

	require.Eventually(t, func() bool {
		got := f.do(http.MethodGet, "/v1/tasks/"+resp.ID, "", "")
		if got.Code != http.StatusOK {
			return false
		}
		var task dto.TaskResponse
		if err := json.Unmarshal(got.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.Status == service.StatusFinished && task.Result != nil && task.Result.Success
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApprovalRoundTrip(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"risky","tool":"risky_high","risk":"high"}]}`, "")

	w := f.do(http.MethodPost, "/v1/tasks", `{"request":"do the risky thing"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var submitted dto.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	// The run blocks inside the gate until a pending request shows up.
	var requestID string
	require.Eventually(t, func() bool {
		got := f.do(http.MethodGet, "/v1/approvals", "", "")
		var list dto.ApprovalListResponse
		if err := json.Unmarshal(got.Body.Bytes(), &list); err != nil {
			return false
		}
		if len(list.Approvals) == 0 {
			return false
		}
		requestID = list.Approvals[0].ID
		return true
	}, 3*time.Second, 20*time.Millisecond)

	respond := f.do(http.MethodPost, "/v1/approvals/"+requestID+"/respond", `{"approved":true}`, "")
	require.Equal(t, http.StatusOK, respond.Code, respond.Body.String())

	require.Eventually(t, func() bool {
		got := f.do(http.MethodGet, "/v1/tasks/"+submitted.ID, "", "")
		var task dto.TaskResponse
		if err := json.Unmarshal(got.Body.Bytes(), &task); err != nil {
			return false
		}
		return task.Status == service.StatusFinished && task.Result != nil && task.Result.Success
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSessionApprovalAudit(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"risky","tool":"risky_high","risk":"high"}]}`, "")

	w := f.do(http.MethodPost, "/v1/tasks", `{"request":"do the risky thing","session_id":"ses_audit"}`, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var requestID string
	require.Eventually(t, func() bool {
		got := f.do(http.MethodGet, "/v1/approvals", "", "")
		var list dto.ApprovalListResponse
		if err := json.Unmarshal(got.Body.Bytes(), &list); err != nil {
			return false
		}
		if len(list.Approvals) == 0 {
			return false
		}
		requestID = list.Approvals[0].ID
		return true
	}, 3*time.Second, 20*time.Millisecond)

	respond := f.do(http.MethodPost, "/v1/approvals/"+requestID+"/respond", `{"approved":true}`, "")
	require.Equal(t, http.StatusOK, respond.Code, respond.Body.String())

	// The resolved request lands in the session's persisted audit.
	var audit dto.ApprovalListResponse
	require.Eventually(t, func() bool {
		got := f.do(http.MethodGet, "/v1/sessions/ses_audit/approvals", "", "")
		if got.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(got.Body.Bytes(), &audit); err != nil {
			return false
		}
		return len(audit.Approvals) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, requestID, audit.Approvals[0].ID)
	assert.Equal(t, "ses_audit", audit.Approvals[0].SessionID)
	assert.Equal(t, types.ApprovalApproved, audit.Approvals[0].Status)
}

func TestRespondUnknownRequest(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "")

	w := f.do(http.MethodPost, "/v1/approvals/apr_nope/respond", `{"approved":true}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "secret")

	w := f.do(http.MethodGet, "/v1/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/v1/tasks", "", "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open.
	w = f.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckpointListAndRewind(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "")

	id, err := f.checkpoints.Create("ses_api", "before the API test")
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/v1/sessions/ses_api/checkpoints", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.CheckpointListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Checkpoints, 1)
	assert.Equal(t, id, list.Checkpoints[0].ID)

	w = f.do(http.MethodPost, "/v1/sessions/ses_api/rewind", `{"checkpoint_id":"`+id+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Restoring consumed the checkpoint.
	w = f.do(http.MethodPost, "/v1/sessions/ses_api/rewind", `{"checkpoint_id":"`+id+`"}`, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t, `{"steps":[{"description":"noop","tool":"noop_low","risk":"low"}]}`, "")

	w := f.do(http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}
