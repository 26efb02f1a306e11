package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steward-dev/steward/pkg/api/dto"
	"github.com/steward-dev/steward/pkg/api/service"
	"github.com/steward-dev/steward/pkg/approval"
)

// ApprovalHandler bridges the HTTP surface to the approval gate's
// asynchronous waiter and the persisted audit trail.
type ApprovalHandler struct {
	gate *approval.Gate
	svc  *service.TaskService
}

func NewApprovalHandler(gate *approval.Gate, svc *service.TaskService) *ApprovalHandler {
	return &ApprovalHandler{gate: gate, svc: svc}
}

// List returns the approval requests currently awaiting an answer.
func (h *ApprovalHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ApprovalListResponse{Approvals: h.gate.ListPending()})
}

// Respond resolves a pending request. The blocked task resumes with the
// given answer.
func (h *ApprovalHandler) Respond(c *gin.Context) {
	id := c.Param("id")
	var req dto.ApprovalResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.gate.Respond(id, req.Approved, req.Remember); err != nil {
		if errors.Is(err, approval.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "approval request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{OK: true})
}

// Audit returns the resolved approval requests persisted for a session.
func (h *ApprovalHandler) Audit(c *gin.Context) {
	approvals, err := h.svc.ListApprovals(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ApprovalListResponse{Approvals: approvals})
}
