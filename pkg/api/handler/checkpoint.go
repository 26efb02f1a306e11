package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steward-dev/steward/pkg/api/dto"
	"github.com/steward-dev/steward/pkg/api/service"
)

// CheckpointHandler exposes session checkpoints and rewind.
type CheckpointHandler struct {
	svc *service.TaskService
}

func NewCheckpointHandler(svc *service.TaskService) *CheckpointHandler {
	return &CheckpointHandler{svc: svc}
}

// List returns the checkpoints recorded for a session.
func (h *CheckpointHandler) List(c *gin.Context) {
	checkpoints := h.svc.ListCheckpoints(c.Param("id"))
	resp := dto.CheckpointListResponse{
		Checkpoints: make([]dto.CheckpointResponse, 0, len(checkpoints)),
	}
	for _, cp := range checkpoints {
		resp.Checkpoints = append(resp.Checkpoints, dto.CheckpointResponse{
			ID:          cp.ID,
			SessionID:   cp.SessionID,
			Description: cp.Description,
			CreatedAt:   cp.CreatedAt,
			FileCount:   len(cp.Files),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Rewind restores the named checkpoint.
func (h *CheckpointHandler) Rewind(c *gin.Context) {
	var req dto.RewindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	if !h.svc.Rewind(req.CheckpointID) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "checkpoint not found"})
		return
	}
	c.JSON(http.StatusOK, dto.RewindResponse{Restored: true, CheckpointID: req.CheckpointID})
}
