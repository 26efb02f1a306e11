package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steward-dev/steward/pkg/api/dto"
	"github.com/steward-dev/steward/pkg/api/service"
)

// TaskHandler handles task submission and tracking.
type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func taskResponse(t *service.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:        t.ID,
		SessionID: t.SessionID,
		Request:   t.Request,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		Result:    t.Result,
	}
}

// Submit starts a pipeline run. With wait=true the call blocks until
// the run finishes and returns the result; otherwise it returns 202
// with a tracking id.
func (h *TaskHandler) Submit(c *gin.Context) {
	var req dto.SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Wait {
		task := h.svc.Run(c.Request.Context(), req.Request, req.SessionID, req.WorkingDir)
		c.JSON(http.StatusOK, taskResponse(task))
		return
	}

	task := h.svc.Submit(req.Request, req.SessionID, req.WorkingDir)
	c.JSON(http.StatusAccepted, taskResponse(task))
}

// Get returns the current state of one task.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, taskResponse(task))
}

// List returns all tracked tasks.
func (h *TaskHandler) List(c *gin.Context) {
	tasks := h.svc.List()
	resp := dto.TaskListResponse{Tasks: make([]dto.TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, taskResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel aborts a running task.
func (h *TaskHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Param("id")); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{OK: true})
}
