package api

import (
	"github.com/steward-dev/steward/pkg/api/handler"
	"github.com/steward-dev/steward/pkg/api/middleware"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health (no auth required)
	s.engine.GET("/healthz", handler.Health)

	v1 := s.engine.Group("/v1")
	v1.Use(middleware.Auth(s.config.APIKey))

	taskHandler := handler.NewTaskHandler(s.taskSvc)
	v1.POST("/tasks", taskHandler.Submit)
	v1.GET("/tasks", taskHandler.List)
	v1.GET("/tasks/:id", taskHandler.Get)
	v1.POST("/tasks/:id/cancel", taskHandler.Cancel)

	approvalHandler := handler.NewApprovalHandler(s.gate, s.taskSvc)
	v1.GET("/approvals", approvalHandler.List)
	v1.POST("/approvals/:id/respond", approvalHandler.Respond)

	checkpointHandler := handler.NewCheckpointHandler(s.taskSvc)
	v1.GET("/sessions/:id/checkpoints", checkpointHandler.List)
	v1.GET("/sessions/:id/approvals", approvalHandler.Audit)
	v1.POST("/sessions/:id/rewind", checkpointHandler.Rewind)
}
