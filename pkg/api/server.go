package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/steward-dev/steward/pkg/api/middleware"
	"github.com/steward-dev/steward/pkg/api/service"
	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/config"
)

// Server hosts the Gin engine and the API resources.
type Server struct {
	engine  *gin.Engine
	config  config.HTTPConfig
	taskSvc *service.TaskService
	gate    *approval.Gate
	log     *slog.Logger
}

// NewServer constructs the HTTP API server.
func NewServer(cfg config.HTTPConfig, taskSvc *service.TaskService, gate *approval.Gate, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(log))

	srv := &Server{
		engine:  engine,
		config:  cfg,
		taskSvc: taskSvc,
		gate:    gate,
		log:     log,
	}
	srv.setupRoutes()
	return srv
}

// Engine returns the underlying Gin engine (for http.Server and tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the configured address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.log.Info("http api listening", "addr", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.engine)
}
