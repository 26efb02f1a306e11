package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/steward-dev/steward/pkg/agent"
	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/store"
	"github.com/steward-dev/steward/pkg/types"
)

// ErrTaskNotFound is returned when a task is not found.
var ErrTaskNotFound = errors.New("task not found")

// Task statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// Task tracks one pipeline run submitted through the API.
type Task struct {
	ID        string
	SessionID string
	Request   string
	Status    string
	CreatedAt time.Time
	Result    *types.PipelineResult

	done   chan struct{}
	cancel context.CancelFunc
}

// TaskService owns task lifecycle: it submits requests to the pipeline,
// tracks them until completion and persists each finished run.
type TaskService struct {
	pipeline    *agent.Pipeline
	checkpoints *checkpoint.Store
	history     store.Store
	workDir     string
	log         *slog.Logger

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskService creates the service. history may be nil, in which case
// finished runs are not persisted.
func NewTaskService(pipeline *agent.Pipeline, checkpoints *checkpoint.Store, history store.Store, workDir string, log *slog.Logger) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &TaskService{
		pipeline:    pipeline,
		checkpoints: checkpoints,
		history:     history,
		workDir:     workDir,
		log:         log,
		tasks:       make(map[string]*Task),
	}
}

// Submit starts a pipeline run in the background and returns the
// tracking record immediately. Approval requests raised by the run are
// answered through the gate's Respond path.
func (s *TaskService) Submit(request, sessionID, workingDir string) *Task {
	if sessionID == "" {
		sessionID = types.GenerateSessionID()
	}
	if workingDir == "" {
		workingDir = s.workDir
	}

	agentTask := &types.AgentTask{
		ID:         types.GenerateTaskID(),
		SessionID:  sessionID,
		Request:    request,
		WorkingDir: workingDir,
		CreatedAt:  time.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &Task{
		ID:        agentTask.ID,
		SessionID: sessionID,
		Request:   request,
		Status:    StatusRunning,
		CreatedAt: agentTask.CreatedAt,
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	go func() {
		defer cancel()
		result := s.pipeline.Run(ctx, agentTask)

		s.mu.Lock()
		task.Result = result
		task.Status = StatusFinished
		s.mu.Unlock()
		close(task.done)

		if s.history != nil {
			if err := s.history.AppendRun(context.Background(), sessionID, result); err != nil {
				s.log.Warn("persist run failed", "task", task.ID, "error", err)
			}
		}
	}()

	return task
}

// Run executes a task synchronously and returns its result.
func (s *TaskService) Run(ctx context.Context, request, sessionID, workingDir string) *Task {
	task := s.Submit(request, sessionID, workingDir)
	select {
	case <-task.done:
	case <-ctx.Done():
		task.cancel()
		<-task.done
	}
	snap, _ := s.Get(task.ID)
	return snap
}

// Get returns a copy of the tracked task.
func (s *TaskService) Get(taskID string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

// List returns all tracked tasks, newest first.
func (s *TaskService) List() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		cp := *task
		out = append(out, &cp)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Cancel aborts a running task. Finished tasks are left untouched.
func (s *TaskService) Cancel(taskID string) error {
	s.mu.RLock()
	task, ok := s.tasks[taskID]
	s.mu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	task.cancel()
	return nil
}

// ListCheckpoints returns the checkpoints recorded for a session.
func (s *TaskService) ListCheckpoints(sessionID string) []types.Checkpoint {
	return s.checkpoints.List(sessionID)
}

// ListApprovals returns the persisted approval audit for a session.
func (s *TaskService) ListApprovals(ctx context.Context, sessionID string) ([]types.ApprovalRequest, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListApprovals(ctx, sessionID)
}

// Rewind restores a checkpoint by id. Restoring consumes it.
func (s *TaskService) Rewind(checkpointID string) bool {
	return s.checkpoints.Restore(checkpointID)
}
