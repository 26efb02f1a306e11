package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/steward-dev/steward/pkg/types"
)

// FSStore implements Store on the local filesystem. No transactions;
// crash consistency relies on per-line atomic appends and whole-file
// rewrites.
//
// Directory structure:
//
//	root/
//	├── rules.json
//	└── sessions/
//	    └── {sessionID}/
//	        ├── runs.jsonl
//	        └── approvals.jsonl
type FSStore struct {
	rootDir string
	mu      sync.RWMutex
}

func NewFSStore(rootDir string) *FSStore {
	return &FSStore{rootDir: rootDir}
}

func (s *FSStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Join(s.rootDir, "sessions"), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) sessionDir(sessionID string) string {
	return filepath.Join(s.rootDir, "sessions", sessionID)
}

// appendLine writes one JSON document as a JSONL line, fsynced for
// durability.
func appendLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// scanLines streams each JSONL line through fn; a missing file is an
// empty log.
func scanLines(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *FSStore) AppendRun(ctx context.Context, sessionID string, result *types.PipelineResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLine(filepath.Join(s.sessionDir(sessionID), "runs.jsonl"), result)
}

func (s *FSStore) ListRuns(ctx context.Context, sessionID string) ([]types.PipelineResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.PipelineResult
	err := scanLines(filepath.Join(s.sessionDir(sessionID), "runs.jsonl"), func(line []byte) error {
		var r types.PipelineResult
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("corrupt run record: %w", err)
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *FSStore) AppendApproval(ctx context.Context, sessionID string, req types.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLine(filepath.Join(s.sessionDir(sessionID), "approvals.jsonl"), req)
}

func (s *FSStore) ListApprovals(ctx context.Context, sessionID string) ([]types.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.ApprovalRequest
	err := scanLines(filepath.Join(s.sessionDir(sessionID), "approvals.jsonl"), func(line []byte) error {
		var r types.ApprovalRequest
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("corrupt approval record: %w", err)
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func (s *FSStore) rulesPath() string {
	return filepath.Join(s.rootDir, "rules.json")
}

func (s *FSStore) SaveRules(ctx context.Context, rules []types.PermissionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	// Write-then-rename keeps the previous rules on a crash mid-write.
	tmp := s.rulesPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.rulesPath())
}

func (s *FSStore) LoadRules(ctx context.Context) ([]types.PermissionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.rulesPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rules []types.PermissionRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("corrupt rules file: %w", err)
	}
	return rules, nil
}
