// Package checkpoint captures and restores file contents as atomic undo
// units. A checkpoint is taken strictly before any mutation and consumed
// by restore; the invariant "checkpoint-then-gate" in the executor
// depends on Create never mutating anything itself.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/steward-dev/steward/pkg/types"
)

// Options tune capture behavior.
type Options struct {
	// PersistDir, when set, mirrors checkpoints to
	// <PersistDir>/<sessionID>/<checkpointID>.json.
	PersistDir string
	// FailOnCaptureError aborts Create when a file cannot be read.
	// Default is to skip the file and log, which risks a partial
	// checkpoint but never blocks the operation.
	FailOnCaptureError bool
	// MaxFileBytes skips files larger than this during capture (0 means
	// the 4 MiB default). Oversized files are treated like unreadable ones.
	MaxFileBytes int64
}

const defaultMaxFileBytes = 4 << 20

// Store owns the map from checkpoint id to checkpoint. It is safe for
// concurrent use across sessions; within one session callers are
// expected to serialize mutating operations.
type Store struct {
	workDir string
	opts    Options
	log     *slog.Logger

	mu          sync.Mutex
	checkpoints map[string]*types.Checkpoint
}

// NewStore creates a checkpoint store rooted at workDir.
func NewStore(workDir string, opts Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	return &Store{
		workDir:     workDir,
		opts:        opts,
		log:         log,
		checkpoints: make(map[string]*types.Checkpoint),
	}
}

// Create snapshots the current content of the given paths into a new
// checkpoint and returns its id. When no paths are given, the working
// tree's modified files (per git) are captured; if the directory is not
// a git repository, capture falls back to every regular file under the
// work dir.
//
// A path that does not exist yet is recorded as kind "created" so a
// restore deletes it. Unreadable files are skipped unless
// FailOnCaptureError is set.
func (s *Store) Create(sessionID, description string, paths ...string) (string, error) {
	if len(paths) == 0 {
		paths = s.candidatePaths()
	}

	cp := &types.Checkpoint{
		ID:          types.GenerateCheckpointID(),
		SessionID:   sessionID,
		Description: description,
		CreatedAt:   time.Now(),
	}

	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.workDir, p)
		}

		info, err := os.Stat(abs)
		if os.IsNotExist(err) {
			cp.Files = append(cp.Files, types.FileSnapshot{
				Path: abs,
				Kind: types.SnapshotCreated,
			})
			continue
		}
		if err == nil && (info.IsDir() || info.Size() > s.opts.MaxFileBytes) {
			continue
		}

		var content []byte
		if err == nil {
			content, err = os.ReadFile(abs)
		}
		if err != nil {
			if s.opts.FailOnCaptureError {
				return "", fmt.Errorf("capture %s: %w", abs, err)
			}
			s.log.Warn("skipping unreadable file in checkpoint", "path", abs, "error", err)
			continue
		}

		cp.Files = append(cp.Files, types.FileSnapshot{
			Path:            abs,
			Kind:            types.SnapshotModified,
			OriginalContent: string(content),
		})
	}

	s.mu.Lock()
	s.checkpoints[cp.ID] = cp
	s.mu.Unlock()

	if err := s.persist(cp); err != nil {
		s.log.Warn("failed to persist checkpoint", "id", cp.ID, "error", err)
	}

	s.log.Debug("checkpoint created", "id", cp.ID, "session", sessionID, "files", len(cp.Files))
	return cp.ID, nil
}

// Restore puts every captured file back: modified files are overwritten
// with their original content, created files are deleted. The checkpoint
// is consumed; a second Restore with the same id returns false.
func (s *Store) Restore(checkpointID string) bool {
	s.mu.Lock()
	cp, ok := s.checkpoints[checkpointID]
	if ok {
		delete(s.checkpoints, checkpointID)
	}
	s.mu.Unlock()

	if !ok {
		cp = s.loadPersisted(checkpointID)
		if cp == nil {
			s.log.Warn("restore requested for unknown checkpoint", "id", checkpointID)
			return false
		}
	}

	for _, f := range cp.Files {
		switch f.Kind {
		case types.SnapshotModified:
			if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
				s.log.Error("restore mkdir failed", "path", f.Path, "error", err)
				continue
			}
			if err := os.WriteFile(f.Path, []byte(f.OriginalContent), 0o644); err != nil {
				s.log.Error("restore write failed", "path", f.Path, "error", err)
			}
		case types.SnapshotCreated:
			if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
				s.log.Error("restore delete failed", "path", f.Path, "error", err)
			}
		}
	}

	s.removePersisted(cp)
	s.log.Info("checkpoint restored", "id", checkpointID, "files", len(cp.Files))
	return true
}

// Get returns a checkpoint by id without consuming it.
func (s *Store) Get(checkpointID string) (*types.Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[checkpointID]
	return cp, ok
}

// List enumerates checkpoints, optionally filtered by session.
func (s *Store) List(sessionID string) []types.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Checkpoint
	for _, cp := range s.checkpoints {
		if sessionID != "" && cp.SessionID != sessionID {
			continue
		}
		out = append(out, *cp)
	}
	return out
}

// Cleanup drops all checkpoints belonging to a session, typically on
// session end.
func (s *Store) Cleanup(sessionID string) int {
	s.mu.Lock()
	var doomed []*types.Checkpoint
	for id, cp := range s.checkpoints {
		if cp.SessionID == sessionID {
			doomed = append(doomed, cp)
			delete(s.checkpoints, id)
		}
	}
	s.mu.Unlock()

	for _, cp := range doomed {
		s.removePersisted(cp)
	}
	return len(doomed)
}

// candidatePaths asks git for the modified file list, falling back to a
// bounded walk of the work dir when git is unavailable.
func (s *Store) candidatePaths() []string {
	if paths, err := s.gitModifiedFiles(); err == nil && len(paths) > 0 {
		return paths
	}
	return s.walkFiles()
}

func (s *Store) gitModifiedFiles() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = s.workDir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		// Format: XY <path> (rename lines carry "old -> new").
		p := strings.TrimSpace(line[3:])
		if idx := strings.Index(p, " -> "); idx >= 0 {
			p = p[idx+4:]
		}
		paths = append(paths, p)
	}
	return paths, nil
}

const maxWalkFiles = 2000

func (s *Store) walkFiles() []string {
	var paths []string
	_ = filepath.WalkDir(s.workDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		paths = append(paths, path)
		if len(paths) >= maxWalkFiles {
			return filepath.SkipAll
		}
		return nil
	})
	return paths
}

// Persistence: one JSON document per checkpoint under the session dir.
// The restore contract is identical regardless of backing store.

func (s *Store) persistPath(cp *types.Checkpoint) string {
	return filepath.Join(s.opts.PersistDir, cp.SessionID, cp.ID+".json")
}

func (s *Store) persist(cp *types.Checkpoint) error {
	if s.opts.PersistDir == "" {
		return nil
	}
	path := s.persistPath(cp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) loadPersisted(checkpointID string) *types.Checkpoint {
	if s.opts.PersistDir == "" {
		return nil
	}
	matches, _ := filepath.Glob(filepath.Join(s.opts.PersistDir, "*", checkpointID+".json"))
	if len(matches) == 0 {
		return nil
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil
	}
	var cp types.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &cp
}

func (s *Store) removePersisted(cp *types.Checkpoint) {
	if s.opts.PersistDir == "" {
		return
	}
	_ = os.Remove(s.persistPath(cp))
}
