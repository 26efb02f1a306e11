// Package editor is the file-mutation API built on the diff engine and
// the checkpoint store. Tools that touch files go through here so every
// change is checkpointed and reported as a diff.
package editor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/diff"
	"github.com/steward-dev/steward/pkg/sandbox"
	"github.com/steward-dev/steward/pkg/types"
)

// Editor applies structured edit operations to files.
type Editor struct {
	engine      *diff.Engine
	checkpoints *checkpoint.Store
	sandbox     *sandbox.Sandbox
	log         *slog.Logger
}

// New wires an editor. sandbox may be nil when path policy is enforced
// elsewhere.
func New(engine *diff.Engine, checkpoints *checkpoint.Store, sb *sandbox.Sandbox, log *slog.Logger) *Editor {
	if log == nil {
		log = slog.Default()
	}
	if engine == nil {
		engine = diff.NewEngine()
	}
	return &Editor{
		engine:      engine,
		checkpoints: checkpoints,
		sandbox:     sb,
		log:         log,
	}
}

func editFailure(path string, err error) types.EditResult {
	return types.EditResult{
		ID:      types.GenerateEditID(),
		Path:    path,
		Success: false,
		Error:   err.Error(),
	}
}

// Apply runs one edit operation: checkpoint the target (unless dry run),
// compute the new content, write it, and return the generated diff.
func (e *Editor) Apply(op types.EditOperation, ec types.ExecutionContext) types.EditResult {
	path, err := e.resolvePath(op.Path, ec)
	if err != nil {
		return editFailure(op.Path, err)
	}

	if !ec.DryRun && e.checkpoints != nil {
		if _, err := e.checkpoints.Create(ec.SessionID, "Edit: "+op.Path, path); err != nil {
			return editFailure(op.Path, fmt.Errorf("checkpoint: %w", err))
		}
	}

	return e.applyResolved(op, path, ec)
}

// ApplyMulti runs a batch of edits under a single checkpoint so the
// caller can roll the whole batch back as one unit. It does not halt on
// the first failure; every operation is attempted and counted.
// Successful edits stay on disk even when the batch reports failure.
func (e *Editor) ApplyMulti(ops []types.EditOperation, ec types.ExecutionContext) types.MultiEditResult {
	var out types.MultiEditResult

	if !ec.DryRun && e.checkpoints != nil && len(ops) > 0 {
		paths := make([]string, 0, len(ops))
		seen := make(map[string]bool)
		for _, op := range ops {
			p, err := e.resolvePath(op.Path, ec)
			if err != nil || seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
		id, err := e.checkpoints.Create(ec.SessionID, fmt.Sprintf("Multi-edit: %d operations", len(ops)), paths...)
		if err != nil {
			e.log.Warn("batch checkpoint failed", "error", err)
		} else {
			out.CheckpointID = id
		}
	}

	for _, op := range ops {
		var res types.EditResult
		if path, err := e.resolvePath(op.Path, ec); err != nil {
			res = editFailure(op.Path, err)
		} else {
			res = e.applyResolved(op, path, ec)
		}
		out.Results = append(out.Results, res)
		if res.Success {
			out.SuccessfulFiles++
		} else {
			out.FailedFiles++
		}
	}

	out.Success = out.FailedFiles == 0
	e.log.Info("multi-edit finished",
		"ops", len(ops), "ok", out.SuccessfulFiles, "failed", out.FailedFiles)
	return out
}

func (e *Editor) resolvePath(path string, ec types.ExecutionContext) (string, error) {
	if path == "" {
		return "", fmt.Errorf("edit operation has no path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ec.WorkingDir, path)
	}
	if ec.SandboxEnabled && e.sandbox != nil && !e.sandbox.IsPathAllowed(path) {
		return "", fmt.Errorf("path not allowed by sandbox policy: %s", path)
	}
	return path, nil
}

func (e *Editor) applyResolved(op types.EditOperation, path string, ec types.ExecutionContext) types.EditResult {
	oldContent, exists, err := readIfExists(path)
	if err != nil {
		return editFailure(op.Path, fmt.Errorf("read: %w", err))
	}
	if !exists && op.Op != types.EditAppend {
		return editFailure(op.Path, fmt.Errorf("file does not exist: %s", path))
	}

	newContent, err := e.transform(op, oldContent)
	if err != nil {
		return editFailure(op.Path, err)
	}

	patch := e.engine.Generate(oldContent, newContent, op.Path)
	added, removed := e.engine.Stats(oldContent, newContent)

	if !ec.DryRun {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return editFailure(op.Path, fmt.Errorf("write: %w", err))
		}
		if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
			return editFailure(op.Path, fmt.Errorf("write: %w", err))
		}
	}

	return types.EditResult{
		ID:           types.GenerateEditID(),
		Path:         op.Path,
		Success:      true,
		Diff:         patch,
		LinesAdded:   added,
		LinesRemoved: removed,
	}
}

// transform computes the post-edit content for one operation.
func (e *Editor) transform(op types.EditOperation, oldContent string) (string, error) {
	switch op.Op {
	case types.EditReplace:
		if op.SearchPattern == "" {
			return "", fmt.Errorf("replace requires a search pattern")
		}
		if !strings.Contains(oldContent, op.SearchPattern) {
			return "", fmt.Errorf("search pattern not found in file")
		}
		return strings.ReplaceAll(oldContent, op.SearchPattern, op.Replacement), nil

	case types.EditInsert:
		lines := splitKeepingTrailing(oldContent)
		if op.LineNumber < 1 || op.LineNumber > len(lines)+1 {
			return "", fmt.Errorf("insert line %d out of range (file has %d lines)", op.LineNumber, len(lines))
		}
		idx := op.LineNumber - 1
		lines = append(lines[:idx], append([]string{op.Content}, lines[idx:]...)...)
		return strings.Join(lines, "\n") + "\n", nil

	case types.EditDelete:
		lines := splitKeepingTrailing(oldContent)
		start, end := op.LineNumber, op.EndLineNumber
		if end == 0 {
			end = start
		}
		if start < 1 || end < start || end > len(lines) {
			return "", fmt.Errorf("delete range [%d,%d] out of range (file has %d lines)", start, end, len(lines))
		}
		lines = append(lines[:start-1], lines[end:]...)
		if len(lines) == 0 {
			return "", nil
		}
		return strings.Join(lines, "\n") + "\n", nil

	case types.EditAppend:
		if oldContent == "" {
			return ensureTrailingNewline(op.Content), nil
		}
		return ensureTrailingNewline(oldContent) + ensureTrailingNewline(op.Content), nil

	case types.EditPatch:
		return applyPatchText(op.Patch, oldContent)

	default:
		return "", fmt.Errorf("unknown edit op: %q", op.Op)
	}
}

// applyPatchText applies diff-match-patch formatted patch text. Every
// hunk must apply; a partial application is reported as failure.
func applyPatchText(patchText, oldContent string) (string, error) {
	if patchText == "" {
		return "", fmt.Errorf("patch operation has no patch text")
	}
	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(patchText)
	if err != nil {
		return "", fmt.Errorf("parse patch: %w", err)
	}
	newContent, applied := dmp.PatchApply(patches, oldContent)
	for i, ok := range applied {
		if !ok {
			return "", fmt.Errorf("patch hunk %d failed to apply", i+1)
		}
	}
	return newContent, nil
}

func readIfExists(path string) (content string, exists bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func splitKeepingTrailing(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
