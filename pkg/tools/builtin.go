// Package tools registers the builtin tool set: filesystem access, the
// structured editor, shell execution through the sandbox, and git
// helpers. Everything here goes through the executor's gate at runtime;
// the definitions only declare risk and approval requirements.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steward-dev/steward/pkg/editor"
	"github.com/steward-dev/steward/pkg/sandbox"
	"github.com/steward-dev/steward/pkg/tool"
	"github.com/steward-dev/steward/pkg/types"
)

// Deps carries the collaborators the builtin handlers close over.
type Deps struct {
	Sandbox *sandbox.Sandbox
	Editor  *editor.Editor
}

// RegisterBuiltins installs the default tool set into the registry.
func RegisterBuiltins(reg *tool.Registry, deps Deps) {
	reg.Register(tool.Definition{
		Name:        "read_file",
		Description: "Read the content of a file",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "File path, relative to the working directory"},
			},
			"required": []string{"path"},
		},
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler:        deps.readFile,
	})

	reg.Register(tool.Definition{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
		Risk:             types.RiskMedium,
		RequiresApproval: true,
		SandboxAllowed:   true,
		TargetArgs:       []string{"path"},
		Handler:          deps.writeFile,
	})

	reg.Register(tool.Definition{
		Name:        "edit_file",
		Description: "Apply a structured edit (replace, insert, delete, append, patch) to a file",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"op":              map[string]any{"type": "string", "enum": []string{"replace", "insert", "delete", "append", "patch"}},
				"path":            map[string]any{"type": "string"},
				"search_pattern":  map[string]any{"type": "string"},
				"replacement":     map[string]any{"type": "string"},
				"line_number":     map[string]any{"type": "integer"},
				"end_line_number": map[string]any{"type": "integer"},
				"content":         map[string]any{"type": "string"},
				"patch":           map[string]any{"type": "string"},
			},
			"required": []string{"op", "path"},
		},
		Risk:             types.RiskMedium,
		RequiresApproval: true,
		SandboxAllowed:   true,
		TargetArgs:       []string{"path"},
		Handler:          deps.editFile,
	})

	reg.Register(tool.Definition{
		Name:        "append_file",
		Description: "Append content to a file, creating it if missing",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
		Risk:             types.RiskMedium,
		RequiresApproval: true,
		SandboxAllowed:   true,
		TargetArgs:       []string{"path"},
		Handler:          deps.appendFile,
	})

	reg.Register(tool.Definition{
		Name:        "delete_lines",
		Description: "Delete an inclusive line range from a file",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"path":            map[string]any{"type": "string"},
				"line_number":     map[string]any{"type": "integer"},
				"end_line_number": map[string]any{"type": "integer"},
			},
			"required": []string{"path", "line_number"},
		},
		Risk:             types.RiskMedium,
		RequiresApproval: true,
		SandboxAllowed:   true,
		TargetArgs:       []string{"path"},
		Handler:          deps.deleteLines,
	})

	reg.Register(tool.Definition{
		Name:        "list_dir",
		Description: "List the entries of a directory",
		Category:    types.CategoryFilesystem,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Directory path, defaults to the working directory"},
			},
		},
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler:        deps.listDir,
	})

	reg.Register(tool.Definition{
		Name:        "search_files",
		Description: "Search files under the working directory for a substring",
		Category:    types.CategorySearch,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string"},
				"pattern": map[string]any{"type": "string", "description": "Glob limiting the files searched, e.g. *.go"},
			},
			"required": []string{"query"},
		},
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler:        deps.searchFiles,
	})

	reg.Register(tool.Definition{
		Name:        "run_shell",
		Description: "Run a shell command in the working directory",
		Category:    types.CategoryShell,
		Parameters: types.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{"type": "string"},
			},
			"required": []string{"command"},
		},
		Risk:             types.RiskHigh,
		RequiresApproval: true,
		SandboxAllowed:   true,
		Handler:          deps.runShell,
	})

	reg.Register(tool.Definition{
		Name:           "git_status",
		Description:    "Show the git working tree status",
		Category:       types.CategoryGit,
		Parameters:     types.JSONSchema{"type": "object", "properties": map[string]any{}},
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler:        deps.gitCommand("status", "--short", "--branch"),
	})

	reg.Register(tool.Definition{
		Name:           "git_diff",
		Description:    "Show unstaged changes in the git working tree",
		Category:       types.CategoryGit,
		Parameters:     types.JSONSchema{"type": "object", "properties": map[string]any{}},
		Risk:           types.RiskLow,
		SandboxAllowed: true,
		Handler:        deps.gitCommand("diff"),
	})
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		// JSON numbers decode as float64.
		return int(v)
	}
	return 0
}

func toolFailure(format string, a ...any) types.ToolResult {
	return types.ToolResult{Success: false, Error: fmt.Sprintf(format, a...)}
}

func (d Deps) resolve(path string, ec types.ExecutionContext) (string, error) {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ec.WorkingDir, path)
	}
	if ec.SandboxEnabled && d.Sandbox != nil && !d.Sandbox.IsPathAllowed(path) {
		return "", fmt.Errorf("path not allowed: %s", path)
	}
	return path, nil
}

func (d Deps) readFile(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	path, err := d.resolve(stringArg(args, "path"), ec)
	if err != nil {
		return toolFailure("%v", err), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return toolFailure("read %s: %v", path, err), nil
	}
	return types.ToolResult{Success: true, Output: string(data)}, nil
}

func (d Deps) writeFile(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	path, err := d.resolve(stringArg(args, "path"), ec)
	if err != nil {
		return toolFailure("%v", err), nil
	}
	content := stringArg(args, "content")

	if ec.DryRun {
		return types.ToolResult{Success: true, Output: fmt.Sprintf("[dry run] would write %d bytes to %s", len(content), path)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return toolFailure("write %s: %v", path, err), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return toolFailure("write %s: %v", path, err), nil
	}
	return types.ToolResult{
		Success:      true,
		Output:       fmt.Sprintf("wrote %d bytes to %s", len(content), stringArg(args, "path")),
		FilesChanged: []string{path},
	}, nil
}

func (d Deps) editFile(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	return d.applyEdit(types.EditOperation{
		Op:            types.EditOp(stringArg(args, "op")),
		Path:          stringArg(args, "path"),
		SearchPattern: stringArg(args, "search_pattern"),
		Replacement:   stringArg(args, "replacement"),
		LineNumber:    intArg(args, "line_number"),
		EndLineNumber: intArg(args, "end_line_number"),
		Content:       stringArg(args, "content"),
		Patch:         stringArg(args, "patch"),
	}, ec)
}

// appendFile and deleteLines are thin fronts over the editor's append
// and delete operations.
func (d Deps) appendFile(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	return d.applyEdit(types.EditOperation{
		Op:      types.EditAppend,
		Path:    stringArg(args, "path"),
		Content: stringArg(args, "content"),
	}, ec)
}

func (d Deps) deleteLines(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	return d.applyEdit(types.EditOperation{
		Op:            types.EditDelete,
		Path:          stringArg(args, "path"),
		LineNumber:    intArg(args, "line_number"),
		EndLineNumber: intArg(args, "end_line_number"),
	}, ec)
}

func (d Deps) applyEdit(op types.EditOperation, ec types.ExecutionContext) (types.ToolResult, error) {
	if d.Editor == nil {
		return toolFailure("editor not configured"), nil
	}
	res := d.Editor.Apply(op, ec)
	if !res.Success {
		return toolFailure("edit %s: %s", op.Path, res.Error), nil
	}
	return types.ToolResult{
		Success:      true,
		Output:       res.Diff,
		FilesChanged: []string{op.Path},
	}, nil
}

func (d Deps) listDir(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	path, err := d.resolve(stringArg(args, "path"), ec)
	if err != nil {
		return toolFailure("%v", err), nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return toolFailure("list %s: %v", path, err), nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
		} else {
			fmt.Fprintf(&sb, "%s\n", entry.Name())
		}
	}
	return types.ToolResult{Success: true, Output: sb.String()}, nil
}

const maxSearchMatches = 200

func (d Deps) searchFiles(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	query := stringArg(args, "query")
	if query == "" {
		return toolFailure("search requires a query"), nil
	}
	glob := stringArg(args, "pattern")

	var matches []string
	err := filepath.WalkDir(ec.WorkingDir, func(path string, de os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if de.IsDir() {
			if strings.HasPrefix(de.Name(), ".") || de.Name() == "node_modules" || de.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, de.Name()); !ok {
				return nil
			}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(ec.WorkingDir, path)
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if len(matches) >= maxSearchMatches {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return toolFailure("search: %v", err), nil
	}

	sort.Strings(matches)
	if len(matches) == 0 {
		return types.ToolResult{Success: true, Output: "no matches"}, nil
	}
	return types.ToolResult{Success: true, Output: strings.Join(matches, "\n")}, nil
}

func (d Deps) runShell(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
	command := stringArg(args, "command")
	if command == "" {
		return toolFailure("run_shell requires a command"), nil
	}
	if d.Sandbox == nil {
		return toolFailure("shell execution not configured"), nil
	}
	result := d.Sandbox.ExecuteCommand(ctx, command, sandbox.ExecOptions{
		WorkingDir: ec.WorkingDir,
		DryRun:     ec.DryRun,
	})
	return result, nil
}

func (d Deps) gitCommand(gitArgs ...string) tool.Handler {
	return func(ctx context.Context, args map[string]any, ec types.ExecutionContext) (types.ToolResult, error) {
		if d.Sandbox == nil {
			return toolFailure("shell execution not configured"), nil
		}
		command := "git " + strings.Join(gitArgs, " ")
		result := d.Sandbox.ExecuteCommand(ctx, command, sandbox.ExecOptions{
			WorkingDir: ec.WorkingDir,
			DryRun:     ec.DryRun,
		})
		return result, nil
	}
}
