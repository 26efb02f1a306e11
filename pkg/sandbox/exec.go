package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/steward-dev/steward/pkg/types"
)

// ExecOptions bound a single command execution.
type ExecOptions struct {
	WorkingDir string
	DryRun     bool
	Timeout    time.Duration
	MaxOutput  int64
}

// ExecResult is the explicit outcome of a shell execution. Timeout, exit
// code and truncation are fields, never error subtypes.
type ExecResult struct {
	Command   string        `json:"command"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	TimedOut  bool          `json:"timed_out"`
	Truncated bool          `json:"truncated"`
	Refused   bool          `json:"refused"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Ok reports whether the command ran to completion with exit code zero.
func (r ExecResult) Ok() bool {
	return !r.Refused && !r.TimedOut && r.ExitCode == 0
}

const defaultMaxOutput = 1 << 20 // 1 MiB

// limitBuffer caps captured output so a chatty child process cannot
// exhaust memory.
type limitBuffer struct {
	buf       strings.Builder
	limit     int64
	truncated bool
}

func (b *limitBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// ExecuteCommand runs a shell command under sandbox policy.
//
// When sandboxing is disabled the command executes directly (still
// bounded by timeout and output cap). When enabled, the command text is
// scanned for dangerous patterns, checked against command policy, and
// only then executed. DryRun returns a description without executing.
// The child process is killed, not abandoned, when the timeout elapses.
func (s *Sandbox) ExecuteCommand(ctx context.Context, command string, opts ExecOptions) types.ToolResult {
	start := time.Now()
	res := s.Run(ctx, command, opts)

	tr := types.ToolResult{
		Success:    res.Ok(),
		Output:     res.Stdout,
		DurationMS: time.Since(start).Milliseconds(),
	}
	switch {
	case res.Refused:
		tr.Error = res.Reason
	case res.TimedOut:
		tr.Error = fmt.Sprintf("command timed out after %s", opts.Timeout)
	case res.ExitCode != 0:
		tr.Error = fmt.Sprintf("exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	if res.Stderr != "" && tr.Output == "" {
		tr.Output = res.Stderr
	}
	return tr
}

// Run executes the command and encodes every failure mode in ExecResult.
func (s *Sandbox) Run(ctx context.Context, command string, opts ExecOptions) ExecResult {
	command = strings.TrimSpace(command)
	result := ExecResult{Command: command}

	if command == "" {
		result.Refused = true
		result.Reason = "empty command"
		return result
	}

	if s.enabled {
		if f, blocked := hasBlockingFinding(s.ScanCommand(command)); blocked {
			result.Refused = true
			result.Reason = fmt.Sprintf("security scan: %s (%s)", f.Description, f.Severity)
			s.log.Warn("command refused by security scan", "command", command, "finding", f.Description)
			return result
		}
		if !s.IsCommandAllowed(command) {
			result.Refused = true
			result.Reason = "command blocked by sandbox policy"
			s.log.Warn("command refused by policy", "command", command)
			return result
		}
	}

	if opts.DryRun {
		result.Stdout = fmt.Sprintf("[dry run] would execute: %s", command)
		return result
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxOutput := opts.MaxOutput
	if maxOutput <= 0 {
		maxOutput = defaultMaxOutput
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := shellCommand(command)
	cmd := exec.CommandContext(execCtx, name, args...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	} else {
		cmd.Dir = s.root
	}
	// Give the process a short grace period after ctx cancellation, then
	// SIGKILL. Guarantees we never leak a child past the timeout.
	cmd.WaitDelay = 5 * time.Second

	stdout := &limitBuffer{limit: maxOutput}
	stderr := &limitBuffer{limit: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.buf.String()
	result.Stderr = stderr.buf.String()
	result.Truncated = stdout.truncated || stderr.truncated

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.Refused = true
			result.Reason = fmt.Sprintf("failed to start: %v", err)
		}
		return result
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	return "sh", []string{"-c", command}
}
