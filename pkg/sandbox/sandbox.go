// Package sandbox decides whether paths and shell commands are permitted
// and runs commands under explicit resource bounds. It fails closed: an
// unresolvable path or an unparseable command is rejected.
package sandbox

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/steward-dev/steward/pkg/config"
)

// DefaultBlockedPaths are prefixes no tool may touch regardless of the
// allow-list. Credentials and system directories.
var DefaultBlockedPaths = []string{
	"/etc",
	"/proc",
	"/sys",
	"/dev",
	"/boot",
	"/var/run",
	"/usr/bin",
	"/usr/sbin",
}

// DefaultBlockedCommands are matched as substrings against the first
// whitespace-delimited token of a command line.
var DefaultBlockedCommands = []string{
	"rm",
	"rmdir",
	"dd",
	"mkfs",
	"shutdown",
	"reboot",
	"halt",
	"sudo",
	"su",
}

// Sandbox is the path and command policy for one workspace.
type Sandbox struct {
	root            string
	allowedPaths    []string
	blockedPaths    []string
	allowedCommands []string
	blockedCommands []string
	enabled         bool
	log             *slog.Logger
}

// New builds a sandbox from security config. WorkspaceRoot defaults to
// the current working directory and is resolved to an absolute path.
func New(cfg config.SecurityConfig, log *slog.Logger) *Sandbox {
	if log == nil {
		log = slog.Default()
	}

	root := cfg.WorkspaceRoot
	if root == "" {
		root, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	blockedPaths := cfg.BlockedPaths
	if len(blockedPaths) == 0 {
		blockedPaths = DefaultBlockedPaths
	}
	blockedCommands := cfg.BlockedCommands
	if len(blockedCommands) == 0 {
		blockedCommands = DefaultBlockedCommands
	}

	return &Sandbox{
		root:            root,
		allowedPaths:    cfg.AllowedPaths,
		blockedPaths:    blockedPaths,
		allowedCommands: cfg.AllowedCommands,
		blockedCommands: blockedCommands,
		enabled:         cfg.SandboxEnabled,
		log:             log,
	}
}

// Root returns the absolute project root.
func (s *Sandbox) Root() string {
	return s.root
}

// Enabled reports whether command scanning and policy checks are active.
func (s *Sandbox) Enabled() bool {
	return s.enabled
}

// IsPathAllowed resolves path to an absolute form and checks it against
// the blocked list first, then requires it to sit under the project root
// or an explicitly allowed prefix.
func (s *Sandbox) IsPathAllowed(path string) bool {
	if path == "" {
		return false
	}

	abs := filepath.Clean(path)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, abs)
	}

	for _, blocked := range s.blockedPaths {
		if pathHasPrefix(abs, blocked) {
			return false
		}
	}

	if pathHasPrefix(abs, s.root) {
		return true
	}
	for _, allowed := range s.allowedPaths {
		if pathHasPrefix(abs, allowed) {
			return true
		}
	}
	return false
}

// IsCommandAllowed extracts the first whitespace-delimited token and
// rejects it if it matches (substring) any blocked command. When an
// allow-list is configured the token must additionally appear in it.
func (s *Sandbox) IsCommandAllowed(command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	first := fields[0]

	for _, blocked := range s.blockedCommands {
		if blocked != "" && strings.Contains(first, blocked) {
			return false
		}
	}

	if len(s.allowedCommands) > 0 {
		for _, allowed := range s.allowedCommands {
			if first == allowed {
				return true
			}
		}
		return false
	}

	return true
}

// pathHasPrefix reports whether path sits at or under prefix, respecting
// path boundaries so /tmp/foobar does not match prefix /tmp/foo.
func pathHasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
