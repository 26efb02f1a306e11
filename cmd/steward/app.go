package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steward-dev/steward/pkg/agent"
	"github.com/steward-dev/steward/pkg/approval"
	"github.com/steward-dev/steward/pkg/checkpoint"
	"github.com/steward-dev/steward/pkg/config"
	"github.com/steward-dev/steward/pkg/editor"
	"github.com/steward-dev/steward/pkg/llm/factory"
	"github.com/steward-dev/steward/pkg/sandbox"
	"github.com/steward-dev/steward/pkg/store"
	"github.com/steward-dev/steward/pkg/tool"
	"github.com/steward-dev/steward/pkg/tools"
	"github.com/steward-dev/steward/pkg/types"
)

// app holds the wired components shared by the run and serve commands.
type app struct {
	cfg         *config.Config
	log         *slog.Logger
	workDir     string
	checkpoints *checkpoint.Store
	gate        *approval.Gate
	pipeline    *agent.Pipeline
	history     store.Store
	providerID  string
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	return cfg, nil
}

// newApp wires the full stack: config, logging, persistence, sandbox,
// tools, gate and pipeline. prompt may be nil for headless operation.
func newApp(ctx context.Context, cmd *cobra.Command, prompt approval.PromptFunc) (*app, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return nil, err
	}

	// Flags override the config file.
	if flagYes {
		cfg.Security.AutoApprove = true
	}
	if cmd.Flags().Changed("sandbox") {
		cfg.Security.SandboxEnabled = flagSandbox
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if cfg.Security.WorkspaceRoot == "" {
		cfg.Security.WorkspaceRoot = workDir
	}

	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(workDir, dataDir)
	}

	history := store.NewFSStore(dataDir)
	if err := history.Open(ctx); err != nil {
		return nil, err
	}

	policy := approval.NewPolicy(cfg.Security)
	if rules, err := history.LoadRules(ctx); err == nil && len(rules) > 0 {
		policy.Restore(rules)
	}
	gate := approval.NewGate(policy, prompt, log)
	gate.SetAuditSink(func(req types.ApprovalRequest) {
		if err := history.AppendApproval(context.Background(), req.SessionID, req); err != nil {
			log.Warn("persist approval record failed", "request", req.ID, "error", err)
		}
	})

	checkpoints := checkpoint.NewStore(workDir, checkpoint.Options{
		PersistDir:         filepath.Join(dataDir, "checkpoints"),
		FailOnCaptureError: cfg.Security.FailOnCaptureError,
	}, log)

	sb := sandbox.New(cfg.Security, log)
	ed := editor.New(nil, checkpoints, sb, log)

	registry := tool.NewRegistry()
	tools.RegisterBuiltins(registry, tools.Deps{Sandbox: sb, Editor: ed})

	executor := tool.NewExecutor(registry, checkpoints, gate, log)

	// A missing provider is not fatal: the planner degrades to the
	// keyword classifier.
	gateway, providerID, err := factory.NewGateway(ctx, cfg)
	if err != nil {
		log.Warn("no llm provider available, using heuristic planning", "error", err)
		gateway = nil
		providerID = "none"
	}

	planner := agent.NewPlanner(gateway, registry, log)
	pipeline := agent.NewPipeline(planner, executor, gate, checkpoints, gateway, log)
	pipeline.DryRun = flagDryRun
	pipeline.SandboxEnabled = cfg.Security.SandboxEnabled

	return &app{
		cfg:         cfg,
		log:         log,
		workDir:     workDir,
		checkpoints: checkpoints,
		gate:        gate,
		pipeline:    pipeline,
		history:     history,
		providerID:  providerID,
	}, nil
}

// Close persists remembered rules and releases the history store.
func (a *app) Close() {
	if rules := a.gate.Policy().Rules(); len(rules) > 0 {
		if err := a.history.SaveRules(context.Background(), rules); err != nil {
			a.log.Warn("persist permission rules failed", "error", err)
		}
	}
	_ = a.history.Close()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "VERBOSE":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
