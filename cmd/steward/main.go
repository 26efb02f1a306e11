package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steward-dev/steward/pkg/api"
	"github.com/steward-dev/steward/pkg/api/service"
	"github.com/steward-dev/steward/pkg/types"
)

var (
	flagConfig  string
	flagDryRun  bool
	flagYes     bool
	flagSandbox bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "steward",
		Short:         "Safety-gated agentic command runner",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to configuration file")
	root.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "describe mutations instead of performing them")
	root.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "auto-approve every request (skips the gate)")
	root.PersistentFlags().BoolVar(&flagSandbox, "sandbox", true, "confine paths and commands to the workspace")

	root.AddCommand(newRunCmd(), newServeCmd(), newCleanCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <instruction>",
		Short: "Run one task through the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), cmd, terminalPrompt(os.Stdin, os.Stdout))
			if err != nil {
				return err
			}
			defer app.Close()

			task := &types.AgentTask{
				Request:    strings.Join(args, " "),
				WorkingDir: app.workDir,
			}
			result := app.pipeline.Run(cmd.Context(), task)

			if app.history != nil {
				if err := app.history.AppendRun(cmd.Context(), task.SessionID, result); err != nil {
					app.log.Warn("persist run failed", "error", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Explanation)
			if !result.Success {
				return fmt.Errorf("task failed: %s", result.Error)
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API; approvals are answered over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newApp(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			taskSvc := service.NewTaskService(app.pipeline, app.checkpoints, app.history, app.workDir, app.log)
			server := api.NewServer(app.cfg.HTTP, taskSvc, app.gate, app.log)
			httpSrv := &http.Server{Addr: server.Addr(), Handler: server.Engine()}

			go func() {
				<-ctx.Done()
				_ = httpSrv.Shutdown(context.Background())
			}()

			app.log.Info("http api listening", "addr", server.Addr(), "provider", app.providerID)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove persisted session data (checkpoints, history, rules)",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.Default()
			dataDir, err := resolveDataDir()
			if err != nil {
				return err
			}
			log.Info("cleaning session data", "path", dataDir)
			if err := os.RemoveAll(dataDir); err != nil {
				return fmt.Errorf("clean session data: %w", err)
			}
			return nil
		},
	}
}

func resolveDataDir() (string, error) {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return "", err
	}
	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		workDir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(workDir, dataDir)
	}
	return dataDir, nil
}
