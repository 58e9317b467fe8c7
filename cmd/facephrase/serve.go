package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/daemon"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/media"
	"facephrase/internal/notifications"
	"facephrase/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(cfg, jobs.WithLogger(logger))
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	d, err := buildDaemon(cfg, store, media.NewTool(cfg, media.WithLogger(logger)), logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("facephrase daemon shutting down", logging.String(logging.FieldEventType, "daemon_signal"))
	d.Stop(context.Background())
	return nil
}

// buildDaemon wires the stage executors, orchestrator and dispatcher on top
// of tool.
func buildDaemon(cfg *config.Config, store *jobs.Store, tool *media.Tool, logger *slog.Logger) (*daemon.Daemon, error) {
	stages := workflow.NewStageSet(cfg, tool, logger)
	orchestrator := workflow.NewOrchestrator(cfg, store, stages, notifications.NewService(cfg), logger)
	dispatcher := workflow.NewDispatcher(cfg, store, orchestrator, logger)
	service := api.NewJobService(cfg, store, dispatcher, tool, logger)
	return daemon.New(cfg, store, dispatcher, logger,
		daemon.WithJobService(service),
		daemon.WithStageHealth(stages),
	)
}
