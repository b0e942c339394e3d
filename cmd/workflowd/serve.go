package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/catalog"
	"github.com/fyrsmithlabs/workflowd/internal/config"
	"github.com/fyrsmithlabs/workflowd/internal/logging"
	"github.com/fyrsmithlabs/workflowd/internal/mcp"
	"github.com/fyrsmithlabs/workflowd/internal/orchestrator"
	"github.com/fyrsmithlabs/workflowd/internal/router"
	"github.com/fyrsmithlabs/workflowd/internal/store"
	"github.com/fyrsmithlabs/workflowd/internal/telemetry"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// runServe wires every component and blocks until the MCP client
// disconnects or the process receives SIGINT/SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zlog := logger.Underlying()

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Server.Version,
		ExportInterval: cfg.Telemetry.ExportInterval.Duration(),
		Insecure:       true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	if tel.IsDegraded() {
		logger.Warn(ctx, "telemetry degraded, continuing without full export")
	}

	sharedStore := store.New(store.Config{
		DefaultTTL:    cfg.Store.DefaultTTL.Duration(),
		SweepInterval: cfg.Store.SweepInterval.Duration(),
	})
	sharedStore.SetMetrics(store.NewMetrics(zlog))
	if cfg.Store.SweepEnabled {
		sharedStore.StartSweep()
		defer sharedStore.StopSweep()
	}

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load pattern catalog: %w", err)
	}
	logger.Info(ctx, "pattern catalog loaded", zap.Int("patterns", len(cat.Patterns())))

	validator := workflow.NewStructuralValidator(cat, zlog)

	orch := orchestrator.New(sharedStore, cat, validator, orchestrator.Config{
		StageTimeout: cfg.Orchestrator.StageTimeout.Duration(),
	}, zlog)
	if err := orch.Initialize(); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}

	rtr := router.New(sharedStore, router.Config{
		DecisionWindow:  cfg.Router.DecisionWindow.Duration(),
		RetentionWindow: cfg.Router.RetentionWindow.Duration(),
		MinSamples:      cfg.Router.MinSamples,
	}, zlog)

	server, err := mcp.NewServer(&mcp.Config{
		Name:       cfg.Server.Name,
		Version:    cfg.Server.Version,
		MaxRetries: cfg.Orchestrator.MaxRetries,
		Logger:     zlog,
	}, orch, rtr, validator)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	runErr := server.Run(ctx)

	// Shutdown: close services first, then flush telemetry within the
	// configured timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Close(); err != nil {
		logger.Warn(shutdownCtx, "server close failed", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	logger.Info(shutdownCtx, "shutdown complete")
	return nil
}
