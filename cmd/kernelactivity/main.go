package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"kernelactivity/gateway/internal/activity"
	"kernelactivity/gateway/internal/command"
	"kernelactivity/gateway/internal/config"
	"kernelactivity/gateway/internal/db"
	"kernelactivity/gateway/internal/gatewayapi"
	"kernelactivity/gateway/internal/global"
	"kernelactivity/gateway/internal/journal"
	"kernelactivity/gateway/internal/kernels"
	"kernelactivity/gateway/internal/lifecycle"
	"kernelactivity/gateway/internal/logging"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig:   config.LoadConfig,
		RunServe:     runServe,
		RunMigrateUp: runMigrateUp,
	})
	app.Version = version

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Component: "kernelactivity"}).Error("kernelactivity failed", "err", err)
		os.Exit(1)
	}
}

func runMigrateUp(_ context.Context, cfg config.Config) error {
	configDir, err := global.DefaultConfigDir()
	if err != nil {
		return err
	}
	gdb, err := db.Open(databasePath(cfg, configDir))
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func runServe(ctx context.Context, cfg config.Config) error {
	configDir, err := global.DefaultConfigDir()
	if err != nil {
		return err
	}
	fileCfg, err := global.NewConfigStore(configDir).LoadOrInit()
	if err != nil {
		return err
	}
	cfg = overlayFileConfig(cfg, fileCfg)

	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "kernelactivity"})

	registry := activity.NewRegistry()
	table := kernels.NewTable(registry)

	deps := gatewayapi.Deps{
		Activity:     registry,
		Kernels:      table,
		Responder:    gatewayapi.EchoResponder{},
		JournalLimit: cfg.JournalLimit,
	}

	mgr := lifecycle.NewManager()

	if cfg.JournalEnabled {
		gdb, err := db.Open(databasePath(cfg, configDir))
		if err != nil {
			return err
		}
		store, err := journal.NewStore(gdb)
		if err != nil {
			return err
		}
		deps.Journal = store
		registry.SetRemovalSink(func(kernelID string, final activity.Record) {
			k, _ := table.Get(kernelID)
			if err := store.RecordRemoval(kernelID, k.SpecName, final, k.StartedAt); err != nil {
				logger.Warn("journal removal failed", "kernel_id", kernelID, "err", err)
			}
		})
		mgr.AddShutdown("db", func(context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}

	server := gatewayapi.NewServer(deps)
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	mgr.AddRun("http", func(runCtx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.ListenAndServe() }()
		select {
		case <-runCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})

	logger.Info("gateway listening", "addr", addr, "journal", cfg.JournalEnabled, "version", version)
	return mgr.StartAndWait(ctx)
}

// overlayFileConfig fills settings from the TOML config file for every
// value not set in the environment. Environment variables win.
func overlayFileConfig(cfg config.Config, file global.GatewayConfig) config.Config {
	if os.Getenv("KERNELACTIVITY_HOST") == "" {
		cfg.Host = file.Host
	}
	if os.Getenv("KERNELACTIVITY_PORT") == "" {
		cfg.Port = file.Port
	}
	if os.Getenv("KERNELACTIVITY_LOG_LEVEL") == "" {
		cfg.LogLevel = file.LogLevel
	}
	if os.Getenv("KERNELACTIVITY_JOURNAL") == "" {
		cfg.JournalEnabled = file.Journal.Enabled
	}
	if os.Getenv("KERNELACTIVITY_JOURNAL_LIMIT") == "" {
		cfg.JournalLimit = file.Journal.Limit
	}
	if cfg.DBPath == "" {
		cfg.DBPath = file.Journal.DBPath
	}
	return cfg
}

func databasePath(cfg config.Config, configDir string) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return filepath.Join(configDir, "kernelactivity.db")
}
