package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/config"
	"github.com/woxQAQ/firebase-wasm/internal/host"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("fbhost", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("scenario", "", "Path to the scenario file to run")
	flags.StringToString("module", nil, "SDK bundle as specifier=path, e.g. firebase/auth=./auth.js (repeatable)")
	flags.Bool("fake-sdk", false, "Use the built-in in-memory SDK for bundles not given with --module")
	showVersion := flags.Bool("version", false, "Print version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("fbhost %s (%s, %s)\n", version, commit, date)
		return 0
	}

	// Load configuration
	cfg, err := config.LoadHostConfig(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 2
	}
	defer logger.Sync()

	logger.Info("Starting fbhost",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	if cfg.Scenario == "" {
		logger.Error("No scenario given: use --scenario or set scenario in the config")
		return 2
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := host.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create host", zap.Error(err))
		return 2
	}
	defer h.Close(context.Background())

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	summary, err := h.RunFile(ctx, cfg.Scenario, os.Stdout)
	if err != nil {
		logger.Error("Scenario error", zap.String("scenario", cfg.Scenario), zap.Error(err))
		return 2
	}
	if err := summary.Err(); err != nil {
		logger.Error("Scenario failed", zap.Error(err))
		return 1
	}

	logger.Info("Scenario passed",
		zap.String("name", summary.Name),
		zap.Int("steps", summary.Total()),
	)
	return 0
}

// newLogger returns a development logger for debug and a production logger
// at the given level otherwise.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
