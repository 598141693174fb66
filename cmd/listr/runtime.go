package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rentloop/listr/internal/app"
	"github.com/rentloop/listr/internal/config"
	"github.com/rentloop/listr/internal/logger"
)

var rootFlags struct {
	apiURL   string
	user     string
	dataDir  string
	logLevel string
}

// loadConfig loads the merged config, applies the global flags on top and
// configures the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Flags win over env and files
	if rootFlags.apiURL != "" {
		cfg.APIURL = rootFlags.apiURL
	}
	if rootFlags.user != "" {
		cfg.User = rootFlags.user
	}
	if rootFlags.dataDir != "" {
		cfg.DataDir = rootFlags.dataDir
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startApp loads config and starts the runtime. The returned stop function
// must be called once the command is done.
func startApp() (*app.App, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(app.FromConfig(cfg))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create runtime: %w", err)
	}
	if err := a.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to start runtime (is another listr running on %s?): %w", cfg.DataDir, err)
	}

	stop := func() {
		if err := a.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}
	return a, cfg, stop, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
