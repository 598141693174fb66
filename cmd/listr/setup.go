package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rentloop/listr/internal/config"
	"github.com/rentloop/listr/internal/flow"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project bool
	force   bool
	backend string
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create listr configuration file",
	Long: `Create a listr configuration file with sensible defaults.

By default, creates a global config at ~/.config/listr/listr.yml.
Use --project to create a project-local config in the current directory.
The API URL and user are taken from --api-url and --user when given.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVar(&setupFlags.backend, "snapshot-backend", config.BackendNATS, "Where drafts are saved: nats or file")
}

func runSetup(cmd *cobra.Command, args []string) error {
	// Determine target path
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	// Check if config already exists
	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	apiURL := rootFlags.apiURL
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	dataDir := rootFlags.dataDir
	if dataDir == "" {
		dataDir = ".listr"
	}

	cfg := &config.Config{
		APIURL:            apiURL,
		User:              rootFlags.user,
		DataDir:           dataDir,
		SnapshotBackend:   setupFlags.backend,
		DefaultFlow:       string(flow.Linear),
		DeleteConcurrency: 4,
		RequestTimeout:    30 * time.Second,
		LogLevel:          "info",
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Write config to target location
	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Config written to: %s\n\n", targetPath)
	fmt.Println("Run 'listr new' to create your first listing.")
	return nil
}

// fileExists checks if a file exists (helper for setup command).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
