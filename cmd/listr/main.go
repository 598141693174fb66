package main

import (
	"context"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/rentloop/listr/internal/logger"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "█   █ █▀▀ ▀█▀ █▀█"
	logoText2 = "█▄▄ █ ▄▄█  █  █▀▄"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "listr",
	Short: "Create and edit rental listings from the terminal",
}

// renderLogo renders the logo in the shell's accent colors.
func renderLogo() string {
	top := lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Bold(true)
	bottom := lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	return strings.Join([]string{top.Render(logoText1), bottom.Render(logoText2)}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

listr walks you through creating a rental listing step by step: property
type, location, photos, description, amenities and pricing. Drafts are saved
after every change in an embedded NATS JetStream store, so an interrupted
listing picks up where you left off. Published listings can be edited later.

The same wizard is available as a full-screen TUI (listr new), as scriptable
commands (listr draft ...) and as MCP tools for assistants (listr mcp).`

	rootCmd.PersistentFlags().StringVar(&rootFlags.apiURL, "api-url", "", "Listing API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.user, "user", "u", "", "User the draft belongs to (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.dataDir, "data-dir", "", "Data directory for drafts and the journal (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
}
