package main

import (
	"context"
	"fmt"

	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/mcpserver"
	"github.com/rentloop/listr/internal/photowatch"
	"github.com/rentloop/listr/internal/wizard"
	"github.com/spf13/cobra"
)

var mcpFlags struct {
	port  int
	flow  string
	watch string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the listing wizard as MCP tools",
	Long: `Serve the user's draft over MCP streamable HTTP so an assistant can fill
in, review and submit a listing with tools such as draft-set, photo-add and
draft-submit. The server runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpFlags.port, "port", "p", 0, "Port to listen on, 0=random")
	mcpCmd.Flags().StringVar(&mcpFlags.flow, "flow", "", "Wizard flow for a new draft: linear, fast or manual (default: from config)")
	mcpCmd.Flags().StringVarP(&mcpFlags.watch, "watch", "w", "", "Add photos saved into this folder to the draft")
}

func runMCP(cmd *cobra.Command, args []string) error {
	var f flow.Flow
	if mcpFlags.flow != "" {
		parsed, err := flow.ParseFlow(mcpFlags.flow)
		if err != nil {
			return err
		}
		f = parsed
	}

	a, _, stop, err := startApp()
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := a.NewSession(ctx, "", f)
	if err != nil {
		return fmt.Errorf("failed to open draft: %w", err)
	}

	srv := mcpserver.New(s, a.ReviewTemplate())
	if _, err := srv.Start(ctx, mcpFlags.port); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	if mcpFlags.watch != "" {
		w, err := startWatcher(mcpFlags.watch)
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		go feedPhotos(ctx, s, w.Batches())
		fmt.Printf("Watching %s for photos\n", w.Dir())
	}

	fmt.Printf("Serving draft %s at %s\n", s.Key(), srv.URL())
	fmt.Println("Press Ctrl+C to stop.")

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")
	return nil
}

// feedPhotos adds every batch from the drop folder to the session until the
// channel closes.
func feedPhotos(ctx context.Context, s *wizard.Session, batches <-chan []string) {
	for paths := range batches {
		files, err := photowatch.ReadFiles(paths)
		if err != nil {
			logger.Warn("Skipping dropped photos: %v", err)
			continue
		}
		added, err := s.AddPhotos(ctx, files)
		if err != nil {
			logger.Warn("Adding dropped photos: %v", err)
			continue
		}
		logger.Info("Added %d of %d dropped photo(s)", added, len(files))
	}
}
