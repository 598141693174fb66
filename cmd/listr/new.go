package main

import (
	"fmt"

	"github.com/rentloop/listr/internal/flow"
	"github.com/rentloop/listr/internal/photowatch"
	"github.com/rentloop/listr/internal/submit"
	"github.com/rentloop/listr/internal/tui"
	"github.com/spf13/cobra"
)

var newFlags struct {
	flow  string
	watch string
}

var editFlags struct {
	watch string
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a listing in the terminal wizard",
	Long: `Open the listing wizard in create mode.

A saved draft for the user is restored, including the step you were on.
Photos picked in an earlier run are not kept and must be added again.`,
	Args: cobra.NoArgs,
	RunE: runNew,
}

var editCmd = &cobra.Command{
	Use:   "edit <listing-id>",
	Short: "Edit a published listing in the terminal wizard",
	Long: `Fetch a listing from the API and open the wizard in edit mode.

Edit mode starts at the photos step. Removed photos can be restored until
the changes are saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	newCmd.Flags().StringVar(&newFlags.flow, "flow", "", "Wizard flow: linear, fast or manual (default: from config)")
	newCmd.Flags().StringVarP(&newFlags.watch, "watch", "w", "", "Add photos saved into this folder while the wizard runs")
	editCmd.Flags().StringVarP(&editFlags.watch, "watch", "w", "", "Add photos saved into this folder while the wizard runs")
}

func runNew(cmd *cobra.Command, args []string) error {
	var f flow.Flow
	if newFlags.flow != "" {
		parsed, err := flow.ParseFlow(newFlags.flow)
		if err != nil {
			return err
		}
		if parsed == flow.Edit {
			return fmt.Errorf("use 'listr edit <listing-id>' to edit a listing")
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
	if s.Restored() {
		fmt.Printf("Resuming saved draft at the %s step\n", s.CurrentStep())
	}

	opts, stopWatch, err := dropFolderOption(newFlags.watch)
	if err != nil {
		return err
	}
	defer stopWatch()

	res, err := a.RunShell(ctx, s, opts...)
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	printResult(res, s.HookOutput())
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	a, _, stop, err := startApp()
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := a.EditSession(ctx, "", args[0])
	if err != nil {
		return err
	}

	opts, stopWatch, err := dropFolderOption(editFlags.watch)
	if err != nil {
		return err
	}
	defer stopWatch()

	res, err := a.RunShell(ctx, s, opts...)
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	printResult(res, s.HookOutput())
	return nil
}

// dropFolderOption starts a photo watcher on dir when one is given.
func dropFolderOption(dir string) ([]tui.Option, func(), error) {
	if dir == "" {
		return nil, func() {}, nil
	}
	w, err := startWatcher(dir)
	if err != nil {
		return nil, nil, err
	}
	return []tui.Option{tui.WithDropFolder(w.Batches())}, func() { _ = w.Stop() }, nil
}

func startWatcher(dir string) (*photowatch.Watcher, error) {
	w, err := photowatch.New(dir, photowatch.DefaultSettle)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// printResult summarizes a submission after the wizard exits. A nil result
// means the user quit without saving.
func printResult(res *submit.Result, hookOutput string) {
	if res == nil {
		return
	}
	verb := "updated"
	if res.Created {
		verb = "created"
	}
	fmt.Printf("Listing %s %s: %d uploaded, %d deleted, %d reordered\n",
		res.RecordID, verb, res.Uploaded, res.Deleted, res.Reordered)
	if res.Published {
		fmt.Println("Listing published.")
	}
	for _, w := range res.Warnings {
		name := w.Filename
		if name == "" {
			name = w.PhotoID
		}
		fmt.Printf("  warning: %s %s: %s\n", w.Op, name, w.Reason)
	}
	if hookOutput != "" {
		fmt.Print(hookOutput)
	}
}

