package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/rentloop/listr/internal/journal"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	limit int
	json  bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submissions",
	Long: `Show the user's recent submission attempts from the journal, newest
first, including failed ones.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "l", 10, "Maximum number of submissions to show, 0=all")
	historyCmd.Flags().BoolVar(&historyFlags.json, "json", false, "Print submissions as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFlags.limit < 0 {
		return fmt.Errorf("limit must be >= 0 (0 means all)")
	}

	a, _, stop, err := startApp()
	if err != nil {
		return err
	}
	defer stop()

	subs, err := a.History(cmd.Context(), "", historyFlags.limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyFlags.json {
		data, err := json.MarshalIndent(subs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(subs) == 0 {
		fmt.Println("No submissions yet.")
		return nil
	}
	fmt.Println(historyTable(subs))
	return nil
}

func historyTable(subs []*journal.Submission) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("STARTED", "LISTING", "STATUS", "UPLOADED", "DELETED", "REORDERED", "NOTES")
	for _, s := range subs {
		notes := s.Error
		if notes == "" && len(s.Warnings) > 0 {
			notes = fmt.Sprintf("%d warning(s)", len(s.Warnings))
		}
		t.Row(
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			orDash(s.RecordID),
			string(s.Status),
			strconv.Itoa(s.Uploaded),
			strconv.Itoa(s.Deleted),
			strconv.Itoa(s.Reordered),
			notes,
		)
	}
	return t.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
