package tui

import (
	"fmt"
	"os"
	"os/exec"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/editor"
)

// EditorCommand writes content to a temp file and returns the $EDITOR
// command for it along with the file path. The caller removes the file.
func EditorCommand(content, pattern string) (*exec.Cmd, string, error) {
	tmpfile, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmpfile.WriteString(content); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpfile.Name())
		return nil, "", fmt.Errorf("writing temp file: %w", err)
	}
	_ = tmpfile.Close()

	cmd, err := editor.Command("listr", tmpfile.Name())
	if err != nil {
		_ = os.Remove(tmpfile.Name())
		return nil, "", fmt.Errorf("preparing editor: %w", err)
	}
	return cmd, tmpfile.Name(), nil
}

// descriptionEditedMsg carries the text saved in the external editor.
type descriptionEditedMsg struct {
	Text string
	Err  error
}

// editDescription suspends the program and opens the description in
// $EDITOR.
func editDescription(current string) tea.Cmd {
	cmd, path, err := EditorCommand(current, "listr_description_*.md")
	if err != nil {
		return func() tea.Msg { return descriptionEditedMsg{Err: err} }
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		defer func() { _ = os.Remove(path) }()
		if err != nil {
			return descriptionEditedMsg{Err: err}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return descriptionEditedMsg{Err: err}
		}
		return descriptionEditedMsg{Text: string(data)}
	})
}
