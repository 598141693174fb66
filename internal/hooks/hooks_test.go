package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecuteAllPiped(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()
	vars := Variables{Listing: "rec-1", Session: "draft.test"}

	tests := []struct {
		name     string
		hooks    []*HookConfig
		expected string
	}{
		{
			name:     "no hooks",
			hooks:    []*HookConfig{},
			expected: "",
		},
		{
			name: "single hook with pipe_output true",
			hooks: []*HookConfig{
				{Command: "echo 'piped'", Timeout: 5, PipeOutput: true},
			},
			expected: "piped\n",
		},
		{
			name: "single hook with pipe_output false",
			hooks: []*HookConfig{
				{Command: "echo 'not piped'", Timeout: 5, PipeOutput: false},
			},
			expected: "",
		},
		{
			name: "multiple hooks mixed pipe_output",
			hooks: []*HookConfig{
				{Command: "echo 'first piped'", Timeout: 5, PipeOutput: true},
				{Command: "echo 'not piped'", Timeout: 5, PipeOutput: false},
				{Command: "echo 'second piped'", Timeout: 5, PipeOutput: true},
			},
			expected: "first piped\n\nsecond piped\n",
		},
		{
			name: "all hooks with pipe_output false",
			hooks: []*HookConfig{
				{Command: "echo 'first'", Timeout: 5, PipeOutput: false},
				{Command: "echo 'second'", Timeout: 5, PipeOutput: false},
			},
			expected: "",
		},
		{
			name: "all hooks with pipe_output true",
			hooks: []*HookConfig{
				{Command: "echo 'first'", Timeout: 5, PipeOutput: true},
				{Command: "echo 'second'", Timeout: 5, PipeOutput: true},
			},
			expected: "first\n\nsecond\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := ExecuteAllPiped(ctx, tt.hooks, workDir, vars)
			if err != nil {
				t.Fatalf("ExecuteAllPiped() error = %v", err)
			}
			if output != tt.expected {
				t.Errorf("ExecuteAllPiped() output = %q, expected %q", output, tt.expected)
			}
		})
	}
}

func TestExecuteAllPiped_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	workDir := t.TempDir()
	vars := Variables{Listing: "rec-1", Session: "draft.test"}
	hooks := []*HookConfig{
		{Command: "echo 'test'", Timeout: 5, PipeOutput: true},
	}

	_, err := ExecuteAllPiped(ctx, hooks, workDir, vars)
	if err == nil {
		t.Error("ExecuteAllPiped() expected error for cancelled context, got nil")
	}
}

func TestExecuteExpandsVariables(t *testing.T) {
	hook := &HookConfig{Command: "echo {{listing}} {{session}} {{warnings}}", Timeout: 5}
	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{Listing: "rec-7", Session: "draft.alice", Warnings: "2"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "rec-7 draft.alice 2\n" {
		t.Errorf("Execute() output = %q", out)
	}
}

func TestExecuteExpandsErrorTwice(t *testing.T) {
	hook := &HookConfig{Command: "echo {{error}}; echo {{error}} {{listing}}", Timeout: 5}
	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{Error: "quota", Listing: "rec-2"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "quota\nquota rec-2\n" {
		t.Errorf("Execute() output = %q", out)
	}
}

func TestExecuteSkipsEmptyHook(t *testing.T) {
	for _, hook := range []*HookConfig{nil, {}} {
		out, err := Execute(context.Background(), hook, t.TempDir(), Variables{})
		if err != nil || out != "" {
			t.Errorf("Execute(%v) = %q, %v", hook, out, err)
		}
	}
}

func TestExecuteFailureIsOutput(t *testing.T) {
	hook := &HookConfig{Command: "echo oops >&2; exit 3", Timeout: 5}
	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{})
	if err != nil {
		t.Fatalf("failing hook should not return an error, got %v", err)
	}
	if !strings.Contains(out, "[hook failed") || !strings.Contains(out, "oops") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestExecuteTimeout(t *testing.T) {
	hook := &HookConfig{Command: "sleep 5", Timeout: 1}
	out, err := Execute(context.Background(), hook, t.TempDir(), Variables{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "[hook timed out after 1s]") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil || cfg != nil {
		t.Fatalf("missing file should yield nil config, got %v, %v", cfg, err)
	}

	yml := "version: 1\nhooks:\n  post_submit:\n    - command: notify {{listing}}\n      pipe_output: true\n  submit_failed:\n    - command: echo {{error}}\n      timeout: 5\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Hooks.PostSubmit) != 1 || !cfg.Hooks.PostSubmit[0].PipeOutput {
		t.Errorf("post_submit not parsed: %+v", cfg.Hooks.PostSubmit)
	}
	if len(cfg.Hooks.SubmitFailed) != 1 || cfg.Hooks.SubmitFailed[0].Timeout != 5 {
		t.Errorf("submit_failed not parsed: %+v", cfg.Hooks.SubmitFailed)
	}

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("hooks: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(dir); err == nil {
		t.Error("expected parse error")
	}
}
