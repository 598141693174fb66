// Package hooks runs user-configured shell commands around listing submission.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rentloop/listr/internal/logger"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the working directory of the wizard.
const ConfigFileName = ".listr.hooks.yml"

// LoadConfig reads ConfigFileName from workDir. A missing file is not an
// error and yields a nil config.
func LoadConfig(workDir string) (*Config, error) {
	path := filepath.Join(workDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	logger.Debug("Hooks: %d post_submit, %d submit_failed from %s",
		len(cfg.Hooks.PostSubmit), len(cfg.Hooks.SubmitFailed), path)
	return cfg, nil
}

// Variables fill the {{listing}}, {{session}}, {{warnings}} and {{error}}
// placeholders of a hook command.
type Variables struct {
	Listing  string
	Session  string
	Warnings string
	Error    string // submit_failed only
}

func (v Variables) expand(command string) string {
	return strings.NewReplacer(
		"{{listing}}", v.Listing,
		"{{session}}", v.Session,
		"{{warnings}}", v.Warnings,
		"{{error}}", v.Error,
	).Replace(command)
}

// Execute runs one hook through sh -c in workDir. A hook that fails or times
// out is reported in the returned output; only cancellation of ctx is an
// error, so a broken hook never undoes a submission.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}
	command := vars.expand(hook.Command)
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	logger.Debug("Hook: %s", command)
	runErr := cmd.Run()

	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		logger.Warn("Hook %q timed out after %ds", command, timeout)
		return fmt.Sprintf("[hook timed out after %ds]\n%s", timeout, stdout.String()), nil
	}

	out := stdout.String()
	if stderr.Len() > 0 {
		out += "\n[stderr]\n" + stderr.String()
	}
	if runErr != nil {
		logger.Warn("Hook %q: %v", command, runErr)
		return fmt.Sprintf("[hook failed: %v]\n%s", runErr, out), nil
	}
	return out, nil
}

// ExecuteAllPiped runs hooks in order and joins the output of those with
// pipe_output set.
func ExecuteAllPiped(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) (string, error) {
	var piped []string
	for _, h := range hooks {
		out, err := Execute(ctx, h, workDir, vars)
		if err != nil {
			return "", err
		}
		if h != nil && h.PipeOutput && out != "" {
			piped = append(piped, out)
		}
	}
	return strings.Join(piped, "\n"), nil
}
