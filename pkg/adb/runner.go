package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner abstracts command execution for testability.
type Runner interface {
	// Output runs a command to completion and returns its stdout.
	// A non-zero exit returns a *ToolError.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches a command without waiting for it. The process is reaped
	// in the background and outlives the caller's context.
	Start(name string, args ...string) error
}

// ExecRunner executes commands using os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// Output implements Runner.
func (r ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		toolErr := &ToolError{
			Tool:     filepath.Base(name),
			Args:     args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			toolErr.Err = ctxErr
		}
		return stdout.Bytes(), toolErr
	}
	return stdout.Bytes(), nil
}

// Start implements Runner.
func (r ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return &ToolError{Tool: filepath.Base(name), Args: args, ExitCode: -1, Err: fmt.Errorf("start: %w", err)}
	}

	logger := r.logger()
	pid := cmd.Process.Pid
	logger.Debug("process started", "tool", filepath.Base(name), "pid", pid)
	go func() {
		err := cmd.Wait()
		logger.Info("process exited", "tool", filepath.Base(name), "pid", pid, "error", err)
	}()
	return nil
}

func (r ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
