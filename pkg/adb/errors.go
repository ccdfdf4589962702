package adb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolFailed marks a non-zero exit or start failure of adb or emulator.
var ErrToolFailed = errors.New("adb: tool invocation failed")

// ToolError describes a failed external command.
type ToolError struct {
	// Tool is the executable base name (adb, emulator).
	Tool string

	// Args are the arguments the tool was invoked with.
	Args []string

	// ExitCode is the process exit status, or -1 if it never exited normally.
	ExitCode int

	// Stderr is the tool's trimmed diagnostic output.
	Stderr string

	// Err is the underlying exec or context error.
	Err error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	cmd := strings.TrimSpace(e.Tool + " " + strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: exit %d: %s", cmd, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is reports ErrToolFailed as a match so callers can classify without errors.As.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

// Detail returns the most useful human-readable failure text: the tool's
// stderr when it wrote any, the error otherwise.
func (e *ToolError) Detail() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Error()
}
