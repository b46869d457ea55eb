// Package exec provides abstractions for running the external YubiKey and
// erase tools. Every tool invocation in ykvc goes through CommandExecutor so
// that device and filesystem behaviour can be scripted in tests.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// CommandExecutor defines an interface for executing external tools.
type CommandExecutor interface {
	// Execute runs a command and captures its output.
	// Returns stdout, stderr, and any error that occurred. A non-zero exit
	// is reported as an error for which ExitCode returns the status.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

	// Run executes a command attached to the operator's terminal so that
	// progress output and prompts (sudo, installers) reach them directly.
	Run(ctx context.Context, name string, args ...string) error
}

// RealCommandExecutor executes actual commands using os/exec.
// This is the production implementation.
type RealCommandExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Execute runs an actual command with captured output.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Run executes an actual command with inherited standard streams.
func (r *RealCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = pick(r.Stdin, os.Stdin)
	cmd.Stdout = pickWriter(r.Stdout, os.Stdout)
	cmd.Stderr = pickWriter(r.Stderr, os.Stderr)
	return cmd.Run()
}

func pick(r io.Reader, fallback io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return fallback
}

func pickWriter(w io.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

// DefaultExecutor returns the standard production executor.
// This is used as the default when no executor is injected.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}

// ExitCode extracts the process exit status from an error returned by a
// CommandExecutor. It returns 0 for nil and -1 when the process never ran
// or the status is unknown.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}

// NotStarted reports whether err means the process never ran, as opposed
// to exiting non-zero or being killed by a signal (exit code -1 with an
// *exec.ExitError).
func NotStarted(err error) bool {
	if err == nil {
		return false
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false
	}
	var coded interface{ ExitCode() int }
	return !errors.As(err, &coded)
}

// IsNotFound reports whether err means the executable could not be located.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// CommandLine renders name and args as a single display string.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// LookPath resolves a tool on PATH. It is a variable so tests and
// configuration can substitute deterministic lookups.
type LookPath func(file string) (string, error)

// SystemLookPath resolves executables with os/exec.
var SystemLookPath LookPath = exec.LookPath
