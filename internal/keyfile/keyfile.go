// Package keyfile writes challenge-response keyfiles and destroys them with
// the platform's secure erase tool.
package keyfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/platform"
	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

// Mode is the only permission a keyfile is ever given.
const Mode os.FileMode = 0o600

// DefaultName returns the file name used when no path is given.
func DefaultName(now time.Time) string {
	return fmt.Sprintf("ykvc_keyfile_%d.key", now.Unix())
}

// Manager owns the keyfile lifecycle: absent, written, wiped.
type Manager struct {
	// Dir is where unnamed keyfiles are created. Empty means the working
	// directory.
	Dir      string
	Erase    platform.EraseCommand
	Executor pkgexec.CommandExecutor
	Logger   *logging.Logger
	Now      func() time.Time
}

// NewManager returns a manager erasing with the profile's tool.
func NewManager(executor pkgexec.CommandExecutor, profile platform.Profile, logger *logging.Logger) *Manager {
	return &Manager{
		Erase:    profile.Erase,
		Executor: executor,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Write stores data at path, or at a timestamped name in Dir when path is
// empty, and returns the path written. The file is created 0600 and
// chmodded again after sync so a pre-existing file with looser bits is
// tightened. A failing step leaves whatever it produced on disk.
func (m *Manager) Write(data []byte, path string) (string, error) {
	if path == "" {
		now := time.Now
		if m.Now != nil {
			now = m.Now
		}
		path = filepath.Join(m.Dir, DefaultName(now()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, Mode)
	if err != nil {
		return "", errors.FileOperation("Failed to create keyfile", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return "", errors.FileOperation("Failed to write keyfile", err)
	}
	if err := f.Sync(); err != nil {
		return "", errors.FileOperation("Failed to sync keyfile", err)
	}
	if err := f.Chmod(Mode); err != nil {
		return "", errors.FileOperation("Failed to set keyfile permissions", err)
	}

	m.debug("Wrote %d bytes to %s", len(data), path)
	return path, nil
}

// SecureDelete overwrites and unlinks path with the erase tool, then checks
// the path is really gone. The tool runs attached to the terminal so its
// per-pass progress is visible.
func (m *Manager) SecureDelete(ctx context.Context, path string) error {
	if !exists(path) {
		return errors.FileOperation(fmt.Sprintf("File does not exist: %s", path), nil)
	}

	if m.Logger != nil {
		m.Logger.Info("Securely wiping keyfile...")
	}

	args := m.Erase.Args(path)
	line := pkgexec.CommandLine(m.Erase.Tool, args...)
	if err := m.Executor.Run(ctx, m.Erase.Tool, args...); err != nil {
		if pkgexec.NotStarted(err) {
			if pkgexec.IsNotFound(err) {
				return errors.WrapCommandNotFound(m.Erase.Tool, err)
			}
			return errors.CommandError{Command: line, Message: err.Error()}
		}
		return errors.CommandError{
			Command:  line,
			ExitCode: pkgexec.ExitCode(err),
			Message:  m.Erase.Tool + " failed",
		}
	}

	if exists(path) {
		return errors.FileOperation(fmt.Sprintf("File still exists after secure deletion: %s", path), nil)
	}

	if m.Logger != nil {
		m.Logger.Success("Keyfile deleted securely")
	}
	return nil
}

func (m *Manager) debug(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Debug(format, args...)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
