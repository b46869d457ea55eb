// Package deps checks for the external YubiKey tools and installs them with
// the platform's package manager.
package deps

import (
	"context"

	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/platform"
	pkgexec "github.com/systmms/ykvc/pkg/exec"
)

// Checker looks up on PATH for a profile's required tools.
type Checker struct {
	LookPath pkgexec.LookPath
}

// NewChecker returns a checker using lookPath, or the system PATH when nil.
func NewChecker(lookPath pkgexec.LookPath) *Checker {
	if lookPath == nil {
		lookPath = pkgexec.SystemLookPath
	}
	return &Checker{LookPath: lookPath}
}

// Missing returns the required tools that do not resolve, in profile order,
// each at most once.
func (c *Checker) Missing(profile platform.Profile) []string {
	var missing []string
	seen := make(map[string]bool, len(profile.RequiredTools))
	for _, tool := range profile.RequiredTools {
		if seen[tool] {
			continue
		}
		seen[tool] = true
		if _, err := c.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}

// Installer runs a platform's installation sequence.
type Installer interface {
	Install(ctx context.Context, profile platform.Profile) error
}

// Ensure checks, installs when anything is missing, and checks again.
// Tools still missing afterwards fail with InstallationUnverified.
func (c *Checker) Ensure(ctx context.Context, profile platform.Profile, installer Installer) error {
	if missing := c.Missing(profile); len(missing) == 0 {
		return nil
	}

	if err := installer.Install(ctx, profile); err != nil {
		return err
	}

	if missing := c.Missing(profile); len(missing) > 0 {
		return errors.InstallationUnverified(missing)
	}
	return nil
}

// PackageInstaller runs installation steps interactively so the operator
// sees package manager output and can answer sudo.
type PackageInstaller struct {
	Executor pkgexec.CommandExecutor
	LookPath pkgexec.LookPath
	Logger   *logging.Logger
}

var _ Installer = (*PackageInstaller)(nil)

func NewPackageInstaller(executor pkgexec.CommandExecutor, lookPath pkgexec.LookPath, logger *logging.Logger) *PackageInstaller {
	if lookPath == nil {
		lookPath = pkgexec.SystemLookPath
	}
	return &PackageInstaller{Executor: executor, LookPath: lookPath, Logger: logger}
}

// Install bootstraps the package manager if the profile has one and it is
// absent, then runs every step. A failing required step aborts the
// sequence; nothing already installed is rolled back.
func (i *PackageInstaller) Install(ctx context.Context, profile platform.Profile) error {
	if profile.Bootstrap != nil {
		if _, err := i.LookPath(profile.BootstrapCheck); err != nil {
			i.Logger.Info("%s package manager not found", profile.BootstrapCheck)
			i.Logger.Info("This may take a few minutes and will require your password.")
			if err := i.run(ctx, *profile.Bootstrap); err != nil {
				return err
			}
			i.Logger.Success("%s installed successfully", profile.BootstrapCheck)
		}
	}

	i.Logger.Info("Installing YubiKey tools for %s...", profile.DisplayName)
	for _, step := range profile.InstallSteps {
		if err := i.run(ctx, step); err != nil {
			return err
		}
	}

	i.Logger.Success("YubiKey tools installed successfully")
	return nil
}

func (i *PackageInstaller) run(ctx context.Context, step platform.InstallStep) error {
	i.Logger.Info("%s...", step.Description)
	i.Logger.Debug("Running: %s", pkgexec.CommandLine(step.Name, step.Args...))

	err := i.Executor.Run(ctx, step.Name, step.Args...)
	if err == nil {
		return nil
	}

	stepLine := pkgexec.CommandLine(step.Name, step.Args...)
	if pkgexec.NotStarted(err) {
		return errors.InstallationFailed(stepLine, "Failed to start "+stepLine+": "+err.Error(), err)
	}
	if step.Optional {
		i.Logger.Warn("%s...", step.FailureMessage)
		return nil
	}
	return errors.InstallationFailed(stepLine, step.FailureMessage, err)
}
