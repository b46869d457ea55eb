package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/deps"
	"github.com/systmms/ykvc/internal/device"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/keyfile"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/platform"
)

// session is what a device command works with once the platform is known.
type session struct {
	cfg     *config.Config
	profile platform.Profile
	device  *device.Controller
	keyfile *keyfile.Manager
}

func newSession(cfg *config.Config) (*session, error) {
	if cfg.Definition == nil {
		if err := cfg.Load(); err != nil {
			return nil, err
		}
	}

	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info("Detected OS: %s", profile.DisplayName)

	km := keyfile.NewManager(cfg.Executor, profile, cfg.Logger)
	km.Dir = cfg.KeyfileDir()

	return &session{
		cfg:     cfg,
		profile: profile,
		device:  device.NewController(cfg.Executor, profile, device.WithLogger(cfg.Logger)),
		keyfile: km,
	}, nil
}

// ensureDependencies installs missing tools and re-checks, logging each
// stage for the operator.
func (s *session) ensureDependencies(ctx context.Context) error {
	log := s.cfg.Logger
	log.Info("Checking dependencies...")

	checker := deps.NewChecker(s.cfg.LookPath)
	missing := checker.Missing(s.profile)
	if len(missing) == 0 {
		log.Success("All dependencies are installed")
		return nil
	}

	log.Warn("Missing dependencies: %s", strings.Join(missing, ", "))
	s.cfg.Audit.Event("install_dependencies", zap.Strings("missing", missing))

	installer := &announcingInstaller{
		next:   deps.NewPackageInstaller(s.cfg.Executor, s.cfg.LookPath, log),
		logger: log,
	}
	if err := checker.Ensure(ctx, s.profile, installer); err != nil {
		return err
	}

	log.Success("All dependencies installed successfully")
	return nil
}

// announcingInstaller brackets an installation with progress lines.
type announcingInstaller struct {
	next   deps.Installer
	logger *logging.Logger
}

func (a *announcingInstaller) Install(ctx context.Context, profile platform.Profile) error {
	a.logger.Info("Attempting to install missing dependencies...")
	if err := a.next.Install(ctx, profile); err != nil {
		return err
	}
	a.logger.Info("Verifying installation...")
	return nil
}

// requireProgrammed queries the key and fails unless slot 2 is configured.
func (s *session) requireProgrammed(ctx context.Context) (device.Info, error) {
	s.cfg.Logger.Info("Checking YubiKey...")
	info, err := s.device.QueryInfo(ctx)
	if err != nil {
		return device.Info{}, err
	}

	if !info.Slot2Programmed {
		s.cfg.Logger.Error("Slot 2 is not programmed with HMAC-SHA1")
		fmt.Fprintln(s.cfg.Out)
		fmt.Fprintln(s.cfg.Out, "Please program slot 2 first:")
		fmt.Fprintf(s.cfg.Out, "  %s\n", s.cfg.Logger.Highlight("cyan", "ykvc slot2 program"))
		fmt.Fprintln(s.cfg.Out)
		return device.Info{}, errors.SlotNotProgrammed()
	}

	s.cfg.Logger.Success("YubiKey ready (Serial: %s)", s.cfg.Logger.Highlight("yellow", info.Serial))
	return info, nil
}

// confirmOverwrite warns that slot 2 will be replaced and asks to go on.
// A refusal is a Cancelled error.
func confirmOverwrite(cfg *config.Config, assumeYes bool) error {
	fmt.Fprintln(cfg.Out)
	cfg.Logger.Warn("%s", cfg.Logger.Highlight("yellow", "This will overwrite any existing slot 2 configuration!"))
	fmt.Fprintln(cfg.Out)

	if assumeYes {
		return nil
	}

	ok, err := cfg.Prompter.Confirm("Do you want to continue?")
	if err != nil {
		if errors.Is(err, errors.KindCancelled) {
			cfg.Logger.Info("Operation cancelled")
			return err
		}
		return errors.Wrap(err, "Failed to read user input")
	}
	if !ok {
		cfg.Logger.Info("Operation cancelled")
		return errors.Cancelled()
	}
	return nil
}

// runOperation records the outcome of a command in metrics and the audit log.
func runOperation(cfg *config.Config, name string, fn func(ctx context.Context) error) error {
	err := fn(context.Background())
	cfg.Metrics.ObserveOperation(name, err)
	if err != nil {
		cfg.Audit.Failure(name, errors.KindOf(err).String(), err)
	}
	return err
}

func banner(w io.Writer, logger *logging.Logger) {
	fmt.Fprintln(w, logger.Highlight("yellow", strings.Repeat("=", 70)))
}
