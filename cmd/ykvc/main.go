package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/ykvc/cmd/ykvc/commands"
	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/logging"
	"github.com/systmms/ykvc/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue errors.UserError
		if !stderrors.As(err, &ue) {
			if hint := errors.Suggestion(err); hint != "" {
				fmt.Fprintf(os.Stderr, "  Try: %s\n", hint)
			}
		}
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
		metricsFile    string
		auditLog       string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "ykvc",
		Short: "YubiKey challenge-response keyfiles for VeraCrypt",
		Long: `ykvc derives VeraCrypt keyfiles from a challenge phrase using the
HMAC-SHA1 challenge-response secret in YubiKey slot 2.

The keyfile only exists while the container is being mounted and is
securely wiped afterwards.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
			cfg.NonInteractive = nonInteractive

			if metricsFile != "" {
				cfg.Metrics = metrics.New()
			}

			audit, err := logging.NewAudit(auditLog)
			if err != nil {
				return errors.UserError{
					Message:    "Failed to open audit log",
					Details:    err.Error(),
					Suggestion: "Check the --audit-log path is writable",
					Err:        err,
				}
			}
			cfg.Audit = audit

			cfg.Init()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "ykvc.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; confirmations are refused unless --yes is given")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path on exit")
	rootCmd.PersistentFlags().StringVar(&auditLog, "audit-log", "", "Append JSON audit events to this file")

	rootCmd.AddCommand(
		commands.NewInfoCommand(cfg),
		commands.NewSlot2Command(cfg),
		commands.NewGenerateCommand(cfg),
		commands.NewTestCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewWipeCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	err := rootCmd.Execute()

	if metricsFile != "" {
		if werr := cfg.Metrics.WriteTextfile(metricsFile); werr != nil && cfg.Logger != nil {
			cfg.Logger.Warn("Failed to write metrics to %s: %v", metricsFile, werr)
		}
	}
	if cfg.Audit != nil {
		_ = cfg.Audit.Close()
	}

	return err
}
