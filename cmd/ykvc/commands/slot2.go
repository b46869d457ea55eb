package commands

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/device"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/secure"
)

func NewSlot2Command(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot2",
		Short: "Inspect, program or restore YubiKey slot 2",
		Long: `Manage the HMAC-SHA1 challenge-response configuration in slot 2.

Programming generates a new random 20-byte secret and shows it once so it
can be written down. Restoring programs a previously saved secret, so a
replacement key produces the same keyfiles for the same challenge phrases.`,
	}

	cmd.AddCommand(
		newSlot2CheckCommand(cfg),
		newSlot2ProgramCommand(cfg),
		newSlot2RestoreCommand(cfg),
	)
	return cmd
}

func newSlot2CheckCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether slot 2 is programmed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "slot2 check", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				if err := s.ensureDependencies(ctx); err != nil {
					return err
				}

				cfg.Logger.Info("Checking slot 2 status...")
				programmed, err := s.device.Slot2Status(ctx)
				if err != nil {
					return err
				}

				hl := cfg.Logger.Highlight
				out := cfg.Out
				fmt.Fprintln(out)
				if programmed {
					cfg.Logger.Success("Slot 2 is programmed with HMAC-SHA1 Challenge-Response")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "You can now:")
					fmt.Fprintf(out, "  - Generate keyfiles with %s\n", hl("cyan", "ykvc generate"))
					fmt.Fprintf(out, "  - Test challenge-response with %s\n", hl("cyan", "ykvc test"))
				} else {
					cfg.Logger.Warn("Slot 2 is not programmed")
					fmt.Fprintln(out)
					fmt.Fprintf(out, "To program slot 2, run: %s\n", hl("cyan", "ykvc slot2 program"))
				}
				return nil
			})
		},
	}
}

func newSlot2ProgramCommand(cfg *config.Config) *cobra.Command {
	var (
		assumeYes     bool
		backupKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "program",
		Short: "Program slot 2 with a new random HMAC-SHA1 secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "slot2 program", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				if err := s.ensureDependencies(ctx); err != nil {
					return err
				}

				// The serial keys the keyring entry, so read it before the
				// slot changes.
				var serial string
				if backupKeyring {
					info, err := s.device.QueryInfo(ctx)
					if err != nil {
						return err
					}
					serial = info.Serial
				}

				if err := confirmOverwrite(cfg, assumeYes); err != nil {
					return err
				}

				cfg.Logger.Info("Generating random secret...")
				cfg.Logger.Info("Programming slot 2 with HMAC-SHA1 Challenge-Response...")
				raw, err := s.device.ProgramSlot2(ctx, nil)
				if err != nil {
					return err
				}
				defer secure.Wipe(raw)

				if backupKeyring {
					if err := cfg.Keyring.Save(serial, raw); err != nil {
						cfg.Logger.Warn("Could not back up the secret to the keyring: %v", err)
					} else {
						cfg.Logger.Success("Secret stored in the keyring for serial %s", serial)
					}
				}

				cfg.Audit.Event("slot2_program",
					zap.String("serial", serial),
					zap.Bool("keyring_backup", backupKeyring),
				)

				fmt.Fprintln(cfg.Out)
				cfg.Logger.Success("Slot 2 configured successfully!")
				showBackupNotice(cfg, hex.EncodeToString(raw))

				if err := cfg.Prompter.Wait("Press Enter to continue"); err != nil {
					return errors.Wrap(err, "Failed to read user input")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&backupKeyring, "backup-keyring", false, "Also store the secret in the OS keyring, keyed by serial number")
	return cmd
}

func showBackupNotice(cfg *config.Config, secretHex string) {
	hl := cfg.Logger.Highlight
	out := cfg.Out

	fmt.Fprintln(out)
	banner(out, cfg.Logger)
	fmt.Fprintln(out, hl("red", "IMPORTANT: Save this secret securely!"))
	banner(out, cfg.Logger)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Secret (hex):")
	fmt.Fprintf(out, "  %s\n", hl("yellow", secretHex))
	fmt.Fprintln(out)
	fmt.Fprintln(out, hl("yellow", "If you lose your YubiKey, you will need this secret"))
	fmt.Fprintln(out, hl("yellow", "to program a new YubiKey with the same configuration."))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Store it in a password manager or write it down securely.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To restore on a new YubiKey:")
	fmt.Fprintf(out, "  %s <secret-hex>\n", hl("cyan", "ykvc slot2 restore"))
	fmt.Fprintln(out)
	banner(out, cfg.Logger)
	fmt.Fprintln(out)
}

func newSlot2RestoreCommand(cfg *config.Config) *cobra.Command {
	var (
		assumeYes   bool
		fromKeyring string
	)

	cmd := &cobra.Command{
		Use:   "restore [secret-hex]",
		Short: "Program slot 2 with a previously saved secret",
		Long: `Program slot 2 with a 40 character hex secret printed by 'ykvc slot2 program',
or with the keyring backup for a serial number (--from-keyring).`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case fromKeyring == "" && len(args) != 1:
				return errors.UserError{
					Message:    "No secret specified",
					Suggestion: "Pass the 40 character hex secret, or --from-keyring <serial>",
				}
			case fromKeyring != "" && len(args) != 0:
				return errors.UserError{
					Message:    "Both a secret and --from-keyring were given",
					Suggestion: "Use one source for the secret",
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "slot2 restore", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				if err := s.ensureDependencies(ctx); err != nil {
					return err
				}

				cfg.Logger.Info("Validating secret...")
				secret, err := restoreSecret(cfg, args, fromKeyring)
				if err != nil {
					return err
				}
				defer secret.Destroy()
				cfg.Logger.Success("Secret is valid (%d bytes)", device.SecretSize)

				if err := confirmOverwrite(cfg, assumeYes); err != nil {
					return err
				}

				fmt.Fprintln(cfg.Out)
				cfg.Logger.Info("Programming slot 2 with provided secret...")
				err = secret.Use(func(b []byte) error {
					_, err := s.device.ProgramSlot2(ctx, b)
					return err
				})
				if err != nil {
					return err
				}
				cfg.Audit.Event("slot2_restore", zap.Bool("from_keyring", fromKeyring != ""))

				fmt.Fprintln(cfg.Out)
				cfg.Logger.Success("Slot 2 restored successfully!")
				fmt.Fprintln(cfg.Out)
				fmt.Fprintln(cfg.Out, "You can now generate keyfiles with the same challenge phrases")
				fmt.Fprintln(cfg.Out, "as on the original YubiKey.")
				fmt.Fprintln(cfg.Out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().StringVar(&fromKeyring, "from-keyring", "", "Restore the keyring backup stored for this serial number")
	return cmd
}

// restoreSecret validates the secret before anything touches the key.
func restoreSecret(cfg *config.Config, args []string, fromKeyring string) (*secure.SecureBuffer, error) {
	if fromKeyring != "" {
		return cfg.Keyring.Load(fromKeyring)
	}

	secret, err := device.ParseSecretHex(args[0])
	if err != nil {
		return nil, err
	}
	return secure.NewSecureBuffer(secret), nil
}
