package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/errors"
)

func NewWipeCommand(cfg *config.Config) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "wipe <path>",
		Short: "Securely delete a keyfile",
		Long: `Overwrite a keyfile with the secure erase tool and remove it.

Use this for a keyfile left behind by an interrupted or --keep 'ykvc generate'.

Examples:
  ykvc wipe ykvc_keyfile_1700000000.key
  ykvc wipe --yes /tmp/vault.key

Security Note:
Modern SSDs with wear leveling may still retain data. For maximum security,
use full disk encryption.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.UserError{
					Message:    "No keyfile specified",
					Suggestion: "Provide the path of the keyfile to wipe",
				}
			}
			return nil
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return []string{"key"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return runOperation(cfg, "wipe", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}

				tool := s.profile.Erase.Tool
				if _, err := cfg.LookPath(tool); err != nil {
					return errors.DependencyMissing(tool)
				}

				fmt.Fprintf(cfg.Out, "File to be securely deleted (%d passes):\n", s.profile.Erase.Passes)
				fmt.Fprintf(cfg.Out, "  %s\n\n", path)

				if !assumeYes {
					ok, err := cfg.Prompter.Confirm("This operation is IRREVERSIBLE. Continue?")
					if err != nil && !errors.Is(err, errors.KindCancelled) {
						return errors.Wrap(err, "Failed to read user input")
					}
					if err != nil || !ok {
						cfg.Logger.Info("Operation cancelled")
						return errors.Cancelled()
					}
				}

				if err := s.keyfile.SecureDelete(ctx, path); err != nil {
					return err
				}
				cfg.Audit.Event("keyfile_wiped", zap.String("path", path))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
