package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
)

func NewInfoCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show YubiKey information and slot 2 status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "info", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				if err := s.ensureDependencies(ctx); err != nil {
					return err
				}

				cfg.Logger.Info("Checking YubiKey connection...")
				info, err := s.device.QueryInfo(ctx)
				if err != nil {
					return err
				}
				cfg.Logger.Success("YubiKey detected!")
				cfg.Audit.Event("info",
					zap.String("serial", info.Serial),
					zap.String("firmware", info.FirmwareVersion),
					zap.Bool("slot2_programmed", info.Slot2Programmed),
				)

				hl := cfg.Logger.Highlight
				status := hl("red", "Not Programmed")
				if info.Slot2Programmed {
					status = hl("green", "Programmed")
				}

				out := cfg.Out
				fmt.Fprintln(out)
				fmt.Fprintln(out, hl("bold", "YubiKey Information:"))
				fmt.Fprintf(out, "  Serial Number:     %s\n", hl("yellow", info.Serial))
				fmt.Fprintf(out, "  Firmware Version:  %s\n", hl("yellow", info.FirmwareVersion))
				fmt.Fprintf(out, "  Slot 2 Status:     %s\n", status)
				fmt.Fprintln(out)

				if !info.Slot2Programmed {
					cfg.Logger.Warn("Slot 2 is not programmed with HMAC-SHA1")
					fmt.Fprintf(out, "Run %s to program slot 2\n", hl("cyan", "ykvc slot2 program"))
				}
				return nil
			})
		},
	}
}
