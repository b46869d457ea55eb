package commands

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
)

func NewTestCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run a challenge-response and print the result",
		Long: `Send a test challenge phrase to slot 2 and print the response in hex.
Nothing is written to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "test", func(ctx context.Context) error {
				s, err := newSession(cfg)
				if err != nil {
					return err
				}
				if err := s.ensureDependencies(ctx); err != nil {
					return err
				}

				info, err := s.requireProgrammed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cfg.Out)

				phrase, err := readChallenge(cfg, "Enter test challenge phrase")
				if err != nil {
					return err
				}
				defer phrase.Destroy()

				fmt.Fprintln(cfg.Out)
				cfg.Logger.Info("Performing challenge-response...")
				response, err := s.challenge(ctx, phrase)
				if err != nil {
					return err
				}
				defer response.Destroy()
				cfg.Audit.Event("challenge_response_test", zap.String("serial", info.Serial))

				hl := cfg.Logger.Highlight
				challengeText := hl("bold", "<empty>")
				if n := phrase.Size(); n > 0 {
					challengeText = hl("yellow", fmt.Sprintf("%d characters", n))
				}

				out := cfg.Out
				fmt.Fprintln(out)
				cfg.Logger.Success("Challenge-Response Test")
				fmt.Fprintln(out)
				fmt.Fprintln(out, hl("bold", "Test Results:"))
				fmt.Fprintf(out, "  Challenge:  %s\n", challengeText)
				fmt.Fprintln(out, "  Response (hex):")
				err = response.Use(func(b []byte) error {
					fmt.Fprintf(out, "    %s\n", hl("yellow", hex.EncodeToString(b)))
					fmt.Fprintf(out, "  Response (bytes):  %s\n", hl("yellow", fmt.Sprint(len(b))))
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "This response can be used as a cryptographic keyfile.")
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}
