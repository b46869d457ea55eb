package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/secure"
)

func NewGenerateCommand(cfg *config.Config) *cobra.Command {
	var (
		output string
		keep   bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Derive a keyfile from a challenge phrase",
		Long: `Send a challenge phrase to slot 2 and write the 20-byte HMAC-SHA1 response
as a keyfile (mode 0600). The keyfile is wiped with the secure erase tool as
soon as Enter is pressed.

The same phrase on the same key (or a key restored with the same secret)
always gives the same keyfile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cfg, "generate", func(ctx context.Context) error {
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

				phrase, err := readChallenge(cfg, "Enter challenge phrase")
				if err != nil {
					return err
				}
				defer phrase.Destroy()
				fmt.Fprintln(cfg.Out)

				cfg.Logger.Info("Generating keyfile...")
				path, err := s.writeKeyfile(ctx, phrase, output)
				if err != nil {
					return err
				}
				cfg.Audit.Event("keyfile_written", zap.String("serial", info.Serial), zap.String("path", path))

				size := int64(0)
				if st, err := os.Stat(path); err == nil {
					size = st.Size()
				}

				hl := cfg.Logger.Highlight
				out := cfg.Out
				fmt.Fprintln(out)
				cfg.Logger.Success("Keyfile generated successfully!")
				fmt.Fprintln(out)
				fmt.Fprintln(out, hl("bold", "Keyfile Information:"))
				fmt.Fprintf(out, "  Path:  %s\n", hl("green", path))
				fmt.Fprintf(out, "  Size:  %s bytes\n", hl("yellow", fmt.Sprint(size)))
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Use this keyfile with VeraCrypt to mount your container.")
				fmt.Fprintln(out)

				if keep {
					cfg.Logger.Warn("Keyfile kept on disk. Remove it with: %s", hl("cyan", "ykvc wipe "+path))
					return nil
				}

				waitErr := cfg.Prompter.Wait("Press Enter after using the keyfile to securely delete it")
				fmt.Fprintln(out)

				// The keyfile is wiped even when the pause could not be read.
				if err := s.keyfile.SecureDelete(ctx, path); err != nil {
					return err
				}
				cfg.Audit.Event("keyfile_wiped", zap.String("path", path))
				if waitErr != nil {
					return errors.Wrap(waitErr, "Failed to read user input")
				}

				fmt.Fprintln(out)
				cfg.Logger.Success("Operation completed")
				fmt.Fprintln(out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Keyfile path (default: ykvc_keyfile_<unix-time>.key in the keyfile directory)")
	_ = cmd.MarkFlagFilename("output", "key")
	cmd.Flags().BoolVar(&keep, "keep", false, "Leave the keyfile on disk instead of wiping it after Enter")
	return cmd
}

// readChallenge prompts for a challenge phrase without echo and seals it.
// The phrase is passed to ykchalresp as an argument, where a leading '-'
// would be parsed as an option.
func readChallenge(cfg *config.Config, message string) (*secure.SecureBuffer, error) {
	phrase, err := cfg.Prompter.Secret(message)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read challenge phrase")
	}
	if strings.HasPrefix(phrase, "-") {
		return nil, errors.UserError{
			Message:    "Challenge phrases starting with '-' are not supported",
			Suggestion: "ykchalresp would read the phrase as an option; use a phrase that does not start with '-'",
		}
	}
	return secure.NewSecureString(phrase), nil
}

// challenge runs the challenge-response for a sealed phrase and seals the
// response.
func (s *session) challenge(ctx context.Context, phrase *secure.SecureBuffer) (*secure.SecureBuffer, error) {
	challenge, err := phrase.Reveal()
	if err != nil {
		return nil, err
	}

	response, err := s.device.ChallengeResponse(ctx, challenge)
	if err != nil {
		return nil, err
	}
	return secure.NewSecureBuffer(response), nil
}

// writeKeyfile derives the response for phrase and stores it at path.
func (s *session) writeKeyfile(ctx context.Context, phrase *secure.SecureBuffer, path string) (string, error) {
	response, err := s.challenge(ctx, phrase)
	if err != nil {
		return "", err
	}
	defer response.Destroy()

	var written string
	err = response.Use(func(b []byte) error {
		var err error
		written, err = s.keyfile.Write(b, path)
		return err
	})
	return written, err
}
