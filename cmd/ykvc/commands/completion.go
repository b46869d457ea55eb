package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/ykvc/internal/config"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ykvc.

To load completions:

Bash:
  $ source <(ykvc completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ ykvc completion bash > /etc/bash_completion.d/ykvc
  # macOS:
  $ ykvc completion bash > $(brew --prefix)/etc/bash_completion.d/ykvc

Zsh:
  $ ykvc completion zsh > "${fpath[1]}/_ykvc"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ ykvc completion fish > ~/.config/fish/completions/ykvc.fish

PowerShell:
  PS> ykvc completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
