package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/ykvc/internal/backup"
	"github.com/systmms/ykvc/internal/config"
	"github.com/systmms/ykvc/internal/errors"
	"github.com/systmms/ykvc/internal/platform"
)

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the platform and required tools",
		Long: `Verify that ykvc can run on this machine.

This command checks:
- Configuration file validity
- Operating system support
- Required tools (ykman, ykpersonalize, ykchalresp and the secure erase tool)

Nothing is installed; run any device command to install missing tools.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger.Info("Checking ykvc configuration...")
			if cfg.Definition == nil {
				if err := cfg.Load(); err != nil {
					cfg.Logger.Error("Configuration error: %v", err)
					return err
				}
			}

			profile, err := cfg.Profile()
			if err != nil {
				return err
			}

			results := checkTools(cfg, profile)
			displayToolResults(cfg, profile, results)

			found := 0
			for _, r := range results {
				if r.Path != "" {
					found++
				}
			}
			fmt.Fprintf(cfg.Out, "\nSummary: %d/%d tools found\n", found, len(results))

			if backup.Headless() {
				cfg.Logger.Warn("No desktop session detected; keyring backups may be unavailable")
			}

			if found < len(results) {
				return errors.UserError{
					Message:    "Some required tools are missing",
					Suggestion: "Run 'ykvc info' to install them, or install them with your package manager",
				}
			}

			cfg.Logger.Success("All dependencies are installed")
			return nil
		},
	}

	return cmd
}

// ToolStatus is one row of the doctor table.
type ToolStatus struct {
	Name string
	Path string
	Err  error
}

func checkTools(cfg *config.Config, profile platform.Profile) []ToolStatus {
	tools := append(append([]string(nil), profile.RequiredTools...), profile.Erase.Tool)

	results := make([]ToolStatus, 0, len(tools))
	seen := make(map[string]bool)
	for _, tool := range tools {
		if seen[tool] {
			continue
		}
		seen[tool] = true

		path, err := cfg.LookPath(tool)
		results = append(results, ToolStatus{Name: tool, Path: path, Err: err})
	}
	return results
}

func displayToolResults(cfg *config.Config, profile platform.Profile, results []ToolStatus) {
	hl := cfg.Logger.Highlight
	fmt.Fprintf(cfg.Out, "\nPlatform: %s\n\n", hl("bold", profile.DisplayName))

	w := tabwriter.NewWriter(cfg.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "TOOL\tSTATUS\tPATH\n")
	_, _ = fmt.Fprintf(w, "----\t------\t----\n")

	for _, r := range results {
		status := "✓ found"
		path := r.Path
		if r.Err != nil || r.Path == "" {
			status = "✗ missing"
			path = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, path)
	}
	_ = w.Flush()
}
