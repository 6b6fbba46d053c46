package cli

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/ankittk/taskpilot/internal/config"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Verify runtime dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = config.MustHomeFrom(cmd.Context()) // currently unused, but ensures home resolves

			var problems []string

			// git is required for every pipeline run.
			if _, err := exec.LookPath("git"); err != nil {
				problems = append(problems, "missing dependency: git (not found on PATH)")
			}

			// gh is optional; without it PR creation falls back to compare URLs.
			if _, err := exec.LookPath("gh"); err != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "note: gh not found; pull requests will use compare URLs")
			}

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				problems = append(problems, fmt.Sprintf("configuration: %v", err))
			} else if cfg.APIKey == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "note: TASKPILOT_API_KEY not set; remote features disabled")
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	return cmd
}
