package cli

import (
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string
	var verbose bool

	cmd := &cobra.Command{
		Use:          "taskpilot",
		Short:        "Taskpilot — run the task-to-PR automation pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log := clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			ctx := clog.WithLogger(cmd.Context(), log)
			cmd.SetContext(config.WithHome(ctx, home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Taskpilot home directory (default: ~/.taskpilot, env: TASKPILOT_HOME)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newBranchCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newConventionCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
