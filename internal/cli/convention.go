package cli

import (
	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/internal/convention"
)

func newConventionCmd() *cobra.Command {
	var workspace string
	var taskID string
	var taskType string
	var username string

	cmd := &cobra.Command{
		Use:   "convention <title>",
		Short: "Preview the branch name, PR title, and commit message for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			if username == "" {
				username = cfg.Username
			}
			rc := convention.RenderContext{
				TaskTitle: args[0],
				TaskID:    taskID,
				TaskType:  taskType,
				Username:  username,
			}

			// Workspace conventions need an API client; without one the
			// built-in defaults still render a usable preview.
			rendered := convention.Render(convention.DefaultConfig(), rc)
			ws := workspace
			if ws == "" {
				ws = cfg.WorkspaceID
			}
			if ws != "" && cfg.APIKey != "" {
				c, err := newClient(cfg)
				if err != nil {
					return err
				}
				rendered = convention.NewManager(c).Render(ctx, ws, rc)
			}

			printKV(cmd, "Branch", rendered.BranchName)
			printKV(cmd, "PR title", rendered.PRTitle)
			printKV(cmd, "Commit", rendered.CommitMessage)
			return nil
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID (overrides configuration)")
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	cmd.Flags().StringVar(&taskType, "type", "", "Task type (task, feature, bug, chore)")
	cmd.Flags().StringVar(&username, "username", "", "Username for branch naming")
	return cmd
}
