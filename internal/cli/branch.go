package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/internal/convention"
	"github.com/ankittk/taskpilot/internal/gitx"
)

func newBranchCmd() *cobra.Command {
	var dir string
	var workspace string

	cmd := &cobra.Command{
		Use:   "branch <task-id>",
		Short: "Create or switch to the convention-named branch for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, local, err := loadConfig(ctx, dir)
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			ws, err := requireWorkspace(cfg, workspace)
			if err != nil {
				return err
			}

			task, err := c.GetTask(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load task: %w", err)
			}

			scm := gitx.New(dir, convention.NewManager(c))
			scm.BaseBranch = local.BaseBranch
			if !scm.IsRepo(ctx) {
				return fmt.Errorf("%s is not a git repository", dir)
			}
			branch, err := scm.CreateTaskBranch(ctx, task.ID, task.Title, ws, task.Type)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "On branch %s\n", branch)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID (overrides configuration)")
	return cmd
}
