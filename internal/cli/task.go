package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/pkg/models"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and update tasks",
	}
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskStatusCmd())
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			task, err := c.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			printKV(cmd, "ID", task.ID)
			printKV(cmd, "Title", task.Title)
			printKV(cmd, "Type", task.Type)
			printKV(cmd, "Status", task.Status)
			printKV(cmd, "Priority", task.Priority)
			if task.Description != "" {
				printKV(cmd, "Description", task.Description)
			}
			for _, item := range task.Checklist {
				mark := " "
				if item.Done {
					mark = "x"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  [%s] %s\n", mark, item.Text)
			}
			return nil
		},
	}
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Set task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if status == "" {
				return fmt.Errorf("--status is required")
			}
			switch status {
			case models.StatusTodo, models.StatusInProgress, models.StatusInReview,
				models.StatusDone, models.StatusCancelled:
			default:
				return fmt.Errorf("unknown status %q", status)
			}
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.UpdateTaskStatus(ctx, args[0], status); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s status set to %q\n", args[0], status)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "New status (todo, in_progress, in_review, done, cancelled)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}
