package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/internal/convention"
	"github.com/ankittk/taskpilot/internal/gitx"
	"github.com/ankittk/taskpilot/internal/pipeline"
	"github.com/ankittk/taskpilot/internal/profile"
	"github.com/ankittk/taskpilot/internal/review"
	"github.com/ankittk/taskpilot/internal/testrun"
	"github.com/ankittk/taskpilot/pkg/client"
	"github.com/ankittk/taskpilot/pkg/models"
)

func newRunCmd() *cobra.Command {
	var dir string
	var workspace string
	var username string
	var autoConfirm bool
	var noAutofix bool

	cmd := &cobra.Command{
		Use:   "run <task-id>",
		Short: "Run the full pipeline for a task: tests, self-review, and PR",
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
			if username == "" {
				username = cfg.Username
			}

			scm := gitx.New(dir, convention.NewManager(c))
			scm.Username = username
			scm.BaseBranch = local.BaseBranch
			if !scm.IsRepo(ctx) {
				return fmt.Errorf("%s is not a git repository", dir)
			}

			var agent pipeline.Agent
			if !noAutofix {
				agent = &apiAgent{c: c}
			}
			p := pipeline.New(
				scm,
				testrun.NewRunner(dir),
				review.NewClient(c),
				profile.NewManager(c),
				c,
				agent,
				&stageProgress{cmd: cmd},
				&stdinPrompter{cmd: cmd, autoConfirm: autoConfirm},
				pipeline.Options{
					WorkspaceID:              ws,
					Dir:                      dir,
					TestOverrides:            local.TestCommands,
					ProceedOnDeclinedAutofix: cfg.ProceedOnDeclinedAutofix,
				},
			)

			res := p.Run(ctx, args[0])
			printResult(cmd, res)
			if !res.Success {
				return fmt.Errorf("pipeline did not complete")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID (overrides configuration)")
	cmd.Flags().StringVar(&username, "username", "", "Username for branch naming")
	cmd.Flags().BoolVar(&autoConfirm, "yes", false, "Answer yes to all prompts")
	cmd.Flags().BoolVar(&noAutofix, "no-autofix", false, "Never offer the automated fix")
	return cmd
}

func printResult(cmd *cobra.Command, res *models.PipelineResult) {
	out := cmd.OutOrStdout()
	if res.Success {
		_, _ = fmt.Fprintln(out, "\nPipeline complete.")
	} else {
		_, _ = fmt.Fprintln(out, "\nPipeline stopped.")
	}
	if res.PRURL != "" {
		printKV(cmd, "Pull request", res.PRURL)
	}
	if res.AutofixAttempted {
		printKV(cmd, "Autofix", "dispatched; run again once the fix lands")
	}
	if res.TestResult != nil {
		printKV(cmd, "Tests", fmt.Sprintf("%s (%d/%d passed)",
			res.TestResult.Result, res.TestResult.Summary.Passed, res.TestResult.Summary.Total))
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, b := range res.Blockers {
		_, _ = fmt.Fprintf(out, "blocker: %s\n", b)
	}
}

// apiAgent dispatches remediation prompts to the remote code-generation
// endpoint. The generated patch is applied out of band; this run only hands
// the work off.
type apiAgent struct {
	c *client.Client
}

func (a *apiAgent) DispatchFix(ctx context.Context, taskID string, prompt string) error {
	_, err := a.c.GenerateCode(ctx, prompt, "task "+taskID)
	return err
}

// stageProgress prints one line per pipeline stage.
type stageProgress struct {
	cmd *cobra.Command
}

func (s *stageProgress) Report(stage string, percent int, label string) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), "[%3d%%] %s\n", percent, label)
}

// stdinPrompter asks yes/no questions on the command's input stream.
type stdinPrompter struct {
	cmd         *cobra.Command
	autoConfirm bool
}

func (p *stdinPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if p.autoConfirm {
		return true, nil
	}
	_, _ = fmt.Fprintf(p.cmd.OutOrStdout(), "%s [y/N]: ", question)
	reader := bufio.NewReader(p.cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
