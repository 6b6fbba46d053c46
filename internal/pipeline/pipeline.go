// Package pipeline sequences the task automation stages: diff collection,
// test requirement analysis and execution, AI self-review, the optional
// autofix handoff, and pull-request creation. The orchestrator owns no
// collaborator; everything is injected so tests can substitute fakes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/ankittk/taskpilot/internal/testrun"
	"github.com/ankittk/taskpilot/pkg/models"
)

// SourceControl is the slice of the git adapter the pipeline needs.
type SourceControl interface {
	IsRepo(ctx context.Context) bool
	HasUncommittedChanges(ctx context.Context) (bool, error)
	DiffSummary(ctx context.Context) string
	FullDiff(ctx context.Context) string
	ChangedFiles(ctx context.Context) []string
	CommitAndPush(ctx context.Context, taskID, title, message, workspaceID, taskType string) (branch, shortHash string, err error)
	CreatePullRequest(ctx context.Context, taskID, title, description, customBody, workspaceID, taskType string) (string, error)
}

// TestRunner executes resolved test commands.
type TestRunner interface {
	RunTests(ctx context.Context, commands map[string]string, types []string) *models.TestRunResult
}

// Reviewer runs the AI self-review.
type Reviewer interface {
	ReviewDiff(ctx context.Context, diff string, changedFiles []string, profile *models.CodeReviewProfile, testResult *models.TestRunResult, projectContext string) *models.CodeReviewResult
}

// ProfileSource supplies the active style and review profiles.
type ProfileSource interface {
	GetActiveStyleProfile(ctx context.Context, workspaceID string) *models.CodeStyleProfile
	GetActiveReviewProfile(ctx context.Context, workspaceID string) *models.CodeReviewProfile
}

// TaskSource reads tasks and writes back status transitions.
type TaskSource interface {
	GetTask(ctx context.Context, taskID string) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) error
}

// Agent receives the autofix handoff: a remediation prompt derived from the
// accumulated blockers. The agent acts outside this pipeline run.
type Agent interface {
	DispatchFix(ctx context.Context, taskID, prompt string) error
}

// ProgressReporter receives stage progress for the host UI. Implementations
// must not block; reporting failures never affect the pipeline.
type ProgressReporter interface {
	Report(stage string, percent int, label string)
}

// Prompter asks the invoking shell yes/no questions.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Options tune per-run behavior.
type Options struct {
	WorkspaceID string
	Dir         string // project root, used for test-command detection
	// TestOverrides maps test type to an explicit command line, from local
	// tool configuration.
	TestOverrides map[string]string
	// ProceedOnDeclinedAutofix keeps going to PR creation when the user turns
	// down the autofix offer. When false, declining aborts the run.
	ProceedOnDeclinedAutofix bool
}

// Pipeline wires the collaborators for one or more runs.
type Pipeline struct {
	SCM      SourceControl
	Tests    TestRunner
	Reviewer Reviewer
	Profiles ProfileSource
	Tasks    TaskSource
	Agent    Agent
	Progress ProgressReporter
	Prompt   Prompter
	Opts     Options

	// detectCommands is a test seam; production uses testrun.DetectCommands.
	detectCommands func(dir string, style *models.CodeStyleProfile, overrides map[string]string) map[string]string
}

// New returns a pipeline with the given collaborators.
func New(scm SourceControl, tests TestRunner, reviewer Reviewer, profiles ProfileSource, tasks TaskSource, agent Agent, progress ProgressReporter, prompt Prompter, opts Options) *Pipeline {
	return &Pipeline{
		SCM:            scm,
		Tests:          tests,
		Reviewer:       reviewer,
		Profiles:       profiles,
		Tasks:          tasks,
		Agent:          agent,
		Progress:       progress,
		Prompt:         prompt,
		Opts:           opts,
		detectCommands: testrun.DetectCommands,
	}
}

func (p *Pipeline) report(stage string, percent int, label string) {
	if p.Progress != nil {
		p.Progress.Report(stage, percent, label)
	}
}

// cancelled checks the cooperative cancellation point between stages.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Run executes the pipeline for one task. It always returns a structured
// result; unexpected panics are converted into a generic pipeline-error
// blocker rather than propagated.
func (p *Pipeline) Run(ctx context.Context, taskID string) (res *models.PipelineResult) {
	res = &models.PipelineResult{
		RunID:           uuid.NewString(),
		StagesCompleted: []string{},
		Blockers:        []string{},
		Warnings:        []string{},
	}
	defer func() {
		if r := recover(); r != nil {
			clog.FromContext(ctx).With("panic", r).Error("pipeline panicked")
			res.Success = false
			res.Blockers = append(res.Blockers, fmt.Sprintf("pipeline error: %v", r))
		}
	}()

	log := clog.FromContext(ctx).With("run_id", res.RunID).With("task_id", taskID)

	task, err := p.Tasks.GetTask(ctx, taskID)
	if err != nil || task == nil {
		res.Blockers = append(res.Blockers, fmt.Sprintf("could not load task %s: %v", taskID, err))
		return res
	}
	workspaceID := p.Opts.WorkspaceID
	if task.WorkspaceID != "" {
		workspaceID = task.WorkspaceID
	}

	styleProfile := p.Profiles.GetActiveStyleProfile(ctx, workspaceID)
	reviewProfile := p.Profiles.GetActiveReviewProfile(ctx, workspaceID)

	// Stage: get_diff. Uncommitted work counts; review must see work in
	// progress even before a commit exists.
	p.report(models.StageGetDiff, 15, "Collecting changes")
	diff := p.SCM.FullDiff(ctx)
	changedFiles := p.SCM.ChangedFiles(ctx)
	uncommitted, _ := p.SCM.HasUncommittedChanges(ctx)
	if diff == "" && len(changedFiles) == 0 && !uncommitted {
		log.Info("no changes to process")
		res.Warnings = append(res.Warnings, "no changes found: nothing to review or submit")
		return res
	}
	res.DiffSummary = p.SCM.DiffSummary(ctx)
	res.StagesCompleted = append(res.StagesCompleted, models.StageGetDiff)
	if cancelled(ctx) {
		return res
	}

	// Stage: determine_tests.
	p.report(models.StageDetermineTests, 25, "Determining test requirements")
	requirement := testrun.DetermineRequirements(changedFiles, diff, styleProfile)
	res.StagesCompleted = append(res.StagesCompleted, models.StageDetermineTests)
	if cancelled(ctx) {
		return res
	}

	// Stage: run_tests.
	var testResult *models.TestRunResult
	if requirement.Required {
		p.report(models.StageRunTests, 45, "Running tests")
		commands := p.detectCommands(p.Opts.Dir, styleProfile, p.Opts.TestOverrides)
		testResult = p.Tests.RunTests(ctx, commands, requirement.Types)
		testResult.Reason = requirement.Reason
		if testResult.RequirementUnmet {
			res.Warnings = append(res.Warnings,
				"tests required but no test command could be resolved")
		}
		if testResult.Result == models.TestResultFail {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"tests failed: %d of %d", testResult.Summary.Failed, testResult.Summary.Total))
		}
	} else {
		testResult = &models.TestRunResult{
			Required:    false,
			Reason:      requirement.Reason,
			CommandsRun: []string{},
			Result:      models.TestResultSkipped,
		}
	}
	res.TestResult = testResult
	res.StagesCompleted = append(res.StagesCompleted, models.StageRunTests)
	if cancelled(ctx) {
		return res
	}

	// Stage: self_review.
	p.report(models.StageSelfReview, 65, "Running self-review")
	reviewResult := p.Reviewer.ReviewDiff(ctx, diff, changedFiles, reviewProfile, testResult, "")
	res.ReviewResult = reviewResult
	for _, f := range reviewResult.Findings {
		switch f.Severity {
		case models.SeverityBlocker:
			res.Blockers = append(res.Blockers, fmt.Sprintf("%s: %s", f.File, f.Message))
		case models.SeverityWarn:
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", f.File, f.Message))
		}
	}
	res.StagesCompleted = append(res.StagesCompleted, models.StageSelfReview)
	if cancelled(ctx) {
		return res
	}

	// Failed tests escalate from warning to blocker before the autofix gate.
	if testResult.Result == models.TestResultFail {
		res.Blockers = append(res.Blockers, "tests failed")
	}

	// Autofix gate: hand blockers to the agent and end this run; a fresh
	// pipeline run is required after the agent acts.
	if len(res.Blockers) > 0 && p.Agent != nil {
		confirmed := false
		if p.Prompt != nil {
			confirmed, err = p.Prompt.Confirm(ctx, fmt.Sprintf(
				"%d blocker(s) found. Attempt an automated fix before opening the PR?", len(res.Blockers)))
			if err != nil {
				log.With("error", err).Warn("autofix confirmation failed, skipping autofix")
			}
		}
		if confirmed {
			prompt := BuildFixPrompt(task, res.Blockers, testResult, reviewResult)
			res.AutofixAttempted = true
			if err := p.Agent.DispatchFix(ctx, taskID, prompt); err != nil {
				res.Blockers = append(res.Blockers, fmt.Sprintf("autofix dispatch failed: %v", err))
				return res
			}
			res.StagesCompleted = append(res.StagesCompleted, models.StageAutofix)
			res.Warnings = append(res.Warnings,
				"autofix dispatched; run the pipeline again once the agent has finished")
			return res
		}
		if !p.Opts.ProceedOnDeclinedAutofix {
			res.Warnings = append(res.Warnings, "autofix declined; aborting before PR creation")
			return res
		}
		log.Info("autofix declined, proceeding to PR with known blockers")
	}
	if cancelled(ctx) {
		return res
	}

	// Stage: build_pr.
	p.report(models.StageBuildPR, 80, "Building PR description")
	res.PRBody = BuildPRBody(task, res.DiffSummary, testResult, reviewResult, reviewProfile, res.Blockers)
	res.StagesCompleted = append(res.StagesCompleted, models.StageBuildPR)
	if cancelled(ctx) {
		return res
	}

	// Stage: open_pr.
	p.report(models.StageOpenPR, 95, "Opening pull request")
	if uncommitted {
		if _, _, err := p.SCM.CommitAndPush(ctx, task.ID, task.Title, "", workspaceID, task.Type); err != nil {
			res.Blockers = append(res.Blockers, fmt.Sprintf("commit and push failed: %v", err))
			return res
		}
	}
	prURL, err := p.SCM.CreatePullRequest(ctx, task.ID, task.Title, task.Description, res.PRBody, workspaceID, task.Type)
	if err != nil {
		res.Blockers = append(res.Blockers, fmt.Sprintf("pull request creation failed: %v", err))
		return res
	}
	res.PRURL = prURL
	res.StagesCompleted = append(res.StagesCompleted, models.StageOpenPR)

	// Best effort: move the task into review on the remote service.
	if err := p.Tasks.UpdateTaskStatus(ctx, taskID, models.StatusInReview); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not update task status: %v", err))
	}

	p.report("done", 100, "Pipeline complete")
	res.Success = true
	return res
}
