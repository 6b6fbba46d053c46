package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ankittk/taskpilot/pkg/models"
)

type fakeSCM struct {
	diff        string
	files       []string
	summary     string
	uncommitted bool

	commitErr   error
	prURL       string
	prErr       error
	prBody      string
	commitCalls int
}

func (f *fakeSCM) IsRepo(ctx context.Context) bool { return true }

func (f *fakeSCM) HasUncommittedChanges(ctx context.Context) (bool, error) {
	return f.uncommitted, nil
}

func (f *fakeSCM) DiffSummary(ctx context.Context) string { return f.summary }

func (f *fakeSCM) FullDiff(ctx context.Context) string { return f.diff }

func (f *fakeSCM) ChangedFiles(ctx context.Context) []string { return f.files }

func (f *fakeSCM) CommitAndPush(ctx context.Context, taskID, title, message, workspaceID, taskType string) (string, string, error) {
	f.commitCalls++
	return "bugfix/abc12345-fix-login-bug", "abc1234", f.commitErr
}

func (f *fakeSCM) CreatePullRequest(ctx context.Context, taskID, title, description, customBody, workspaceID, taskType string) (string, error) {
	f.prBody = customBody
	if f.prErr != nil {
		return "", f.prErr
	}
	return f.prURL, nil
}

type fakeTests struct {
	result *models.TestRunResult
	calls  int
}

func (f *fakeTests) RunTests(ctx context.Context, commands map[string]string, types []string) *models.TestRunResult {
	f.calls++
	return f.result
}

type fakeReviewer struct {
	result *models.CodeReviewResult
}

func (f *fakeReviewer) ReviewDiff(ctx context.Context, diff string, changedFiles []string, profile *models.CodeReviewProfile, testResult *models.TestRunResult, projectContext string) *models.CodeReviewResult {
	return f.result
}

type fakeProfiles struct {
	style  *models.CodeStyleProfile
	review *models.CodeReviewProfile
}

func (f *fakeProfiles) GetActiveStyleProfile(ctx context.Context, workspaceID string) *models.CodeStyleProfile {
	return f.style
}

func (f *fakeProfiles) GetActiveReviewProfile(ctx context.Context, workspaceID string) *models.CodeReviewProfile {
	return f.review
}

type fakeTasks struct {
	task       *models.Task
	getErr     error
	lastStatus string
}

func (f *fakeTasks) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	return f.task, f.getErr
}

func (f *fakeTasks) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	f.lastStatus = status
	return nil
}

type fakeAgent struct {
	prompt string
	calls  int
}

func (f *fakeAgent) DispatchFix(ctx context.Context, taskID, prompt string) error {
	f.calls++
	f.prompt = prompt
	return nil
}

type fakePrompt struct{ answer bool }

func (f *fakePrompt) Confirm(ctx context.Context, question string) (bool, error) {
	return f.answer, nil
}

type fakeProgress struct{ stages []string }

func (f *fakeProgress) Report(stage string, percent int, label string) {
	f.stages = append(f.stages, stage)
}

func passResult() *models.TestRunResult {
	return &models.TestRunResult{
		Required:    true,
		CommandsRun: []string{"npx jest"},
		Result:      models.TestResultPass,
		Summary:     models.TestSummary{Total: 5, Passed: 5},
	}
}

func failResult() *models.TestRunResult {
	return &models.TestRunResult{
		Required:    true,
		CommandsRun: []string{"npx jest"},
		Result:      models.TestResultFail,
		Summary:     models.TestSummary{Total: 5, Passed: 4, Failed: 1},
		Failures:    []models.TestFailure{{Name: "rejects bad password"}},
		LogExcerpt:  "1 failed",
	}
}

func cleanReview() *models.CodeReviewResult {
	return &models.CodeReviewResult{
		Summary:         "Clean change.",
		RiskLevel:       models.RiskLow,
		Findings:        []models.Finding{},
		RequiredActions: []string{},
	}
}

func blockerReview() *models.CodeReviewResult {
	return &models.CodeReviewResult{
		Summary:   "Found a problem.",
		RiskLevel: models.RiskHigh,
		Findings: []models.Finding{
			{File: "src/services/auth.ts", Severity: models.SeverityBlocker,
				Message: "token not validated", SuggestedFix: "verify signature"},
		},
		RequiredActions: []string{},
	}
}

func testTask() *models.Task {
	return &models.Task{ID: "abc12345", Title: "Fix login bug", Type: "bug", WorkspaceID: "ws1"}
}

func newTestPipeline(scm *fakeSCM, tests *fakeTests, reviewer Reviewer, tasks *fakeTasks, agent *fakeAgent, prompt *fakePrompt, progress *fakeProgress) *Pipeline {
	profiles := &fakeProfiles{
		style: &models.CodeStyleProfile{Testing: &models.TestingPolicy{
			Triggers: models.TestTriggers{APIChanged: true, LogicChanged: true, BugfixDetected: true},
			Commands: map[string]string{models.TestTypeUnit: "npx jest"},
		}},
		review: &models.CodeReviewProfile{RequiredChecks: []string{"tests pass"}},
	}
	return New(scm, tests, reviewer, profiles, tasks, agent, progress, prompt,
		Options{WorkspaceID: "ws1", ProceedOnDeclinedAutofix: true})
}

func TestRun_happyPath(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{
		diff:        "+// fix login validation\n",
		files:       []string{"src/services/auth.ts"},
		summary:     "1 file changed",
		uncommitted: true,
		prURL:       "https://github.com/octo/widgets/pull/7",
	}
	tasks := &fakeTasks{task: testTask()}
	progress := &fakeProgress{}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: cleanReview()},
		tasks, &fakeAgent{}, &fakePrompt{}, progress)

	res := p.Run(context.Background(), "abc12345")

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Blockers) != 0 {
		t.Errorf("blockers: %v", res.Blockers)
	}
	wantStages := []string{
		models.StageGetDiff, models.StageDetermineTests, models.StageRunTests,
		models.StageSelfReview, models.StageBuildPR, models.StageOpenPR,
	}
	if diff := cmp.Diff(wantStages, res.StagesCompleted); diff != "" {
		t.Errorf("stages (-want +got):\n%s", diff)
	}
	if res.PRURL != "https://github.com/octo/widgets/pull/7" {
		t.Errorf("pr url: %q", res.PRURL)
	}
	if scm.commitCalls != 1 {
		t.Errorf("commit calls: %d", scm.commitCalls)
	}
	if tasks.lastStatus != models.StatusInReview {
		t.Errorf("task status: %q", tasks.lastStatus)
	}
	if res.RunID == "" {
		t.Error("run id missing")
	}
	if len(progress.stages) == 0 {
		t.Error("no progress reported")
	}
}

func TestRun_noChanges(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: cleanReview()},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")
	if res.Success {
		t.Error("expected success=false with no changes")
	}
	if len(res.StagesCompleted) != 0 {
		t.Errorf("stages: %v", res.StagesCompleted)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a no-changes warning")
	}
}

func TestRun_blockerConfirmedAutofixShortCircuits(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}, prURL: "unused"}
	agent := &fakeAgent{}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: blockerReview()},
		&fakeTasks{task: testTask()}, agent, &fakePrompt{answer: true}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")

	if res.Success {
		t.Error("autofix short-circuit must not report success")
	}
	if !res.AutofixAttempted || res.AutofixSuccessful {
		t.Errorf("autofix flags: attempted=%v successful=%v", res.AutofixAttempted, res.AutofixSuccessful)
	}
	if agent.calls != 1 {
		t.Errorf("agent calls: %d", agent.calls)
	}
	if !strings.Contains(agent.prompt, "token not validated") ||
		!strings.Contains(agent.prompt, "verify signature") {
		t.Errorf("prompt missing blocker detail:\n%s", agent.prompt)
	}
	if res.PRURL != "" {
		t.Errorf("no PR should be opened: %q", res.PRURL)
	}
	for _, s := range res.StagesCompleted {
		if s == models.StageOpenPR || s == models.StageBuildPR {
			t.Errorf("unexpected stage %s after short-circuit", s)
		}
	}
}

func TestRun_blockerDeclinedProceedsToPR(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}, prURL: "https://github.com/o/r/pull/1"}
	agent := &fakeAgent{}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: blockerReview()},
		&fakeTasks{task: testTask()}, agent, &fakePrompt{answer: false}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")

	if !res.Success {
		t.Fatalf("declined autofix should still open the PR: %+v", res)
	}
	if res.AutofixAttempted {
		t.Error("autofix must not be marked attempted when declined")
	}
	if agent.calls != 0 {
		t.Errorf("agent calls: %d", agent.calls)
	}
	if !strings.Contains(res.PRBody, "Known Issues / Blockers") ||
		!strings.Contains(res.PRBody, "token not validated") {
		t.Errorf("PR body missing blocker section:\n%s", res.PRBody)
	}
}

func TestRun_blockerDeclinedAbortPolicy(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: blockerReview()},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{answer: false}, &fakeProgress{})
	p.Opts.ProceedOnDeclinedAutofix = false

	res := p.Run(context.Background(), "abc12345")
	if res.Success {
		t.Error("abort policy must not open the PR")
	}
	if res.PRURL != "" {
		t.Errorf("pr url: %q", res.PRURL)
	}
}

func TestRun_failedTestsEscalateToBlocker(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}, prURL: "https://github.com/o/r/pull/1"}
	p := newTestPipeline(scm, &fakeTests{result: failResult()}, &fakeReviewer{result: cleanReview()},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{answer: false}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")

	found := false
	for _, b := range res.Blockers {
		if b == "tests failed" {
			found = true
		}
	}
	if !found {
		t.Errorf("tests failed blocker missing: %v", res.Blockers)
	}
	warned := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "tests failed") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("tests failed warning missing: %v", res.Warnings)
	}
}

func TestRun_testsNotRequiredSkipsRunner(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+docs\n", files: []string{"README.md"}, prURL: "https://github.com/o/r/pull/1"}
	tests := &fakeTests{result: passResult()}
	p := newTestPipeline(scm, tests, &fakeReviewer{result: cleanReview()},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")
	if tests.calls != 0 {
		t.Errorf("runner invoked for docs-only change: %d", tests.calls)
	}
	if res.TestResult == nil || res.TestResult.Result != models.TestResultSkipped {
		t.Errorf("test result: %+v", res.TestResult)
	}
	if !res.Success {
		t.Errorf("docs-only change should still open a PR: %+v", res)
	}
}

func TestRun_taskLoadFailure(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(&fakeSCM{}, &fakeTests{result: passResult()}, &fakeReviewer{result: cleanReview()},
		&fakeTasks{getErr: errors.New("404")}, &fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	res := p.Run(context.Background(), "missing")
	if res.Success || len(res.Blockers) == 0 {
		t.Errorf("expected blocker for missing task: %+v", res)
	}
}

func TestRun_cancellationBetweenStages(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}}
	ctx, cancel := context.WithCancel(context.Background())

	tests := &fakeTests{result: passResult()}
	reviewer := &fakeReviewer{result: cleanReview()}
	p := newTestPipeline(scm, tests, reviewer, &fakeTasks{task: testTask()},
		&fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	// Cancel during the test stage; the review stage must not start.
	p.Tests = &cancelingTests{inner: tests, cancel: cancel}
	res := p.Run(ctx, "abc12345")

	if res.Success {
		t.Error("cancelled run must not succeed")
	}
	for _, s := range res.StagesCompleted {
		if s == models.StageSelfReview {
			t.Error("self_review started after cancellation")
		}
	}
}

type cancelingTests struct {
	inner  *fakeTests
	cancel context.CancelFunc
}

func (c *cancelingTests) RunTests(ctx context.Context, commands map[string]string, types []string) *models.TestRunResult {
	c.cancel()
	return c.inner.RunTests(ctx, commands, types)
}

func TestRun_prCreationFailure(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}, prErr: errors.New("remote gone")}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &fakeReviewer{result: cleanReview()},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")
	if res.Success {
		t.Error("expected failure when PR creation fails")
	}
	found := false
	for _, b := range res.Blockers {
		if strings.Contains(b, "pull request creation failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("blockers: %v", res.Blockers)
	}
}

func TestRun_panicBecomesBlocker(t *testing.T) {
	t.Parallel()
	scm := &fakeSCM{diff: "+x\n", files: []string{"src/services/auth.ts"}}
	p := newTestPipeline(scm, &fakeTests{result: passResult()}, &panicReviewer{},
		&fakeTasks{task: testTask()}, &fakeAgent{}, &fakePrompt{}, &fakeProgress{})

	res := p.Run(context.Background(), "abc12345")
	if res.Success {
		t.Error("panicked run must not succeed")
	}
	found := false
	for _, b := range res.Blockers {
		if strings.Contains(b, "pipeline error") {
			found = true
		}
	}
	if !found {
		t.Errorf("blockers: %v", res.Blockers)
	}
}

type panicReviewer struct{}

func (panicReviewer) ReviewDiff(ctx context.Context, diff string, changedFiles []string, profile *models.CodeReviewProfile, testResult *models.TestRunResult, projectContext string) *models.CodeReviewResult {
	panic("reviewer exploded")
}
