// Package models provides shared types for the taskpilot pipeline and the
// remote task-service API. These types mirror the service JSON and are stable
// for use by pkg/client and external consumers.
package models

import "time"

// Task is a work item owned by the remote task service. The pipeline treats
// it as read-mostly input; the only write-back is an occasional status change.
type Task struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	Status      string          `json:"status,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// ChecklistItem is one ordered entry of a task checklist.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Profile is a named configuration object fetched from the remote service.
// Type is ProfileTypeCodeStyle or ProfileTypeCodeReview; the matching payload
// field is populated depending on Type.
type Profile struct {
	ID          string             `json:"id"`
	WorkspaceID string             `json:"workspace_id,omitempty"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	IsDefault   bool               `json:"is_default,omitempty"`
	Style       *CodeStyleProfile  `json:"style,omitempty"`
	Review      *CodeReviewProfile `json:"review,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// Profile types as stored by the remote service.
const (
	ProfileTypeCodeStyle  = "code_style"
	ProfileTypeCodeReview = "code_review"
)

// CodeStyleProfile describes how code in the workspace should be written and
// when tests are mandatory. Immutable per pipeline run.
type CodeStyleProfile struct {
	Languages         []string       `json:"languages,omitempty"`
	PreferredPatterns []string       `json:"preferred_patterns,omitempty"`
	AvoidedPatterns   []string       `json:"avoided_patterns,omitempty"`
	Architecture      string         `json:"architecture,omitempty"`
	Naming            string         `json:"naming,omitempty"`
	ErrorHandling     string         `json:"error_handling,omitempty"`
	Testing           *TestingPolicy `json:"testing,omitempty"`
}

// TestingPolicy controls when the pipeline must run tests and how.
type TestingPolicy struct {
	Triggers         TestTriggers      `json:"triggers"`
	RequiredTypes    []string          `json:"required_types,omitempty"`
	MinimumCoverage  int               `json:"minimum_coverage,omitempty"`
	Commands         map[string]string `json:"commands,omitempty"` // test type -> command line
	AllowSkip        bool              `json:"allow_skip,omitempty"`
	SkipReasonNeeded bool              `json:"skip_reason_needed,omitempty"`
}

// TestTriggers enables individual test-requirement heuristics.
type TestTriggers struct {
	APIChanged     bool `json:"api_changed"`
	LogicChanged   bool `json:"logic_changed"`
	DBQueryChanged bool `json:"db_query_changed"`
	BugfixDetected bool `json:"bugfix_detected"`
}

// CodeReviewProfile configures the AI self-review stage.
type CodeReviewProfile struct {
	Strictness     string       `json:"strictness,omitempty"` // lenient|standard|strict
	RequiredChecks []string     `json:"required_checks,omitempty"`
	Rules          []ReviewRule `json:"rules,omitempty"`
}

// ReviewRule is one named review rule with a severity.
type ReviewRule struct {
	Severity    string `json:"severity"` // blocker|warn|info
	Description string `json:"description"`
}

// BranchConventionConfig is the workspace's branch/commit/PR naming rules.
// Every config must resolve a mapping for DefaultTaskType; resolution falls
// back to the default type's mapping and then to the first configured one.
type BranchConventionConfig struct {
	TaskTypeMappings []TaskTypeMapping `json:"task_type_mappings"`
	BranchPattern    string            `json:"branch_pattern"`
	PRTitlePattern   string            `json:"pr_title_pattern"`
	CommitPattern    string            `json:"commit_pattern"`
	BaseBranch       string            `json:"base_branch"`
	DefaultTaskType  string            `json:"default_task_type"`
}

// TaskTypeMapping maps a task type to its commit and branch prefixes.
type TaskTypeMapping struct {
	TaskType     string `json:"task_type"`
	CommitPrefix string `json:"commit_prefix"`
	BranchPrefix string `json:"branch_prefix"`
}

// RenderedConvention holds the rendered naming strings for one task.
// Derived, never persisted.
type RenderedConvention struct {
	BranchName    string `json:"branch_name"`
	PRTitle       string `json:"pr_title"`
	CommitMessage string `json:"commit_message"`
	BaseBranch    string `json:"base_branch"`
}

// Overall test results.
const (
	TestResultPass    = "pass"
	TestResultFail    = "fail"
	TestResultSkipped = "skipped"
)

// TestRunResult is the normalized outcome of the test stage.
type TestRunResult struct {
	Required         bool          `json:"required"`
	Reason           string        `json:"reason,omitempty"`
	CommandsRun      []string      `json:"commands_run"`
	Result           string        `json:"result"` // pass|fail|skipped
	Summary          TestSummary   `json:"summary"`
	Failures         []TestFailure `json:"failures,omitempty"`
	LogExcerpt       string        `json:"log_excerpt,omitempty"`
	RequirementUnmet bool          `json:"requirement_unmet,omitempty"` // required but no command resolvable
}

// TestSummary aggregates counts across all executed test commands.
type TestSummary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// TestFailure is one failing test case.
type TestFailure struct {
	Name    string `json:"name"`
	File    string `json:"file,omitempty"`
	Message string `json:"message,omitempty"`
}

// Finding severities and risk levels reported by the review service.
const (
	SeverityBlocker = "blocker"
	SeverityWarn    = "warn"
	SeverityInfo    = "info"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// CodeReviewResult is the normalized outcome of the self-review stage.
// Every field is populated at the deserialization boundary; downstream code
// never deals with missing values.
type CodeReviewResult struct {
	Summary         string    `json:"summary"`
	RiskLevel       string    `json:"risk_level"` // low|medium|high
	TestStatus      string    `json:"test_status,omitempty"`
	Findings        []Finding `json:"findings"`
	RequiredActions []string  `json:"required_actions"`
	Suggestions     []string  `json:"suggestions,omitempty"`
}

// Finding is one review observation tied to a file.
type Finding struct {
	File         string `json:"file"`
	LineStart    int    `json:"line_start,omitempty"`
	LineEnd      int    `json:"line_end,omitempty"`
	Severity     string `json:"severity"` // blocker|warn|info
	Category     string `json:"category,omitempty"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

// Pipeline stage names, recorded in PipelineResult.StagesCompleted in order.
const (
	StageGetDiff        = "get_diff"
	StageDetermineTests = "determine_tests"
	StageRunTests       = "run_tests"
	StageSelfReview     = "self_review"
	StageAutofix        = "autofix"
	StageBuildPR        = "build_pr"
	StageOpenPR         = "open_pr"
)

// PipelineResult is the single record a pipeline invocation returns to the
// invoking shell. Created fresh per run; never persisted.
type PipelineResult struct {
	RunID             string            `json:"run_id,omitempty"`
	Success           bool              `json:"success"`
	StagesCompleted   []string          `json:"stages_completed"`
	DiffSummary       string            `json:"diff_summary,omitempty"`
	AutofixAttempted  bool              `json:"autofix_attempted"`
	AutofixSuccessful bool              `json:"autofix_successful"`
	PRBody            string            `json:"pr_body,omitempty"`
	PRURL             string            `json:"pr_url,omitempty"`
	Blockers          []string          `json:"blockers"`
	Warnings          []string          `json:"warnings"`
	TestResult        *TestRunResult    `json:"test_result,omitempty"`
	ReviewResult      *CodeReviewResult `json:"review_result,omitempty"`
}
