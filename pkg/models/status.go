package models

// Task statuses used throughout the codebase.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Task types recognized by branch-convention mappings.
const (
	TaskTypeTask    = "task"
	TaskTypeFeature = "feature"
	TaskTypeBug     = "bug"
	TaskTypeChore   = "chore"
)

// Test types the runner knows how to dispatch.
const (
	TestTypeUnit        = "unit"
	TestTypeIntegration = "integration"
	TestTypeE2E         = "e2e"
)

// Default limits.
const (
	DefaultMaxDiffBytes      = 1 << 20 // 1 MiB sent to the review service
	DefaultLogExcerptLines   = 50
	DefaultLogExcerptBytes   = 3 << 10 // 3 KiB per pipeline run
	DefaultTitleSegmentLen   = 50
	DefaultUserSegmentLen    = 20
	DefaultShortTaskIDLen    = 8
)
