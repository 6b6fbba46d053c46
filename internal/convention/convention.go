// Package convention renders branch names, commit messages, and PR titles
// from a workspace's branch-naming configuration. Rendering is pure; the
// Manager wraps it with a cached, network-fetched config.
package convention

import (
	"strings"

	"github.com/ankittk/taskpilot/pkg/models"
)

// DefaultConfig is the built-in fallback used when no workspace config can be
// fetched and nothing is cached.
func DefaultConfig() *models.BranchConventionConfig {
	return &models.BranchConventionConfig{
		TaskTypeMappings: []models.TaskTypeMapping{
			{TaskType: models.TaskTypeTask, CommitPrefix: "chore", BranchPrefix: "task"},
			{TaskType: models.TaskTypeFeature, CommitPrefix: "feat", BranchPrefix: "feature"},
			{TaskType: models.TaskTypeBug, CommitPrefix: "fix", BranchPrefix: "bugfix"},
			{TaskType: models.TaskTypeChore, CommitPrefix: "chore", BranchPrefix: "chore"},
		},
		BranchPattern:   "{branchPrefix}/{id}-{title}",
		PRTitlePattern:  "{gitPrefix}: {title} ({id})",
		CommitPattern:   "{gitPrefix}: {title}",
		BaseBranch:      "main",
		DefaultTaskType: models.TaskTypeTask,
	}
}

var fallbackMapping = models.TaskTypeMapping{
	TaskType:     models.TaskTypeTask,
	CommitPrefix: "chore",
	BranchPrefix: "task",
}

// SanitizeSegment lower-cases raw, collapses runs of non-alphanumeric
// characters to single hyphens, trims leading/trailing hyphens, and truncates
// to maxLen (50 when maxLen <= 0). Idempotent.
func SanitizeSegment(raw string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = models.DefaultTitleSegmentLen
	}
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// ResolveMapping returns the mapping for taskType (case-insensitive), falling
// back to the config's default task type, then the first configured mapping,
// then a built-in mapping for "task". Never fails.
func ResolveMapping(cfg *models.BranchConventionConfig, taskType string) models.TaskTypeMapping {
	if cfg == nil {
		return fallbackMapping
	}
	if taskType == "" {
		taskType = cfg.DefaultTaskType
	}
	if m, ok := lookupMapping(cfg.TaskTypeMappings, taskType); ok {
		return m
	}
	if m, ok := lookupMapping(cfg.TaskTypeMappings, cfg.DefaultTaskType); ok {
		return m
	}
	if len(cfg.TaskTypeMappings) > 0 {
		return cfg.TaskTypeMappings[0]
	}
	return fallbackMapping
}

func lookupMapping(mappings []models.TaskTypeMapping, taskType string) (models.TaskTypeMapping, bool) {
	for _, m := range mappings {
		if strings.EqualFold(m.TaskType, taskType) {
			return m, true
		}
	}
	return models.TaskTypeMapping{}, false
}

// RenderPattern substitutes every {key} occurrence for each key in vars.
// Unknown placeholders are left untouched.
func RenderPattern(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// RenderContext carries the task fields that feed the naming templates.
type RenderContext struct {
	TaskTitle string
	TaskID    string
	TaskType  string // optional; config default when empty
	Username  string // optional; "user" when empty
}

// Render resolves the task-type mapping and renders the branch name, PR
// title, and commit message. Deterministic and side-effect-free.
func Render(cfg *models.BranchConventionConfig, rc RenderContext) models.RenderedConvention {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	mapping := ResolveMapping(cfg, rc.TaskType)

	username := rc.Username
	if username == "" {
		username = "user"
	}
	shortID := SanitizeSegment(rc.TaskID, models.DefaultShortTaskIDLen)
	vars := map[string]string{
		"branchPrefix": mapping.BranchPrefix,
		"gitPrefix":    mapping.CommitPrefix,
		"title":        SanitizeSegment(rc.TaskTitle, models.DefaultTitleSegmentLen),
		"id":           shortID,
		"taskType":     mapping.TaskType,
		"username":     SanitizeSegment(username, models.DefaultUserSegmentLen),
	}

	return models.RenderedConvention{
		BranchName:    RenderPattern(cfg.BranchPattern, vars),
		PRTitle:       RenderPattern(cfg.PRTitlePattern, vars),
		CommitMessage: RenderPattern(cfg.CommitPattern, vars),
		BaseBranch:    cfg.BaseBranch,
	}
}
