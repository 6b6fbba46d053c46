// Package testrun decides whether a change set requires tests, resolves the
// commands to run them, executes those commands, and normalizes their output
// into a single TestRunResult.
package testrun

import (
	"regexp"
	"strings"

	"github.com/waigani/diffparser"

	"github.com/ankittk/taskpilot/pkg/models"
)

// Trigger is one named test-requirement predicate. Triggers are evaluated in
// order; new heuristics are added to DefaultTriggers without touching the
// decision algorithm.
type Trigger struct {
	Name        string
	Description string
	// Enabled reports whether the policy turns this trigger on. Nil policy
	// means the lightweight fallback set (see DetermineRequirements).
	Enabled func(p *models.TestingPolicy) bool
	Fires   func(files []string, diff string) bool
}

var (
	apiPathPattern   = regexp.MustCompile(`(?i)(^|/)(routes?|controllers?|endpoints?|handlers?|api)(/|\.|$)`)
	apiDiffPattern   = regexp.MustCompile(`(?i)(app|router|mux|srv)\.(get|post|put|delete|patch|handle|handlefunc)\s*\(|func\s+\w+\s*\([^)]*http\.ResponseWriter`)
	logicPathPattern = regexp.MustCompile(`(?i)(^|/)(services?|utils?|helpers?|lib|core|domain|logic)(/|\.|$)`)
	dbDiffPattern    = regexp.MustCompile(`(?i)\.(query|queryrow|exec|find|findone|insert|update|delete|aggregate)\s*\(|\b(select\s+.+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from)\b`)
	dbPathPattern    = regexp.MustCompile(`(?i)(^|/)(schema|migrations?|models?|repositor(y|ies)|entities)(/|\.|$)`)
	bugfixPattern    = regexp.MustCompile(`(?i)\b(fix(es|ed)?|bug|patch|hotfix|issue)\b`)
)

func anyPathMatches(files []string, pat *regexp.Regexp) bool {
	for _, f := range files {
		if pat.MatchString(f) {
			return true
		}
	}
	return false
}

// DefaultTriggers returns the built-in trigger set, in evaluation order.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{
			Name:        "api_changed",
			Description: "API surface changed",
			Enabled:     func(p *models.TestingPolicy) bool { return p == nil || p.Triggers.APIChanged },
			Fires: func(files []string, diff string) bool {
				return anyPathMatches(files, apiPathPattern) || apiDiffPattern.MatchString(diff)
			},
		},
		{
			Name:        "logic_changed",
			Description: "business logic changed",
			Enabled:     func(p *models.TestingPolicy) bool { return p == nil || p.Triggers.LogicChanged },
			Fires: func(files []string, diff string) bool {
				return anyPathMatches(files, logicPathPattern)
			},
		},
		{
			Name:        "db_query_changed",
			Description: "database access changed",
			// Never load-bearing without an explicit policy.
			Enabled: func(p *models.TestingPolicy) bool { return p != nil && p.Triggers.DBQueryChanged },
			Fires: func(files []string, diff string) bool {
				return dbDiffPattern.MatchString(diff) || anyPathMatches(files, dbPathPattern)
			},
		},
		{
			Name:        "bugfix_detected",
			Description: "bugfix detected",
			Enabled:     func(p *models.TestingPolicy) bool { return p != nil && p.Triggers.BugfixDetected },
			Fires: func(files []string, diff string) bool {
				return bugfixPattern.MatchString(diff)
			},
		},
	}
}

// Requirement is the outcome of the test-requirement decision.
type Requirement struct {
	Required bool
	Reason   string
	Types    []string
}

// DetermineRequirements evaluates the enabled triggers against the change
// set. With a style profile present, its testing policy selects the triggers
// and required test types; without one, only the API and logic heuristics
// apply as a lightweight fallback. When changedFiles is empty the file list
// is recovered from the diff itself.
func DetermineRequirements(changedFiles []string, diff string, style *models.CodeStyleProfile) Requirement {
	var policy *models.TestingPolicy
	if style != nil {
		policy = style.Testing
	}

	if len(changedFiles) == 0 && diff != "" {
		if parsed, err := diffparser.Parse(diff); err == nil {
			for _, f := range parsed.Files {
				if f.NewName != "" {
					changedFiles = append(changedFiles, f.NewName)
				} else if f.OrigName != "" {
					changedFiles = append(changedFiles, f.OrigName)
				}
			}
		}
	}

	var reasons []string
	for _, trig := range DefaultTriggers() {
		if !trig.Enabled(policy) {
			continue
		}
		if trig.Fires(changedFiles, diff) {
			reasons = append(reasons, trig.Description)
		}
	}
	if len(reasons) == 0 {
		return Requirement{Required: false, Reason: "no test-requiring changes detected"}
	}

	types := []string{models.TestTypeUnit}
	if policy != nil && len(policy.RequiredTypes) > 0 {
		types = policy.RequiredTypes
	}
	return Requirement{
		Required: true,
		Reason:   "tests required: " + strings.Join(reasons, "; "),
		Types:    types,
	}
}
