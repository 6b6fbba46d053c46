package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ankittk/taskpilot/internal/review"
	"github.com/ankittk/taskpilot/pkg/models"
)

// BuildPRBody renders the structured pull-request description: what changed,
// why, test results with collapsible failure detail, the formatted review, a
// checklist of the review profile's required checks cross-referenced against
// blockers, and a known-issues section.
func BuildPRBody(task *models.Task, diffSummary string, testResult *models.TestRunResult, reviewResult *models.CodeReviewResult, reviewProfile *models.CodeReviewProfile, blockers []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", task.Title)
	if task.Description != "" {
		b.WriteString(task.Description)
		b.WriteString("\n\n")
	}

	b.WriteString("### What Changed\n\n")
	if diffSummary != "" {
		b.WriteString("```\n" + strings.TrimRight(diffSummary, "\n") + "\n```\n\n")
	} else {
		b.WriteString("_No diff summary available._\n\n")
	}

	b.WriteString("### Test Results\n\n")
	writeTestSection(&b, testResult)

	if reviewResult != nil {
		b.WriteString("### Self-Review\n\n")
		b.WriteString(review.FormatForPR(reviewResult))
		b.WriteString("\n")
	}

	if reviewProfile != nil && len(reviewProfile.RequiredChecks) > 0 {
		b.WriteString("### Checklist\n\n")
		for _, check := range reviewProfile.RequiredChecks {
			if checkBlocked(check, blockers) {
				fmt.Fprintf(&b, "- [ ] %s\n", check)
			} else {
				fmt.Fprintf(&b, "- [x] %s\n", check)
			}
		}
		b.WriteString("\n")
	}

	if len(blockers) > 0 {
		b.WriteString("### Known Issues / Blockers\n\n")
		for _, blocker := range blockers {
			fmt.Fprintf(&b, "- ⚠️ %s\n", blocker)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTestSection(b *strings.Builder, tr *models.TestRunResult) {
	if tr == nil {
		b.WriteString("_Tests were not evaluated._\n\n")
		return
	}
	switch tr.Result {
	case models.TestResultPass:
		fmt.Fprintf(b, "✅ **Passed** — %d/%d tests (%s)\n\n",
			tr.Summary.Passed, tr.Summary.Total, tr.Summary.Duration.Round(10*time.Millisecond))
	case models.TestResultFail:
		fmt.Fprintf(b, "❌ **Failed** — %d of %d tests failed\n\n",
			tr.Summary.Failed, tr.Summary.Total)
	default:
		fmt.Fprintf(b, "⏭️ **Skipped** — %s\n\n", tr.Reason)
	}
	if len(tr.Failures) > 0 {
		b.WriteString("<details>\n<summary>Failure detail</summary>\n\n")
		for _, f := range tr.Failures {
			line := "- `" + f.Name + "`"
			if f.File != "" {
				line += " (" + f.File + ")"
			}
			if f.Message != "" {
				line += ": " + f.Message
			}
			b.WriteString(line + "\n")
		}
		if tr.LogExcerpt != "" {
			b.WriteString("\n```\n" + strings.TrimRight(tr.LogExcerpt, "\n") + "\n```\n")
		}
		b.WriteString("\n</details>\n\n")
	}
}

// checkBlocked reports whether any blocker message shares a significant word
// with the check description; such checks stay unticked.
func checkBlocked(check string, blockers []string) bool {
	checkWords := significantWords(check)
	for _, blocker := range blockers {
		for w := range significantWords(blocker) {
			if checkWords[w] {
				return true
			}
		}
	}
	return false
}

func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,:;!?")
		if len(w) > 3 {
			words[w] = true
		}
	}
	return words
}

// BuildFixPrompt assembles the remediation prompt handed to the agent:
// failing-test detail with the capped log excerpt, then each blocker with its
// suggested fix when the review supplied one.
func BuildFixPrompt(task *models.Task, blockers []string, testResult *models.TestRunResult, reviewResult *models.CodeReviewResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fix the following issues found while preparing task %q (%s) for a pull request.\n\n", task.Title, task.ID)

	if testResult != nil && testResult.Result == models.TestResultFail {
		fmt.Fprintf(&b, "Failing tests (%d of %d):\n", testResult.Summary.Failed, testResult.Summary.Total)
		for _, f := range testResult.Failures {
			line := "- " + f.Name
			if f.File != "" {
				line += " (" + f.File + ")"
			}
			if f.Message != "" {
				line += ": " + f.Message
			}
			b.WriteString(line + "\n")
		}
		if testResult.LogExcerpt != "" {
			b.WriteString("\nTest output (truncated):\n")
			b.WriteString(testResult.LogExcerpt)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Blockers:\n")
	for _, blocker := range blockers {
		b.WriteString("- " + blocker + "\n")
	}
	if reviewResult != nil {
		for _, f := range reviewResult.Findings {
			if f.Severity == models.SeverityBlocker && f.SuggestedFix != "" {
				fmt.Fprintf(&b, "\nSuggested fix for %s: %s\n", f.File, f.SuggestedFix)
			}
		}
	}

	b.WriteString("\nMake the smallest change that resolves each issue, then stop. Do not open a pull request.")
	return b.String()
}
