package review

import (
	"fmt"
	"strings"

	"github.com/ankittk/taskpilot/pkg/models"
)

var riskBadges = map[string]string{
	models.RiskLow:    "🟢 Low",
	models.RiskMedium: "🟡 Medium",
	models.RiskHigh:   "🔴 High",
}

var severityLabels = map[string]string{
	models.SeverityBlocker: "Blocker",
	models.SeverityWarn:    "Warning",
	models.SeverityInfo:    "Info",
}

// FormatForPR renders the review result as deterministic markdown: summary,
// risk badge, severity count table, per-finding bullets with suggested fixes
// as blockquotes, a required-action checklist, and a collapsible suggestion
// section.
func FormatForPR(res *models.CodeReviewResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(res.Summary)
	b.WriteString("\n\n")
	badge := riskBadges[res.RiskLevel]
	if badge == "" {
		badge = riskBadges[models.RiskMedium]
	}
	fmt.Fprintf(&b, "**Risk:** %s\n\n", badge)

	blockers, warns, infos := 0, 0, 0
	for _, f := range res.Findings {
		switch f.Severity {
		case models.SeverityBlocker:
			blockers++
		case models.SeverityWarn:
			warns++
		default:
			infos++
		}
	}
	b.WriteString("| Blockers | Warnings | Info |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", blockers, warns, infos)

	if len(res.Findings) > 0 {
		b.WriteString("### Findings\n\n")
		for _, f := range res.Findings {
			loc := f.File
			if f.LineStart > 0 {
				if f.LineEnd > f.LineStart {
					loc = fmt.Sprintf("%s:%d-%d", f.File, f.LineStart, f.LineEnd)
				} else {
					loc = fmt.Sprintf("%s:%d", f.File, f.LineStart)
				}
			}
			label := severityLabels[f.Severity]
			if label == "" {
				label = severityLabels[models.SeverityInfo]
			}
			fmt.Fprintf(&b, "- **[%s]** `%s`: %s\n", label, loc, f.Message)
			if f.SuggestedFix != "" {
				for _, line := range strings.Split(f.SuggestedFix, "\n") {
					fmt.Fprintf(&b, "  > %s\n", line)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(res.RequiredActions) > 0 {
		b.WriteString("### Required Actions\n\n")
		for _, a := range res.RequiredActions {
			fmt.Fprintf(&b, "- [ ] %s\n", a)
		}
		b.WriteString("\n")
	}

	if len(res.Suggestions) > 0 {
		b.WriteString("<details>\n<summary>Suggestions</summary>\n\n")
		for _, s := range res.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n</details>\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
