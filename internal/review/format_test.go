package review

import (
	"strings"
	"testing"

	"github.com/ankittk/taskpilot/pkg/models"
)

func TestFormatForPR(t *testing.T) {
	t.Parallel()
	res := &models.CodeReviewResult{
		Summary:   "Mostly fine, one blocker.",
		RiskLevel: models.RiskHigh,
		Findings: []models.Finding{
			{File: "auth.go", LineStart: 10, LineEnd: 12, Severity: models.SeverityBlocker,
				Message: "nil deref", SuggestedFix: "check err first"},
			{File: "util.go", Severity: models.SeverityInfo, Message: "naming nit"},
		},
		RequiredActions: []string{"fix nil deref"},
		Suggestions:     []string{"add a regression test"},
	}
	got := FormatForPR(res)

	for _, want := range []string{
		"Mostly fine, one blocker.",
		"🔴 High",
		"| 1 | 0 | 1 |",
		"`auth.go:10-12`",
		"> check err first",
		"- [ ] fix nil deref",
		"<details>",
		"add a regression test",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatForPR_deterministic(t *testing.T) {
	t.Parallel()
	res := &models.CodeReviewResult{
		Summary:   "ok",
		RiskLevel: models.RiskLow,
		Findings:  []models.Finding{{File: "a.go", Severity: models.SeverityWarn, Message: "m"}},
	}
	if FormatForPR(res) != FormatForPR(res) {
		t.Error("output not deterministic")
	}
}

func TestFormatForPR_empty(t *testing.T) {
	t.Parallel()
	if got := FormatForPR(nil); got != "" {
		t.Errorf("nil result: %q", got)
	}
	got := FormatForPR(&models.CodeReviewResult{Summary: "clean", RiskLevel: models.RiskLow})
	if !strings.Contains(got, "| 0 | 0 | 0 |") {
		t.Errorf("zero counts missing:\n%s", got)
	}
	if strings.Contains(got, "### Findings") || strings.Contains(got, "<details>") {
		t.Errorf("unexpected sections:\n%s", got)
	}
}
