// Package review submits diffs to the remote AI review service and
// normalizes the response. Transport or parse failures degrade to a
// synthetic high-risk result; the pipeline never proceeds as if a failed
// review passed.
package review

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/tidwall/gjson"

	"github.com/ankittk/taskpilot/pkg/client"
	"github.com/ankittk/taskpilot/pkg/models"
)

const requestTimeout = 60 * time.Second

// Submitter posts a review request and returns the raw JSON response.
// *client.Client satisfies this.
type Submitter interface {
	ReviewCode(ctx context.Context, req *client.ReviewRequest) ([]byte, error)
}

// Client runs the self-review stage.
type Client struct {
	submitter Submitter
}

// NewClient returns a review client backed by the given submitter.
func NewClient(submitter Submitter) *Client {
	return &Client{submitter: submitter}
}

// ReviewDiff submits the change set for review. The response is mapped
// leniently: every missing field gets a safe default so downstream code
// never sees an ambiguous result.
func (c *Client) ReviewDiff(ctx context.Context, diff string, changedFiles []string, profile *models.CodeReviewProfile, testResult *models.TestRunResult, projectContext string) *models.CodeReviewResult {
	if len(diff) > models.DefaultMaxDiffBytes {
		diff = diff[:models.DefaultMaxDiffBytes]
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	raw, err := c.submitter.ReviewCode(reqCtx, &client.ReviewRequest{
		Diff:           diff,
		ChangedFiles:   changedFiles,
		ProjectContext: projectContext,
		ReviewProfile:  profile,
		TestResults:    testResult,
	})
	if err != nil {
		clog.FromContext(ctx).With("error", err).Warn("review request failed")
		return failedReviewResult()
	}
	if !gjson.ValidBytes(raw) {
		clog.FromContext(ctx).Warn("review response was not valid JSON")
		return failedReviewResult()
	}
	return decodeResult(raw)
}

// failedReviewResult is returned whenever the review call itself fails: a
// high-risk result whose required action demands manual review.
func failedReviewResult() *models.CodeReviewResult {
	return &models.CodeReviewResult{
		Summary:         "Automated review could not be completed.",
		RiskLevel:       models.RiskHigh,
		Findings:        []models.Finding{},
		RequiredActions: []string{"Automated review failed; manual review is required before merging."},
	}
}

// decodeResult applies defaults at the boundary: missing risk_level becomes
// medium, missing findings become empty, finding severities are normalized.
func decodeResult(raw []byte) *models.CodeReviewResult {
	body := gjson.ParseBytes(raw)
	res := &models.CodeReviewResult{
		Summary:         body.Get("summary").String(),
		RiskLevel:       normalizeRisk(body.Get("risk_level").String()),
		TestStatus:      body.Get("test_status").String(),
		Findings:        []models.Finding{},
		RequiredActions: []string{},
	}
	if res.Summary == "" {
		res.Summary = "No summary provided."
	}
	for _, f := range body.Get("findings").Array() {
		res.Findings = append(res.Findings, models.Finding{
			File:         f.Get("file").String(),
			LineStart:    int(f.Get("line_start").Int()),
			LineEnd:      int(f.Get("line_end").Int()),
			Severity:     normalizeSeverity(f.Get("severity").String()),
			Category:     f.Get("category").String(),
			Message:      f.Get("message").String(),
			SuggestedFix: f.Get("suggested_fix").String(),
		})
	}
	for _, a := range body.Get("required_actions").Array() {
		if s := a.String(); s != "" {
			res.RequiredActions = append(res.RequiredActions, s)
		}
	}
	for _, s := range body.Get("suggestions").Array() {
		if v := s.String(); v != "" {
			res.Suggestions = append(res.Suggestions, v)
		}
	}
	return res
}

func normalizeRisk(risk string) string {
	switch risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
		return risk
	default:
		return models.RiskMedium
	}
}

func normalizeSeverity(sev string) string {
	switch sev {
	case models.SeverityBlocker, models.SeverityWarn, models.SeverityInfo:
		return sev
	case "warning":
		return models.SeverityWarn
	case "critical", "error":
		return models.SeverityBlocker
	default:
		return models.SeverityInfo
	}
}

// HasBlockers reports whether the result gates PR creation: any blocker
// finding or any required action.
func HasBlockers(res *models.CodeReviewResult) bool {
	if res == nil {
		return false
	}
	if len(res.RequiredActions) > 0 {
		return true
	}
	for _, f := range res.Findings {
		if f.Severity == models.SeverityBlocker {
			return true
		}
	}
	return false
}
