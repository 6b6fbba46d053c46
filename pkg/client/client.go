// Package client provides a Go SDK for the remote taskpilot API: tasks,
// profiles, branch conventions, and the AI review/generation endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ankittk/taskpilot/pkg/models"
)

// Client calls the remote task service. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "https://api.taskpilot.dev"
	APIKey     string       // bearer token; required by every endpoint
	HTTPClient *http.Client // optional; nil uses a client with a 10s timeout
}

// New returns a client for the given base URL and bearer token.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

// APIError is a non-2xx response from the service. Auth failures (401/403)
// and rate limiting (429, with a retry-after hint) are distinguishable from
// generic server errors by the caller.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // set for 429 when the server sent Retry-After
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("api auth failed (status %d): %s", e.StatusCode, e.Message)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("api rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	default:
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
}

// IsAuth reports whether the error is a 401/403.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimit reports whether the error is a 429.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			apiErr.Message = errBody.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// GetTask returns a task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var out models.Task
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &out)
	return &out, err
}

// UpdateTaskStatus moves a task to the given status.
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	return c.doJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID),
		map[string]string{"status": status}, nil)
}

// ListProfiles returns all profiles for a workspace (both code_style and code_review).
func (c *Client) ListProfiles(ctx context.Context, workspaceID string) ([]models.Profile, error) {
	var out []models.Profile
	err := c.doJSON(ctx, http.MethodGet,
		"/workspaces/"+url.PathEscape(workspaceID)+"/profiles", nil, &out)
	return out, err
}

// CreateProfile creates a profile and returns it with the server-assigned id.
func (c *Client) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	var out models.Profile
	err := c.doJSON(ctx, http.MethodPost,
		"/workspaces/"+url.PathEscape(p.WorkspaceID)+"/profiles", p, &out)
	return &out, err
}

// UpdateProfile replaces a profile by id.
func (c *Client) UpdateProfile(ctx context.Context, p *models.Profile) error {
	return c.doJSON(ctx, http.MethodPut, "/profiles/"+url.PathEscape(p.ID), p, nil)
}

// DeleteProfile deletes a profile by id.
func (c *Client) DeleteProfile(ctx context.Context, profileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/profiles/"+url.PathEscape(profileID), nil, nil)
}

// GetBranchConventions returns the workspace's branch-naming configuration.
func (c *Client) GetBranchConventions(ctx context.Context, workspaceID string) (*models.BranchConventionConfig, error) {
	var out models.BranchConventionConfig
	err := c.doJSON(ctx, http.MethodGet,
		"/workspaces/"+url.PathEscape(workspaceID)+"/conventions", nil, &out)
	return &out, err
}

// ReviewRequest is the payload for the AI code-review endpoint.
type ReviewRequest struct {
	Diff           string                    `json:"diff"`
	ChangedFiles   []string                  `json:"changed_files"`
	ProjectContext string                    `json:"project_context,omitempty"`
	ReviewProfile  *models.CodeReviewProfile `json:"review_profile,omitempty"`
	TestResults    *models.TestRunResult     `json:"test_results,omitempty"`
}

// ReviewCode submits a diff for AI review and returns the raw response body.
// Callers must tolerate missing fields; the shape is not guaranteed to be complete.
func (c *Client) ReviewCode(ctx context.Context, req *ReviewRequest) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, "/ai/review", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(b)}
	}
	return io.ReadAll(resp.Body)
}

// GenerateCode asks the AI backend for a code change given a prompt. Used by
// the wider extension; shares auth and transport with the pipeline endpoints.
func (c *Client) GenerateCode(ctx context.Context, prompt, projectContext string) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ai/generate", map[string]string{
		"prompt": prompt, "project_context": projectContext,
	}, &out)
	return out.Code, err
}

// GenerateCommitMessage asks the AI backend for a commit message for a diff.
func (c *Client) GenerateCommitMessage(ctx context.Context, diff string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/ai/commit-message", map[string]string{
		"diff": diff,
	}, &out)
	return out.Message, err
}
