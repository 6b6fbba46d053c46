// Package profile fetches and caches workspace configuration profiles (code
// style, code review) from the remote service, with built-in defaults so the
// pipeline is never left without a usable profile.
package profile

import (
	"context"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ankittk/taskpilot/pkg/models"
)

// ListTTL is how long a fetched profile list stays fresh.
const ListTTL = 60 * time.Second

// Service is the remote profile API. *client.Client satisfies this.
type Service interface {
	ListProfiles(ctx context.Context, workspaceID string) ([]models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, profileID string) error
}

type cacheEntry struct {
	profiles  []models.Profile
	fetchedAt time.Time
}

// Manager caches the workspace's profile list and selects the active style
// and review profiles. Safe for concurrent use.
type Manager struct {
	svc Service

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time // test hook
}

// NewManager returns a Manager backed by the given service.
func NewManager(svc Service) *Manager {
	return &Manager{svc: svc, cache: make(map[string]cacheEntry), now: time.Now}
}

// GetAllProfiles returns the cached profile list, refetching after the TTL.
// Fetch failures fall back to whatever was cached before, possibly nothing;
// they are never surfaced as errors.
func (m *Manager) GetAllProfiles(ctx context.Context, workspaceID string) []models.Profile {
	m.mu.Lock()
	entry, cached := m.cache[workspaceID]
	fresh := cached && m.now().Sub(entry.fetchedAt) < ListTTL
	m.mu.Unlock()

	if fresh {
		return entry.profiles
	}
	if m.svc != nil {
		profiles, err := m.svc.ListProfiles(ctx, workspaceID)
		if err == nil {
			m.mu.Lock()
			m.cache[workspaceID] = cacheEntry{profiles: profiles, fetchedAt: m.now()}
			m.mu.Unlock()
			return profiles
		}
		clog.FromContext(ctx).With("workspace", workspaceID).With("error", err).
			Warn("profile fetch failed, using cached list")
	}
	return entry.profiles
}

// GetActiveReviewProfile returns the workspace's review profile: the default
// entry, else the first of its type, else a built-in default.
func (m *Manager) GetActiveReviewProfile(ctx context.Context, workspaceID string) *models.CodeReviewProfile {
	if p := m.pickActive(ctx, workspaceID, models.ProfileTypeCodeReview); p != nil && p.Review != nil {
		return p.Review
	}
	return DefaultReviewProfile()
}

// GetActiveStyleProfile returns the workspace's style profile with the same
// three-tier fallback.
func (m *Manager) GetActiveStyleProfile(ctx context.Context, workspaceID string) *models.CodeStyleProfile {
	if p := m.pickActive(ctx, workspaceID, models.ProfileTypeCodeStyle); p != nil && p.Style != nil {
		return p.Style
	}
	return DefaultStyleProfile()
}

func (m *Manager) pickActive(ctx context.Context, workspaceID, typ string) *models.Profile {
	profiles := m.GetAllProfiles(ctx, workspaceID)
	var first *models.Profile
	for i := range profiles {
		if profiles[i].Type != typ {
			continue
		}
		if profiles[i].IsDefault {
			return &profiles[i]
		}
		if first == nil {
			first = &profiles[i]
		}
	}
	return first
}

// CreateProfile creates a profile and invalidates the workspace cache.
func (m *Manager) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	created, err := m.svc.CreateProfile(ctx, p)
	m.Invalidate(p.WorkspaceID)
	return created, err
}

// UpdateProfile updates a profile and invalidates the workspace cache.
func (m *Manager) UpdateProfile(ctx context.Context, p *models.Profile) error {
	err := m.svc.UpdateProfile(ctx, p)
	m.Invalidate(p.WorkspaceID)
	return err
}

// DeleteProfile deletes a profile and invalidates every cache entry, since
// the owning workspace is not known from the id alone.
func (m *Manager) DeleteProfile(ctx context.Context, profileID string) error {
	err := m.svc.DeleteProfile(ctx, profileID)
	m.Invalidate("")
	return err
}

// Invalidate clears one workspace's cache entry, or all entries when
// workspaceID is empty.
func (m *Manager) Invalidate(workspaceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if workspaceID == "" {
		m.cache = make(map[string]cacheEntry)
		return
	}
	delete(m.cache, workspaceID)
}

// DefaultReviewProfile is the hard-coded fallback review configuration.
func DefaultReviewProfile() *models.CodeReviewProfile {
	return &models.CodeReviewProfile{
		Strictness:     "standard",
		RequiredChecks: []string{"tests pass", "no obvious security issues"},
		Rules: []models.ReviewRule{
			{Severity: models.SeverityBlocker, Description: "introduces a security vulnerability"},
			{Severity: models.SeverityBlocker, Description: "breaks existing behavior without migration"},
			{Severity: models.SeverityWarn, Description: "missing error handling"},
			{Severity: models.SeverityInfo, Description: "style or naming inconsistency"},
		},
	}
}

// DefaultStyleProfile is the hard-coded fallback style configuration. Its
// testing policy enables the two lightweight heuristics only.
func DefaultStyleProfile() *models.CodeStyleProfile {
	return &models.CodeStyleProfile{
		ErrorHandling: "explicit",
		Testing: &models.TestingPolicy{
			Triggers:      models.TestTriggers{APIChanged: true, LogicChanged: true},
			RequiredTypes: []string{models.TestTypeUnit},
			AllowSkip:     true,
		},
	}
}
