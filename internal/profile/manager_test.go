package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ankittk/taskpilot/pkg/models"
)

type fakeService struct {
	listCalls int
	profiles  []models.Profile
	listErr   error
}

func (f *fakeService) ListProfiles(ctx context.Context, workspaceID string) ([]models.Profile, error) {
	f.listCalls++
	return f.profiles, f.listErr
}

func (f *fakeService) CreateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	return p, nil
}

func (f *fakeService) UpdateProfile(ctx context.Context, p *models.Profile) error { return nil }

func (f *fakeService) DeleteProfile(ctx context.Context, profileID string) error { return nil }

func reviewProfile(id string, isDefault bool) models.Profile {
	return models.Profile{
		ID: id, WorkspaceID: "ws1", Name: id, Type: models.ProfileTypeCodeReview,
		IsDefault: isDefault,
		Review:    &models.CodeReviewProfile{Strictness: "strict-" + id},
	}
}

func TestGetAllProfiles_cachesWithinTTL(t *testing.T) {
	t.Parallel()
	svc := &fakeService{profiles: []models.Profile{reviewProfile("p1", false)}}
	m := NewManager(svc)
	ctx := context.Background()

	_ = m.GetAllProfiles(ctx, "ws1")
	_ = m.GetAllProfiles(ctx, "ws1")
	if svc.listCalls != 1 {
		t.Errorf("list calls: %d, want 1", svc.listCalls)
	}

	now := time.Now()
	m.now = func() time.Time { return now.Add(ListTTL + time.Second) }
	_ = m.GetAllProfiles(ctx, "ws1")
	if svc.listCalls != 2 {
		t.Errorf("list calls after TTL: %d, want 2", svc.listCalls)
	}
}

func TestGetAllProfiles_failureReturnsPreviousCache(t *testing.T) {
	t.Parallel()
	svc := &fakeService{profiles: []models.Profile{reviewProfile("p1", false)}}
	m := NewManager(svc)
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }
	_ = m.GetAllProfiles(ctx, "ws1")

	svc.listErr = errors.New("network down")
	m.now = func() time.Time { return now.Add(ListTTL + time.Second) }
	got := m.GetAllProfiles(ctx, "ws1")
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("expected stale cache, got %+v", got)
	}
}

func TestGetActiveReviewProfile_prefersDefault(t *testing.T) {
	t.Parallel()
	svc := &fakeService{profiles: []models.Profile{
		reviewProfile("first", false),
		reviewProfile("chosen", true),
	}}
	m := NewManager(svc)

	got := m.GetActiveReviewProfile(context.Background(), "ws1")
	if got.Strictness != "strict-chosen" {
		t.Errorf("active profile: %+v", got)
	}
}

func TestGetActiveReviewProfile_firstOfTypeWhenNoDefault(t *testing.T) {
	t.Parallel()
	svc := &fakeService{profiles: []models.Profile{
		{ID: "s1", Type: models.ProfileTypeCodeStyle, Style: &models.CodeStyleProfile{}},
		reviewProfile("first", false),
		reviewProfile("second", false),
	}}
	m := NewManager(svc)

	got := m.GetActiveReviewProfile(context.Background(), "ws1")
	if got.Strictness != "strict-first" {
		t.Errorf("active profile: %+v", got)
	}
}

func TestGetActiveProfiles_builtInFallback(t *testing.T) {
	t.Parallel()
	svc := &fakeService{listErr: errors.New("unreachable")}
	m := NewManager(svc)
	ctx := context.Background()

	review := m.GetActiveReviewProfile(ctx, "ws1")
	if review == nil || len(review.Rules) == 0 {
		t.Errorf("built-in review fallback: %+v", review)
	}
	style := m.GetActiveStyleProfile(ctx, "ws1")
	if style == nil || style.Testing == nil || !style.Testing.Triggers.APIChanged {
		t.Errorf("built-in style fallback: %+v", style)
	}
}

func TestMutationsInvalidateCache(t *testing.T) {
	t.Parallel()
	svc := &fakeService{profiles: []models.Profile{reviewProfile("p1", false)}}
	m := NewManager(svc)
	ctx := context.Background()

	_ = m.GetAllProfiles(ctx, "ws1")
	if _, err := m.CreateProfile(ctx, &models.Profile{WorkspaceID: "ws1"}); err != nil {
		t.Fatal(err)
	}
	_ = m.GetAllProfiles(ctx, "ws1")
	if svc.listCalls != 2 {
		t.Errorf("list calls after create: %d, want 2", svc.listCalls)
	}

	if err := m.DeleteProfile(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	_ = m.GetAllProfiles(ctx, "ws1")
	if svc.listCalls != 3 {
		t.Errorf("list calls after delete: %d, want 3", svc.listCalls)
	}
}
