package convention

import (
	"context"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ankittk/taskpilot/pkg/models"
)

// ConfigTTL is how long a fetched convention config stays fresh.
const ConfigTTL = 5 * time.Minute

const fetchTimeout = 10 * time.Second

// Fetcher retrieves a workspace's convention config from the remote service.
// *client.Client satisfies this.
type Fetcher interface {
	GetBranchConventions(ctx context.Context, workspaceID string) (*models.BranchConventionConfig, error)
}

type cacheEntry struct {
	cfg       *models.BranchConventionConfig
	fetchedAt time.Time
}

// Manager serves convention configs with a per-workspace TTL cache. On fetch
// failure it degrades to the stale cached value, then the built-in default.
// Safe for concurrent use.
type Manager struct {
	fetcher Fetcher

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time // test hook
}

// NewManager returns a Manager backed by the given fetcher. A nil fetcher is
// allowed; every lookup then resolves to cache or the built-in default.
func NewManager(fetcher Fetcher) *Manager {
	return &Manager{
		fetcher: fetcher,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// GetConfig returns the convention config for the workspace: cached if fresh,
// freshly fetched otherwise, stale cache on fetch failure, built-in default
// as the last resort. Never returns an error.
func (m *Manager) GetConfig(ctx context.Context, workspaceID string) *models.BranchConventionConfig {
	m.mu.Lock()
	entry, cached := m.cache[workspaceID]
	fresh := cached && m.now().Sub(entry.fetchedAt) < ConfigTTL
	m.mu.Unlock()

	if fresh {
		return entry.cfg
	}
	if m.fetcher != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		cfg, err := m.fetcher.GetBranchConventions(fetchCtx, workspaceID)
		if err == nil && cfg != nil {
			m.mu.Lock()
			m.cache[workspaceID] = cacheEntry{cfg: cfg, fetchedAt: m.now()}
			m.mu.Unlock()
			return cfg
		}
		clog.FromContext(ctx).With("workspace", workspaceID).With("error", err).
			Warn("convention fetch failed, using cached or default config")
	}
	if cached {
		return entry.cfg
	}
	return DefaultConfig()
}

// Render composes GetConfig with the pure Render function.
func (m *Manager) Render(ctx context.Context, workspaceID string, rc RenderContext) models.RenderedConvention {
	return Render(m.GetConfig(ctx, workspaceID), rc)
}

// Invalidate clears the cache entry for workspaceID, or every entry when
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
