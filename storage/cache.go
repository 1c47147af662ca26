package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"boardsync/domain"
	"boardsync/internal/consts"
)

type backend interface {
	FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error)
	SaveWorkspace(ctx context.Context, workspaceID string, ws domain.Workspace, expectedVersion int64, requestID, userID string) (int64, error)
}

// Cache wraps a Storage instance with redis-backed caching for reads. Writes
// pass through and evict, so readers never observe a stale version after an
// accepted save.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	if ws, ok := c.load(ctx, workspaceID); ok {
		return ws, nil
	}
	ws, err := c.base.FetchWorkspace(ctx, workspaceID)
	if err != nil {
		return domain.Workspace{}, err
	}
	c.store(ctx, workspaceID, ws)
	return ws, nil
}

func (c *Cache) SaveWorkspace(ctx context.Context, workspaceID string, ws domain.Workspace, expectedVersion int64, requestID, userID string) (int64, error) {
	version, err := c.base.SaveWorkspace(ctx, workspaceID, ws, expectedVersion, requestID, userID)
	if err == nil || version > 0 {
		c.evict(ctx, workspaceID)
	}
	return version, err
}

func (c *Cache) load(ctx context.Context, workspaceID string) (domain.Workspace, bool) {
	if c.redis == nil {
		return domain.Workspace{}, false
	}
	data, err := c.redis.Get(ctx, cacheKey(workspaceID)).Bytes()
	if err != nil {
		return domain.Workspace{}, false
	}
	var ws domain.Workspace
	if err := sonic.Unmarshal(data, &ws); err != nil {
		return domain.Workspace{}, false
	}
	return ws.Normalize(), true
}

func (c *Cache) store(ctx context.Context, workspaceID string, ws domain.Workspace) {
	if c.redis == nil {
		return
	}
	data, err := sonic.Marshal(ws)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, cacheKey(workspaceID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, workspaceID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, cacheKey(workspaceID)).Err()
}

func cacheKey(workspaceID string) string {
	return consts.WorkspaceCacheKeyPrefix + workspaceID
}
