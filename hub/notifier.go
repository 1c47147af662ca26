package hub

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"boardsync/internal/consts"
)

// UpdateEvent is published to redis whenever a workspace write is
// accepted, so every API instance can notify its own websocket peers.
type UpdateEvent struct {
	WorkspaceID string `json:"workspaceId"`
	Version     int64  `json:"version"`
}

// RedisNotifier publishes workspace updates to the shared redis channel.
type RedisNotifier struct {
	rc *redis.Client
}

// NewRedisNotifier creates a new RedisNotifier instance.
func NewRedisNotifier(rc *redis.Client) *RedisNotifier {
	return &RedisNotifier{rc: rc}
}

// WorkspaceChanged announces an accepted write.
func (n *RedisNotifier) WorkspaceChanged(ctx context.Context, workspaceID string, version int64) error {
	data, err := sonic.Marshal(UpdateEvent{WorkspaceID: workspaceID, Version: version})
	if err != nil {
		return err
	}
	return n.rc.Publish(ctx, consts.WorkspaceUpdatesChannel, data).Err()
}
