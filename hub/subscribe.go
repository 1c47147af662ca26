package hub

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardsync/internal/consts"
)

type versionPayload struct {
	Version int64 `json:"version"`
}

// SubscribeUpdates listens for workspace updates on redis and fans them
// out to this instance's websocket clients. It reconnects if the pubsub
// channel closes and returns once ctx is cancelled.
func SubscribeUpdates(ctx context.Context, logger *log.Logger, rc *redis.Client, h *Hub) {
	for {
		sub := rc.Subscribe(ctx, consts.WorkspaceUpdatesChannel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev UpdateEvent
				if err := sonic.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.WithError(err).Error("unable to parse update")
					continue
				}
				if ev.WorkspaceID == "" {
					continue
				}
				h.Publish(Frame{
					Type:    "workspace.updated",
					Channel: consts.WorkspaceStreamPrefix + ev.WorkspaceID,
					Payload: versionPayload{Version: ev.Version},
				})
			}
		}
		sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
