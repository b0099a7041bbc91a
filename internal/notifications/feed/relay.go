package feed

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

// Relay forwards notifications published on redis to the hub until ctx is
// canceled or the message channel closes.
func Relay(ctx context.Context, messages <-chan *goredis.Message, hub *Hub, logg *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := forward(hub, []byte(msg.Payload)); err != nil && logg != nil {
				logCtx := logg.WithField(ctx, "channel", msg.Channel)
				logg.Warn(logCtx, err.Error())
			}
		}
	}
}

func forward(hub *Hub, payload []byte) error {
	var notification models.Notification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	hub.Broadcast(notification.SubscriberID, Event{
		Type:    string(notification.Kind),
		Payload: json.RawMessage(payload),
	})
	return nil
}
