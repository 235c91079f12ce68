package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/messenger/internal/lib/sl"
)

const (
	userChannelPrefix  = "user:"
	userChannelPattern = userChannelPrefix + "*"
)

// RedisRelay публикует события в канал user:<id>. Каждый экземпляр
// подписан на user:* и передаёт полученное своему Hub.
type RedisRelay struct {
	log    *slog.Logger
	client *redis.Client
	hub    *Hub
}

// NewRedisRelay создаёт relay поверх клиента Redis и локального hub.
func NewRedisRelay(log *slog.Logger, client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{log: log, client: client, hub: hub}
}

// EmitToUser публикует событие для пользователя.
func (r *RedisRelay) EmitToUser(ctx context.Context, userID string, event Event) error {
	const op = "realtime.RedisRelay.EmitToUser"
	if r == nil || r.client == nil {
		return ErrDispatcherNotInitialized
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = r.client.Publish(ctx, userChannelPrefix+userID, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Run подписывается на каналы пользователей и пересылает сообщения в hub
// до отмены ctx. ready, если не nil, закрывается после подтверждения подписки.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	const op = "realtime.RedisRelay.Run"
	log := r.log.With(slog.String("op", op))

	pubsub := r.client.PSubscribe(ctx, userChannelPattern)
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ready != nil {
		close(ready)
	}
	log.Info("redis relay subscribed", slog.String("pattern", userChannelPattern))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				log.Warn("redis relay channel closed", sl.Err(ctx.Err()))
				return nil
			}
			userID := strings.TrimPrefix(msg.Channel, userChannelPrefix)
			r.hub.Deliver(userID, []byte(msg.Payload))
		}
	}
}
