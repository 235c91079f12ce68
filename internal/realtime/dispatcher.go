// Package realtime доставляет события пользователям по websocket.
// Hub держит соединения этого экземпляра, RedisRelay пересылает события
// между экземплярами через Redis pub/sub.
package realtime

import (
	"context"
	"errors"
)

// ErrDispatcherNotInitialized диспетчер не подключён или не запущен.
var ErrDispatcherNotInitialized = errors.New("realtime dispatcher not initialized")

// EventMessageNew событие о новом сообщении в чате.
const EventMessageNew = "message:new"

// Event сообщение, отправляемое клиенту.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Dispatcher доставляет событие всем соединениям пользователя.
// Доставка не гарантируется: офлайн-пользователи пропускаются.
type Dispatcher interface {
	EmitToUser(ctx context.Context, userID string, event Event) error
}
