package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/messenger/internal/metrics"
)

// Hub реестр websocket-соединений этого экземпляра, сгруппированных
// по пользователю. У пользователя может быть несколько соединений.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	running bool
	wg      sync.WaitGroup
}

// NewHub создаёт пустой hub. До вызова Run события не принимаются.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Run помечает hub как работающий и блокируется до отмены ctx,
// после чего закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	h.running = false
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	for _, c := range all {
		close(c.send)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	h.wg.Wait()
	h.log.Info("realtime hub stopped", slog.Int("closed", len(all)))
}

// Running сообщает, принимает ли hub соединения и события.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Register добавляет соединение и запускает его циклы чтения и записи.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrDispatcherNotInitialized
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.log.Debug("client registered", slog.String("user_id", c.userID), slog.String("addr", c.addr))

	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// unregister удаляет соединение. Повторный вызов ничего не делает.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok = set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.WSConnections.Dec()
}

// Connections количество соединений пользователя.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// EmitToUser кодирует событие и отдаёт его соединениям пользователя на этом экземпляре.
func (h *Hub) EmitToUser(_ context.Context, userID string, event Event) error {
	if h == nil || !h.Running() {
		return ErrDispatcherNotInitialized
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("realtime.Hub.EmitToUser: %w", err)
	}
	h.Deliver(userID, payload)
	return nil
}

// Deliver ставит готовый payload в очередь каждому соединению пользователя
// без блокировки. Соединения с переполненным буфером отключаются.
// Возвращает число соединений, принявших payload.
func (h *Hub) Deliver(userID string, payload []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow client", slog.String("user_id", userID), slog.String("addr", c.addr))
		h.unregister(c)
	}
	return delivered
}
