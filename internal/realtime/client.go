package realtime

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const maxControlMessageSize = 512

// ClientOptions параметры соединения.
type ClientOptions struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	return o
}

// Client одно websocket-соединение пользователя. Соединение только
// для отправки: входящие кадры читаются лишь ради control-фреймов.
type Client struct {
	log    *slog.Logger
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	addr   string
	opts   ClientOptions
}

// NewClient создаёт клиента для уже открытого соединения.
func NewClient(log *slog.Logger, hub *Hub, conn *websocket.Conn, userID, addr string, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	return &Client{
		log:    log,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
		userID: userID,
		addr:   addr,
		opts:   opts,
	}
}

func (c *Client) pongWait() time.Duration {
	return c.opts.PingInterval * 2
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxControlMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", slog.String("addr", c.addr), slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("websocket write failed", slog.String("addr", c.addr), slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
