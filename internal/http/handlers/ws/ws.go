// Package ws обработчик websocket-подключения к событиям реального времени.
package ws

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/messenger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/realtime"
)

const msgMissingToken = "missing or invalid authorization header"

// Handler принимает соединения и регистрирует их в hub.
type Handler struct {
	log      *slog.Logger
	auth     middlewarectx.Authenticator
	hub      *realtime.Hub
	opts     realtime.ClientOptions
	upgrader websocket.Upgrader
}

// New создаёт обработчик. Пустой allowedOrigins разрешает любой Origin.
func New(log *slog.Logger, auth middlewarectx.Authenticator, hub *realtime.Hub,
	opts realtime.ClientOptions, allowedOrigins []string) *Handler {
	return &Handler{
		log:  log,
		auth: auth,
		hub:  hub,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

func token(r *http.Request) (string, bool) {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t, true
	}
	return middlewarectx.BearerToken(r)
}

// ServeHTTP GET /ws?token=<jwt>. Без валидного токена соединение
// не поднимается и клиент получает 401.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ws.ServeHTTP"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tok, ok := token(r)
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(msgMissingToken))
		return
	}
	user, err := h.auth.Authenticate(r.Context(), tok)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	if !h.hub.Running() {
		log.Error("realtime hub is not running")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("realtime is not available"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		log.Info("websocket upgrade failed", sl.Err(err))
		return
	}

	client := realtime.NewClient(h.log, h.hub, conn, user.ID, r.RemoteAddr, h.opts)
	if err = h.hub.Register(client); err != nil {
		log.Error("failed to register client", sl.Err(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server is shutting down"))
		_ = conn.Close()
		return
	}
	log.Info("websocket connected", sl.UserID(user.ID))
}
