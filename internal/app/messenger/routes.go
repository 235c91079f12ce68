// Package messenger собирает HTTP API мессенджера и его зависимости.
package messenger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/messenger/internal/config"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/chat"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/feedback"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/message"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/user"
	"github.com/magabrotheeeer/messenger/internal/http/middlewarectx"
)

// Handlers обработчики, которые подключаются к маршрутизатору.
type Handlers struct {
	Register http.Handler
	Login    http.Handler
	Users    *user.Handler
	Chats    *chat.Handler
	Messages *message.Handler
	Feedback *feedback.Handler
	WS       http.Handler
	Health   http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, log *slog.Logger, auth middlewarectx.Authenticator, limits config.RateLimit, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware,
	)

	requireUser := middlewarectx.JWTMiddleware(auth, log)
	adminOnly := middlewarectx.AdminOnly(log)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(log, limits.RequestsPerSecond, limits.Burst))
			r.Method(http.MethodPost, "/register", h.Register)
			r.Method(http.MethodPost, "/login", h.Login)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.Users.List)

			// /me раньше /{id}
			r.Put("/me/settings", h.Users.UpdateSettings)
			r.Put("/me/profile", h.Users.UpdateProfile)
			r.Put("/me/password", h.Users.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/{id}", h.Users.Get)
				r.Put("/{id}", h.Users.Update)
				r.Delete("/{id}", h.Users.Delete)
				r.Put("/{id}/role", h.Users.SetRole)
				r.Put("/{id}/block", h.Users.SetBlocked)
				r.Put("/{id}/restore", h.Users.Restore)
			})
		})

		r.Route("/chats", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.Chats.List)
			r.With(adminOnly).Get("/admin/all", h.Chats.ListAll)
			r.Post("/", h.Chats.Create)
			r.Get("/{id}", h.Chats.Get)
			r.Put("/{id}", h.Chats.Update)
			r.Delete("/{id}", h.Chats.Delete)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/chat/{chatId}", h.Messages.List)
			r.Get("/chat/{chatId}/search", h.Messages.Search)
			r.Put("/chat/{chatId}/read", h.Messages.MarkRead)
			r.Post("/chat/{chatId}", h.Messages.Create)
			r.Put("/{id}", h.Messages.Update)
			r.Delete("/{id}", h.Messages.Delete)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.With(middlewarectx.OptionalJWTMiddleware(auth, log)).Post("/", h.Feedback.Create)
			r.With(requireUser, adminOnly).Get("/", h.Feedback.List)
		})
	})

	r.Method(http.MethodGet, "/ws", h.WS)
	r.Method(http.MethodGet, "/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
