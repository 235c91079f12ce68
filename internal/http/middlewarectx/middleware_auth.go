// Package middlewarectx содержит HTTP middleware: проверку JWT, доступ
// администратора, ограничение частоты запросов и метрики.
//
// JWTMiddleware проверяет токен из заголовка Authorization, загружает
// пользователя и кладёт его в контекст запроса. Заблокированные и удалённые
// учётные записи отклоняются, даже если токен ещё не истёк.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/policy"
)

const (
	msgMissingAuthHeader = "missing or invalid authorization header"
	msgAccessDenied      = "Access denied"
)

// Authenticator проверяет токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// BearerToken токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// JWTMiddleware возвращает HTTP middleware, который требует валидный токен.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := BearerToken(r)
			if !ok {
				log.Info(msgMissingAuthHeader)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgMissingAuthHeader))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				response.RenderError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalJWTMiddleware кладёт пользователя в контекст, если токен валиден.
// Иначе запрос обрабатывается анонимно.
func OptionalJWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("optional auth rejected, continue anonymously",
					slog.String("request_id", middleware.GetReqID(r.Context())))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AdminOnly пропускает только администраторов. Ставится после JWTMiddleware.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msgMissingAuthHeader))
				return
			}
			if !policy.IsAdmin(p) {
				log.Info("admin access denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("user_id", p.ID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(msgAccessDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
