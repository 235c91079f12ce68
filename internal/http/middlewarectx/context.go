package middlewarectx

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserKey ключ аутентифицированного пользователя в контексте.
const UserKey Key = "user"

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// UserFrom достаёт пользователя из контекста.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(UserKey).(*models.User)
	return u, ok && u != nil
}

// PrincipalFrom автор запроса для проверок доступа.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	u, ok := UserFrom(ctx)
	if !ok {
		return models.Principal{}, false
	}
	return models.Principal{ID: u.ID, Role: u.Role}, true
}

// RequirePrincipal возвращает автора запроса или отвечает 401.
func RequirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
	}
	return p, ok
}
