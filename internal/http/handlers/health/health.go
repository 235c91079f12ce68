// Package health отвечает на проверки живости и готовности.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
)

// Checker проверяет доступность зависимости.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Handler GET /health.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создаёт обработчик. checker может быть nil.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{log: log, checker: checker}
}

// Response тело ответа проверки.
type Response struct {
	Status string `json:"status"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if h.checker != nil {
		if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
			h.log.Error("database is not ready", slog.String("op", op), sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("database is not ready"))
			return
		}
	}
	render.JSON(w, r, Response{Status: "ok"})
}
