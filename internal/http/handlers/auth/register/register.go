// Package register обработчик регистрации новой учётной записи.
package register

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/services/auth"
)

// Request входные данные для регистрации. Обязательность полей проверяет сервис.
type Request struct {
	Email    string `json:"email" validate:"omitempty,max=254"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

// Service описывает регистрацию.
type Service interface {
	Register(ctx context.Context, email, password string) (*auth.Result, error)
}

// Handler POST /api/auth/register.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Email и пароль"
// @Success 201 {object} auth.Result
// @Failure 400 {object} response.ErrorResponse
// @Router /api/auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("user registered", sl.UserID(res.User.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
