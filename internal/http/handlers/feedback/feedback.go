// Package feedback HTTP-обработчики обратной связи.
package feedback

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/messenger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/models"
	feedbackservice "github.com/magabrotheeeer/messenger/internal/services/feedback"
)

// Service бизнес-логика обратной связи.
type Service interface {
	Create(ctx context.Context, in feedbackservice.Input) (*models.Feedback, error)
	List(ctx context.Context) ([]*models.Feedback, error)
}

// Request тело POST /api/feedback.
type Request struct {
	Name    string `json:"name" validate:"max=100"`
	Email   string `json:"email" validate:"max=254"`
	Message string `json:"message" validate:"max=5000"`
}

// CreatedResponse ответ на новое обращение.
type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Handler обработчики /api/feedback.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчики.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Create POST /api/feedback. Токен необязателен; если он валиден,
// обращение связывается с пользователем.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback.Create"

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

	in := feedbackservice.Input{Name: req.Name, Email: req.Email, Message: req.Message}
	if p, ok := middlewarectx.PrincipalFrom(r.Context()); ok {
		in.UserID = p.ID
	}

	fb, err := h.service.Create(r.Context(), in)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("feedback received", slog.String("feedback_id", fb.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, CreatedResponse{Message: "Feedback received", ID: fb.ID})
}

// List GET /api/feedback, только для администраторов.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.feedback.List"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	items, err := h.service.List(r.Context())
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, items)
}
