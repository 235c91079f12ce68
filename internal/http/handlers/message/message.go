// Package message HTTP-обработчики сообщений.
package message

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/messenger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/messenger/internal/http/response"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/models"
)

// Service бизнес-логика сообщений.
type Service interface {
	Create(ctx context.Context, p models.Principal, chatID, text string) (*models.Message, error)
	List(ctx context.Context, p models.Principal, chatID string) ([]*models.Message, error)
	Search(ctx context.Context, p models.Principal, chatID, q string) ([]*models.Message, error)
	MarkAllRead(ctx context.Context, p models.Principal, chatID string) error
	Update(ctx context.Context, p models.Principal, id string, text *string) (*models.Message, error)
	Delete(ctx context.Context, p models.Principal, id string) error
}

// CreateRequest тело POST /api/messages/chat/{chatId}.
type CreateRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

// UpdateRequest тело PUT /api/messages/{id}.
type UpdateRequest struct {
	Text *string `json:"text" validate:"omitempty,max=4000"`
}

// Handler обработчики /api/messages.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчики сообщений.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List GET /api/messages/chat/{chatId}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.List")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	msgs, err := h.service.List(r.Context(), p, chi.URLParam(r, "chatId"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, msgs)
}

// Search GET /api/messages/chat/{chatId}/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.Search")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	msgs, err := h.service.Search(r.Context(), p, chi.URLParam(r, "chatId"), r.URL.Query().Get("q"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, msgs)
}

// MarkRead PUT /api/messages/chat/{chatId}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.MarkRead")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkAllRead(r.Context(), p, chi.URLParam(r, "chatId")); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Message("Messages marked as read"))
}

// Create POST /api/messages/chat/{chatId}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.Create")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	msg, err := h.service.Create(r.Context(), p, chi.URLParam(r, "chatId"), req.Text)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Debug("message created", slog.String("message_id", msg.ID), sl.UserID(p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

// Update PUT /api/messages/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.Update")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	msg, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, msg)
}

// Delete DELETE /api/messages/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.message.Delete")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Message("Message deleted"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode request"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return false
	}
	return true
}
