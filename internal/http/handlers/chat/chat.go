// Package chat HTTP-обработчики чатов.
package chat

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
	chatservice "github.com/magabrotheeeer/messenger/internal/services/chat"
)

// Service бизнес-логика чатов.
type Service interface {
	Create(ctx context.Context, p models.Principal, title string, participants []string) (*models.Chat, error)
	List(ctx context.Context, p models.Principal) ([]*models.Chat, error)
	ListAll(ctx context.Context, p models.Principal) ([]*models.Chat, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.Chat, error)
	Update(ctx context.Context, p models.Principal, id string, in chatservice.UpdateInput) (*models.Chat, error)
	Delete(ctx context.Context, p models.Principal, id string) error
}

// CreateRequest тело POST /api/chats.
type CreateRequest struct {
	Title        string                 `json:"title" validate:"max=200"`
	Participants models.ParticipantList `json:"participants"`
}

// UpdateRequest тело PUT /api/chats/{id}. Отсутствующие поля не меняются.
type UpdateRequest struct {
	Title        *string                `json:"title" validate:"omitempty,max=200"`
	Participants models.ParticipantList `json:"participants"`
}

// Handler обработчики /api/chats.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчики чатов.
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

// List GET /api/chats: чаты, где автор запроса участник.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.List")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	chats, err := h.service.List(r.Context(), p)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, chats)
}

// ListAll GET /api/chats/admin/all.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.ListAll")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	chats, err := h.service.ListAll(r.Context(), p)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, chats)
}

// Get GET /api/chats/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.Get")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	chat, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, chat)
}

// Create POST /api/chats.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.Create")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	chat, err := h.service.Create(r.Context(), p, req.Title, req.Participants)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("chat created", slog.String("chat_id", chat.ID), sl.UserID(p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, chat)
}

// Update PUT /api/chats/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.Update")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	chat, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), chatservice.UpdateInput{
		Title:        req.Title,
		Participants: req.Participants,
	})
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, chat)
}

// Delete DELETE /api/chats/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.chat.Delete")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("chat deleted", slog.String("chat_id", id), sl.UserID(p.ID))
	render.JSON(w, r, response.Message("Chat deleted"))
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
