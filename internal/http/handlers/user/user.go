// Package user HTTP-обработчики администрирования пользователей и
// самообслуживания (/api/users).
package user

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
	"github.com/magabrotheeeer/messenger/internal/policy"
	userservice "github.com/magabrotheeeer/messenger/internal/services/user"
)

// Service бизнес-логика пользователей.
type Service interface {
	ListAll(ctx context.Context) ([]*models.User, error)
	ListDirectory(ctx context.Context) ([]models.UserEmail, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, in userservice.UpdateInput) (*models.User, error)
	SetRole(ctx context.Context, id, role string) (*models.User, error)
	SetBlocked(ctx context.Context, id string, blocked *bool) (*models.User, error)
	Restore(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, selfID string, in userservice.PreferencesInput) (*models.User, error)
	UpdateProfile(ctx context.Context, selfID string, displayName *string) (*models.User, error)
	ChangePassword(ctx context.Context, selfID, current, next string) error
}

// UpdateRequest тело PUT /api/users/{id}.
type UpdateRequest struct {
	DisplayName *string                       `json:"displayName" validate:"omitempty,max=100"`
	Role        *string                       `json:"role"`
	IsBlocked   *bool                         `json:"isBlocked"`
	Status      *string                       `json:"status" validate:"omitempty,max=50"`
	Preferences *userservice.PreferencesInput `json:"preferences"`
}

// RoleRequest тело PUT /api/users/{id}/role.
type RoleRequest struct {
	Role string `json:"role"`
}

// BlockRequest тело PUT /api/users/{id}/block. Значение проверяется вручную,
// чтобы не-булево значение давало понятную ошибку.
type BlockRequest struct {
	IsBlocked any `json:"isBlocked"`
}

// ProfileRequest тело PUT /api/users/me/profile.
type ProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=100"`
}

// PasswordRequest тело PUT /api/users/me/password.
type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"omitempty,max=72"`
}

// Handler обработчики /api/users.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчики пользователей.
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

// List GET /api/users. Администратор видит полные записи, включая удалённые,
// остальные только id и email активных пользователей.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.List")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	if policy.IsAdmin(p) {
		users, err := h.service.ListAll(r.Context())
		if err != nil {
			response.RenderError(w, r, log, err)
			return
		}
		render.JSON(w, r, users)
		return
	}

	users, err := h.service.ListDirectory(r.Context())
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, users)
}

// Get GET /api/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Get")

	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, u)
}

// Update PUT /api/users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Update")

	var req UpdateRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	u, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userservice.UpdateInput{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		IsBlocked:   req.IsBlocked,
		Status:      req.Status,
		Preferences: req.Preferences,
	})
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, u)
}

// SetRole PUT /api/users/{id}/role.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.SetRole")

	var req RoleRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	u, err := h.service.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	log.Info("role changed", sl.UserID(u.ID), slog.String("role", string(u.Role)))
	render.JSON(w, r, u)
}

// SetBlocked PUT /api/users/{id}/block.
func (h *Handler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.SetBlocked")

	var req BlockRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	var blocked *bool
	if b, ok := req.IsBlocked.(bool); ok {
		blocked = &b
	}
	u, err := h.service.SetBlocked(r.Context(), chi.URLParam(r, "id"), blocked)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	log.Info("block flag changed", sl.UserID(u.ID), slog.Bool("blocked", u.IsBlocked))
	render.JSON(w, r, u)
}

// Restore PUT /api/users/{id}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Restore")

	u, err := h.service.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, u)
}

// Delete DELETE /api/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.Delete")

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Message("User soft deleted"))
}

// UpdateSettings PUT /api/users/me/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdateSettings")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req userservice.PreferencesInput
	if !h.decode(w, r, log, &req) {
		return
	}

	u, err := h.service.UpdateSettings(r.Context(), p.ID, req)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, u)
}

// UpdateProfile PUT /api/users/me/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.UpdateProfile")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req ProfileRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), p.ID, req.DisplayName)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, u)
}

// ChangePassword PUT /api/users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.user.ChangePassword")
	p, ok := middlewarectx.RequirePrincipal(w, r)
	if !ok {
		return
	}

	var req PasswordRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	log.Info("password updated", sl.UserID(p.ID))
	render.JSON(w, r, response.Message("Password updated"))
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
