// Package chat управляет чатами: создание, чтение, изменение и удаление
// с нормализацией списка участников и проверкой прав доступа.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/policy"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

const (
	msgChatNotFound        = "Chat not found"
	msgAccessDenied        = "Access denied"
	msgTooFewParticipants  = "At least 2 valid participants required"
	msgUnknownParticipants = "Some participants do not exist"
)

// Repository хранилище чатов и пользователей, нужное сервису.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountActiveUsers(ctx context.Context, ids []string) (int, error)
	CreateChat(ctx context.Context, chat *models.Chat) error
	UpdateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ListChatsByParticipant(ctx context.Context, userID string) ([]*models.Chat, error)
	ListAllChats(ctx context.Context) ([]*models.Chat, error)
	DeleteChat(ctx context.Context, id string) error
}

// Service бизнес-логика чатов.
type Service struct {
	log  *slog.Logger
	repo Repository
}

// New создаёт сервис чатов.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// UpdateInput изменения чата. nil означает, что поле не меняется.
type UpdateInput struct {
	Title        *string
	Participants []string
}

// NormalizeParticipants превращает список идентификаторов и email в
// отсортированный набор идентификаторов существующих пользователей,
// всегда включающий автора запроса.
func (s *Service) NormalizeParticipants(ctx context.Context, raw []string, requesterID string) ([]string, error) {
	const op = "services.chat.NormalizeParticipants"

	set := map[string]struct{}{canonicalID(requesterID): {}}
	for _, value := range raw {
		if strings.Contains(value, "@") {
			email := models.NormalizeEmail(value)
			user, err := s.repo.FindUserByEmail(ctx, email)
			if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if err != nil || user.IsDeleted {
				return nil, apperr.Validationf("User not found: %s", value)
			}
			set[user.ID] = struct{}{}
			continue
		}
		if value != "" {
			set[canonicalID(value)] = struct{}{}
		}
	}

	if len(set) < 2 {
		return nil, apperr.Validation(msgTooFewParticipants)
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	count, err := s.repo.CountActiveUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if count != len(ids) {
		return nil, apperr.Validation(msgUnknownParticipants)
	}
	return ids, nil
}

// canonicalID приводит UUID к нижнему регистру, чтобы один пользователь
// не попадал в набор дважды. Прочие значения остаются как есть.
func canonicalID(v string) string {
	if id, err := uuid.Parse(v); err == nil {
		return id.String()
	}
	return v
}

// Create создаёт чат. Пустое название заменяется на DefaultChatTitle.
func (s *Service) Create(ctx context.Context, p models.Principal, title string, participants []string) (*models.Chat, error) {
	const op = "services.chat.Create"

	ids, err := s.NormalizeParticipants(ctx, participants, p.ID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultChatTitle
	}
	chat := &models.Chat{
		Title:          title,
		CreatorID:      p.ID,
		ParticipantIDs: ids,
	}
	if err = s.repo.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.repo.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// List чаты, в которых состоит пользователь.
func (s *Service) List(ctx context.Context, p models.Principal) ([]*models.Chat, error) {
	const op = "services.chat.List"

	chats, err := s.repo.ListChatsByParticipant(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

// ListAll все чаты, только для администратора.
func (s *Service) ListAll(ctx context.Context, p models.Principal) ([]*models.Chat, error) {
	const op = "services.chat.ListAll"

	if !policy.IsAdmin(p) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}
	chats, err := s.repo.ListAllChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chats, nil
}

// Get чат, если автор запроса участник или администратор.
func (s *Service) Get(ctx context.Context, p models.Principal, id string) (*models.Chat, error) {
	chat, err := s.load(ctx, "services.chat.Get", id)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessChat(p, chat) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}
	return chat, nil
}

// Update меняет название и/или участников. Право есть у создателя и администратора.
func (s *Service) Update(ctx context.Context, p models.Principal, id string, in UpdateInput) (*models.Chat, error) {
	const op = "services.chat.Update"

	chat, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateChat(p, chat) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}

	if in.Participants != nil {
		ids, err := s.NormalizeParticipants(ctx, in.Participants, p.ID)
		if err != nil {
			return nil, err
		}
		chat.ParticipantIDs = ids
	}
	if in.Title != nil {
		chat.Title = strings.TrimSpace(*in.Title)
		if chat.Title == "" {
			chat.Title = models.DefaultChatTitle
		}
	}

	if err = s.repo.UpdateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.repo.GetChat(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет чат вместе с сообщениями.
func (s *Service) Delete(ctx context.Context, p models.Principal, id string) error {
	const op = "services.chat.Delete"

	chat, err := s.load(ctx, op, id)
	if err != nil {
		return err
	}
	if !policy.CanMutateChat(p, chat) {
		return apperr.Forbidden(msgAccessDenied)
	}
	if err = s.repo.DeleteChat(ctx, chat.ID); err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return apperr.NotFound(msgChatNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, op, id string) (*models.Chat, error) {
	chat, err := s.repo.GetChat(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return nil, apperr.NotFound(msgChatNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return chat, nil
}
