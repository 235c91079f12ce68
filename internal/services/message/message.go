// Package message реализует журнал сообщений чата: отправку, чтение,
// поиск, отметку о прочтении, редактирование и удаление.
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/metrics"
	"github.com/magabrotheeeer/messenger/internal/models"
	"github.com/magabrotheeeer/messenger/internal/policy"
	"github.com/magabrotheeeer/messenger/internal/realtime"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

// SearchLimit максимум результатов поиска.
const SearchLimit = 50

const (
	msgChatAndTextRequired = "Chat and text required"
	msgQueryRequired       = "Query is required"
	msgTextEmpty           = "Text cannot be empty"
	msgAccessDenied        = "Access denied"
	msgChatNotFound        = "Chat not found"
	msgMessageNotFound     = "Message not found"
)

// Repository хранилище сообщений и чатов.
type Repository interface {
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ChatParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	CreateMessage(ctx context.Context, chatID, senderID, text string) (*models.Message, error)
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]*models.Message, error)
	SearchMessages(ctx context.Context, chatID, q string, limit int) ([]*models.Message, error)
	MarkChatRead(ctx context.Context, chatID, readerID string) (int64, error)
	UpdateMessage(ctx context.Context, id string, text *string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Service бизнес-логика сообщений.
type Service struct {
	log        *slog.Logger
	repo       Repository
	dispatcher realtime.Dispatcher

	fanOuts sync.WaitGroup
}

// fanOutTimeout предел на рассылку одного сообщения.
const fanOutTimeout = 10 * time.Second

// New создаёт сервис. dispatcher может быть nil: тогда события не рассылаются.
func New(log *slog.Logger, repo Repository, dispatcher realtime.Dispatcher) *Service {
	return &Service{log: log, repo: repo, dispatcher: dispatcher}
}

// Create сохраняет сообщение и рассылает его остальным участникам чата.
// Рассылка идёт в фоне и не зависит от контекста запроса; её ошибки
// только логируются.
func (s *Service) Create(ctx context.Context, p models.Principal, chatID, text string) (*models.Message, error) {
	const op = "services.message.Create"

	text = strings.TrimSpace(text)
	if chatID == "" || text == "" {
		return nil, apperr.Validation(msgChatAndTextRequired)
	}
	if _, err := s.accessibleChat(ctx, op, p, chatID); err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(ctx, chatID, p.ID, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.fanOuts.Add(1)
	go func() {
		defer s.fanOuts.Done()
		fanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fanOutTimeout)
		defer cancel()
		s.fanOut(fanCtx, msg)
	}()
	return msg, nil
}

// Wait блокируется, пока не завершатся начатые рассылки.
func (s *Service) Wait() {
	s.fanOuts.Wait()
}

func (s *Service) fanOut(ctx context.Context, msg *models.Message) {
	const op = "services.message.fanOut"
	log := s.log.With(slog.String("op", op), slog.String("message_id", msg.ID))

	participants, err := s.repo.ChatParticipantIDs(ctx, msg.ChatID)
	if err != nil {
		log.Error("failed to load participants", sl.Err(err))
		return
	}

	event := realtime.Event{Type: realtime.EventMessageNew, Data: msg}
	for _, userID := range participants {
		if userID == msg.SenderID {
			continue
		}
		err := realtime.ErrDispatcherNotInitialized
		if s.dispatcher != nil {
			err = s.dispatcher.EmitToUser(ctx, userID, event)
		}
		if err != nil {
			metrics.RealtimeEvents.WithLabelValues("failed").Inc()
			log.Warn("failed to emit message", sl.UserID(userID), sl.Err(err))
			continue
		}
		metrics.RealtimeEvents.WithLabelValues("sent").Inc()
	}
}

// List сообщения чата по возрастанию времени.
func (s *Service) List(ctx context.Context, p models.Principal, chatID string) ([]*models.Message, error) {
	const op = "services.message.List"

	if _, err := s.accessibleChat(ctx, op, p, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// Search поиск подстроки без учёта регистра, новые первыми.
func (s *Service) Search(ctx context.Context, p models.Principal, chatID, q string) ([]*models.Message, error) {
	const op = "services.message.Search"

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Validation(msgQueryRequired)
	}
	if _, err := s.accessibleChat(ctx, op, p, chatID); err != nil {
		return nil, err
	}
	msgs, err := s.repo.SearchMessages(ctx, chatID, q, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// MarkAllRead отмечает прочитанными чужие сообщения чата.
func (s *Service) MarkAllRead(ctx context.Context, p models.Principal, chatID string) error {
	const op = "services.message.MarkAllRead"

	if _, err := s.accessibleChat(ctx, op, p, chatID); err != nil {
		return err
	}
	n, err := s.repo.MarkChatRead(ctx, chatID, p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("messages marked as read", slog.String("op", op), slog.Int64("count", n))
	return nil
}

// Update редактирует текст. Сообщение всегда помечается изменённым.
func (s *Service) Update(ctx context.Context, p models.Principal, id string, text *string) (*models.Message, error) {
	const op = "services.message.Update"

	msg, err := s.ownMessage(ctx, op, p, id)
	if err != nil {
		return nil, err
	}
	if text != nil {
		trimmed := strings.TrimSpace(*text)
		if trimmed == "" {
			return nil, apperr.Validation(msgTextEmpty)
		}
		text = &trimmed
	}
	updated, err := s.repo.UpdateMessage(ctx, msg.ID, text)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return nil, apperr.NotFound(msgMessageNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет сообщение.
func (s *Service) Delete(ctx context.Context, p models.Principal, id string) error {
	const op = "services.message.Delete"

	msg, err := s.ownMessage(ctx, op, p, id)
	if err != nil {
		return err
	}
	if err = s.repo.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return apperr.NotFound(msgMessageNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) accessibleChat(ctx context.Context, op string, p models.Principal, chatID string) (*models.Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			return nil, apperr.NotFound(msgChatNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !policy.CanAccessChat(p, chat) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}
	return chat, nil
}

func (s *Service) ownMessage(ctx context.Context, op string, p models.Principal, id string) (*models.Message, error) {
	msg, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return nil, apperr.NotFound(msgMessageNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !policy.CanMutateMessage(p, msg) {
		return nil, apperr.Forbidden(msgAccessDenied)
	}
	return msg, nil
}
