// Package feedback приём обращений пользователей и их публикация в брокер.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/messenger/internal/lib/apperr"
	"github.com/magabrotheeeer/messenger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/metrics"
	"github.com/magabrotheeeer/messenger/internal/models"
)

const msgEmailAndMessageRequired = "Email and message are required"

// Repository хранилище обращений.
type Repository interface {
	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	ListFeedback(ctx context.Context) ([]*models.Feedback, error)
}

// Publisher публикует события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Input поля обращения.
type Input struct {
	Name    string
	Email   string
	Message string
	// UserID автор запроса, пусто для анонимных обращений.
	UserID string
}

// Service бизнес-логика обратной связи.
type Service struct {
	log       *slog.Logger
	repo      Repository
	publisher Publisher
}

// New создаёт сервис. publisher может быть nil, тогда события не публикуются.
func New(log *slog.Logger, repo Repository, publisher Publisher) *Service {
	return &Service{log: log, repo: repo, publisher: publisher}
}

// Create сохраняет обращение и публикует событие feedback.received.
// Ошибка публикации только логируется.
func (s *Service) Create(ctx context.Context, in Input) (*models.Feedback, error) {
	const op = "services.feedback.Create"

	fb := &models.Feedback{
		Name:    strings.TrimSpace(in.Name),
		Email:   models.NormalizeEmail(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
	if fb.Email == "" || fb.Message == "" {
		return nil, apperr.Validation(msgEmailAndMessageRequired)
	}
	if in.UserID != "" {
		userID := in.UserID
		fb.UserID = &userID
	}

	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, fb)
	return fb, nil
}

// List все обращения, новые первыми.
func (s *Service) List(ctx context.Context) ([]*models.Feedback, error) {
	const op = "services.feedback.List"

	items, err := s.repo.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s *Service) publish(ctx context.Context, fb *models.Feedback) {
	const op = "services.feedback.publish"

	if s.publisher == nil {
		metrics.FeedbackEvents.WithLabelValues("publish", "skipped").Inc()
		return
	}
	event := models.FeedbackEvent{
		ID:        fb.ID,
		Name:      fb.Name,
		Email:     fb.Email,
		Message:   fb.Message,
		CreatedAt: fb.CreatedAt,
	}
	if fb.UserID != nil {
		event.UserID = *fb.UserID
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyFeedback, event); err != nil {
		metrics.FeedbackEvents.WithLabelValues("publish", "failed").Inc()
		s.log.Error("failed to publish feedback event",
			slog.String("op", op), slog.String("feedback_id", fb.ID), sl.Err(err))
		return
	}
	metrics.FeedbackEvents.WithLabelValues("publish", "sent").Inc()
}
