// Package notifier пересылает события обратной связи на почту поддержки.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/lib/smtp"
	"github.com/magabrotheeeer/messenger/internal/metrics"
	"github.com/magabrotheeeer/messenger/internal/models"
)

// Service отправляет письма о новых обращениях.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(log *slog.Logger, transport smtp.TransportInterface) *Service {
	return &Service{transport: transport, log: log}
}

// HandleFeedback обрабатывает тело сообщения из очереди feedback.received.
// Нечитаемые сообщения подтверждаются и отбрасываются, ошибки SMTP
// возвращаются для повторной доставки.
func (s *Service) HandleFeedback(ctx context.Context, body []byte) error {
	const op = "services.notifier.HandleFeedback"
	log := s.log.With(slog.String("op", op))

	var event models.FeedbackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal feedback event, dropping", sl.Err(err))
		metrics.FeedbackEvents.WithLabelValues("notify", "dropped").Inc()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := "Новое обращение в поддержку"
	if event.Name != "" {
		subject += ": " + event.Name
	}
	if err := s.sendEmail([]string{s.transport.SupportEmail()}, event.Email, subject, feedbackText(event)); err != nil {
		metrics.FeedbackEvents.WithLabelValues("notify", "failed").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.FeedbackEvents.WithLabelValues("notify", "sent").Inc()
	log.Info("feedback forwarded", slog.String("feedback_id", event.ID))
	return nil
}

func feedbackText(e models.FeedbackEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Обращение: %s\n", e.ID)
	if e.Name != "" {
		fmt.Fprintf(&b, "Имя: %s\n", e.Name)
	}
	fmt.Fprintf(&b, "Email: %s\n", e.Email)
	if e.UserID != "" {
		fmt.Fprintf(&b, "Пользователь: %s\n", e.UserID)
	}
	fmt.Fprintf(&b, "Дата: %s\n\n", e.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString(e.Message)
	return b.String()
}

func (s *Service) sendEmail(to []string, replyTo, subject, bodyText string) error {
	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	msg := smtp.Message{
		From:    s.transport.GetSMTPUser(),
		To:      to,
		ReplyTo: replyTo,
		Subject: subject,
		Body:    bodyText,
	}
	if err = smtp.Send(client, msg); err != nil {
		s.log.Error("failed to send email", sl.Err(err))
		return err
	}
	return nil
}
