// Package notifier собирает фоновый сервис, который читает события
// обратной связи из RabbitMQ и отправляет их на почту поддержки.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/messenger/internal/config"
	"github.com/magabrotheeeer/messenger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/lib/smtp"
	notifierservice "github.com/magabrotheeeer/messenger/internal/services/notifier"
)

// App потребитель очереди feedback.received.
type App struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	notifier *notifierservice.Service
	logger   *slog.Logger
}

// New подключается к брокеру и объявляет очереди.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.notifier.New"
	if cfg.SupportEmail == "" {
		return nil, fmt.Errorf("%s: smtp.support_email is not set", op)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:     conn,
		ch:       ch,
		notifier: notifierservice.New(logger, transport),
		logger:   logger,
	}, nil
}

// Run запускает потребителя и блокируется до отмены ctx или потери соединения.
func (a *App) Run(ctx context.Context) error {
	const op = "app.notifier.Run"

	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueFeedback, a.notifier.HandleFeedback)
	if err != nil {
		a.logger.Error("failed to start feedback consumer", sl.Err(err))
		a.close()
		return err
	}
	a.logger.Info("notifier is consuming", slog.String("queue", rabbitmq.QueueFeedback))

	closed := a.conn.NotifyClose(make(chan *amqp.Error, 1))

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("notifier shutting down gracefully")
	case amqpErr := <-closed:
		if amqpErr != nil {
			runErr = fmt.Errorf("%s: %w", op, amqpErr)
		}
	}

	a.close()
	return runErr
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
