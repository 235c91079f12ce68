package messenger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/messenger/internal/cache"
	"github.com/magabrotheeeer/messenger/internal/config"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/auth/register"
	chathandler "github.com/magabrotheeeer/messenger/internal/http/handlers/chat"
	feedbackhandler "github.com/magabrotheeeer/messenger/internal/http/handlers/feedback"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/health"
	messagehandler "github.com/magabrotheeeer/messenger/internal/http/handlers/message"
	userhandler "github.com/magabrotheeeer/messenger/internal/http/handlers/user"
	"github.com/magabrotheeeer/messenger/internal/http/handlers/ws"
	"github.com/magabrotheeeer/messenger/internal/lib/jwt"
	"github.com/magabrotheeeer/messenger/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/messenger/internal/lib/sl"
	"github.com/magabrotheeeer/messenger/internal/migrations"
	"github.com/magabrotheeeer/messenger/internal/realtime"
	authservice "github.com/magabrotheeeer/messenger/internal/services/auth"
	chatservice "github.com/magabrotheeeer/messenger/internal/services/chat"
	feedbackservice "github.com/magabrotheeeer/messenger/internal/services/feedback"
	messageservice "github.com/magabrotheeeer/messenger/internal/services/message"
	userservice "github.com/magabrotheeeer/messenger/internal/services/user"
	"github.com/magabrotheeeer/messenger/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API мессенджера вместе с hub реального времени.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	hub    *realtime.Hub
	relay  *realtime.RedisRelay

	messages *messageservice.Service

	amqpConn  *amqp.Connection
	publisher *rabbitmq.Publisher
}

// New подключает хранилище, Redis и брокер, накатывает миграции и
// собирает маршрутизатор. Брокер необязателен: без rabbitmq.url
// обращения сохраняются, но не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		hub:    realtime.NewHub(logger),
	}
	app.relay = realtime.NewRedisRelay(logger, cacheRedis.Db, app.hub)

	var publisher feedbackservice.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
		if err != nil {
			_ = conn.Close()
			app.closeResources()
			return nil, err
		}
		app.amqpConn = conn
		app.publisher = rabbitmq.NewPublisher(ch)
		publisher = app.publisher
	} else {
		logger.Warn("rabbitmq url is empty, feedback events will not be published")
	}

	users := cache.NewUsers(logger, cacheRedis, db, cfg.UserCacheTTL)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.NewService(logger, db, users, jwtMaker)
	userService := userservice.New(logger, db, users)
	chatService := chatservice.New(logger, db)
	messageService := messageservice.New(logger, db, app.relay)
	app.messages = messageService
	feedbackService := feedbackservice.New(logger, db, publisher)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, cfg.RateLimit, Handlers{
		Register: register.New(logger, authService),
		Login:    login.New(logger, authService),
		Users:    userhandler.New(logger, userService),
		Chats:    chathandler.New(logger, chatService),
		Messages: messagehandler.New(logger, messageService),
		Feedback: feedbackhandler.New(logger, feedbackService),
		WS: ws.New(logger, authService, app.hub, realtime.ClientOptions{
			SendBuffer:   cfg.SendBuffer,
			PingInterval: cfg.PingInterval,
			WriteTimeout: cfg.Realtime.WriteTimeout,
		}, cfg.AllowedOrigins),
		Health: health.New(logger, db),
	})

	app.server = &http.Server{
		Addr:              cfg.AddressHTTP,
		Handler:           router,
		ReadHeaderTimeout: cfg.TimeoutHTTP,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает hub, relay и HTTP-сервер и блокируется до отмены ctx
// или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	rtCtx, stopRealtime := context.WithCancel(ctx)
	defer stopRealtime()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.hub.Run(rtCtx)
	}()
	go func() {
		defer wg.Done()
		if err := a.relay.Run(rtCtx, nil); err != nil {
			a.logger.Error("redis relay stopped", sl.Err(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	// рассылки завершаются до остановки hub и закрытия Redis
	a.messages.Wait()
	stopRealtime()
	wg.Wait()
	a.closeResources()
	return runErr
}

func (a *App) closeResources() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("failed to close amqp channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close amqp connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
