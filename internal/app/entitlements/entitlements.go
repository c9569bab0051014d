// Package entitlements собирает HTTP-сервис подписок: хранилище, кэш,
// доставку уведомлений, жизненный цикл подписок, оплату и планировщик
// сверки.
package entitlements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/exam-subscriptions/internal/cache"
	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/health"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/middlewarectx"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/jwt"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/mailer"
	"github.com/magabrotheeeer/exam-subscriptions/internal/metrics"
	"github.com/magabrotheeeer/exam-subscriptions/internal/migrations"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/paymentprovider"
	"github.com/magabrotheeeer/exam-subscriptions/internal/push"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/auth"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/catalog"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/contact"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/notifier"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/payment"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/scheduler"
	"github.com/magabrotheeeer/exam-subscriptions/internal/sms"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	scheduler *scheduler.Scheduler
	amqpConn  *amqp.Connection
	amqpCh    *amqp.Channel
	direct    *notifier.Direct
	queue     *notifier.Queue
	lifecycle *lifecycle.Service
}

// New собирает приложение. Миграции применяются до старта HTTP-сервера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "entitlements.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db, cache: cacheRedis}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	dispatcher, err := app.newDispatcher(ctx, cfg, m)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hub := push.NewHub(logger)
	lifecycleService := lifecycle.NewService(db, dispatcher, hub, m, logger,
		lifecycle.WithWarningWindow(cfg.Sweep.WarningWindow))

	app.lifecycle = lifecycleService

	if !cfg.Sweep.Disabled {
		app.scheduler, err = scheduler.New(lifecycleService, cfg.Sweep.Interval, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	authService := auth.NewService(db, cache.NewResetCodes(cacheRedis, cfg.ResetCode.TTL, cfg.ResetCode.MaxAttempts), jwtMaker, dispatcher, logger)
	catalogService := catalog.NewService(db, cacheRedis, cfg.RedisConnection.CacheTTL, logger)
	paymentService := payment.New(paymentprovider.NewClient(cfg.IremboPay), db, lifecycleService, dispatcher,
		cfg.IremboPay, cfg.Payment, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:      authService,
		Catalog:   catalogService,
		Lifecycle: lifecycleService,
		Payment:   paymentService,
		Contact:   contact.New(dispatcher, adminContact(cfg.Contact), logger),
		Hub:       hub,
		Metrics:   m,
		Gatherer:  registry,
		Limiter:   middlewarectx.NewRateLimiter(cfg.HTTPServer.RateLimit, cfg.HTTPServer.RateBurst),
		Checks: map[string]health.Checker{
			"postgres": db.CheckDatabaseReady,
			"redis": func(ctx context.Context) error {
				return cacheRedis.Db.Ping(ctx).Err()
			},
		},
	})

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

func adminContact(cfg config.Contact) models.Contact {
	return models.Contact{Name: "Umuhanda", Email: cfg.AdminEmail, Phone: cfg.AdminPhone}
}

// newDispatcher выбирает доставку уведомлений: сразу из процесса или через
// очереди RabbitMQ для отдельного отправителя.
func (a *App) newDispatcher(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (lifecycle.Dispatcher, error) {
	if cfg.Notifications.Mode == "queue" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
		if err != nil {
			conn.Close()
			return nil, err
		}
		a.amqpConn, a.amqpCh = conn, ch
		a.logger.Info("notifications are published to rabbitmq", slog.String("exchange", rabbitmq.Exchange))
		a.queue = notifier.NewQueue(ch, cfg.Notifications.Buffer, a.logger)
		return a.queue, nil
	}

	mail, err := mailer.New(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	deliverer := notifier.NewDeliverer(mail, sms.NewClient(cfg.Infobip, retry.DefaultPolicy, a.logger), m,
		cfg.Payment.FrontendURL, a.logger)
	a.direct = notifier.NewDirect(deliverer, cfg.Notifications.Concurrency, a.logger)
	return a.direct, nil
}

// Run обслуживает HTTP до отмены ctx, затем останавливает планировщик и
// сервер.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}

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

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

// SweepOnce выполняет один проход сверки без HTTP-сервера и освобождает
// ресурсы после доставки уведомлений.
func (a *App) SweepOnce(ctx context.Context) (lifecycle.SweepResult, error) {
	defer a.close()
	return a.lifecycle.RunSweep(ctx)
}

func (a *App) close() {
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error("failed to stop scheduler", sl.Err(err))
		}
	}
	if a.direct != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.direct.Wait(ctx); err != nil {
			a.logger.Warn("pending notifications dropped", sl.Err(err))
		}
		cancel()
	}
	if a.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.queue.Close(ctx); err != nil {
			a.logger.Warn("pending notifications not published", sl.Err(err))
		}
		cancel()
	}
	if a.amqpCh != nil {
		if err := a.amqpCh.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
