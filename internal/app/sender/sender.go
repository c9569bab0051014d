// Package sender собирает отдельный процесс доставки уведомлений: читает
// очереди обменника notifications и отправляет email и SMS.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/mailer"
	"github.com/magabrotheeeer/exam-subscriptions/internal/metrics"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/notifier"
	"github.com/magabrotheeeer/exam-subscriptions/internal/sms"
)

type App struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	deliverer *notifier.Deliverer
	metrics   *http.Server
	logger    *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "sender.New"

	mail, err := mailer.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	deliverer := notifier.NewDeliverer(mail, sms.NewClient(cfg.Infobip, retry.DefaultPolicy, logger), m,
		cfg.Payment.FrontendURL, logger)

	return &App{
		conn:      conn,
		ch:        ch,
		deliverer: deliverer,
		metrics: &http.Server{
			Addr:              cfg.Sender.MetricsAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run запускает потребителей всех очередей уведомлений и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.GetNotificationQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.deliverer.HandleMessage, a.logger); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.close()
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", q.QueueName))
	}

	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metrics.Addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", sl.Err(err))
		}
	}()

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
