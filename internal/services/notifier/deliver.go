// Package notifier доставляет уведомления пользователям по email и SMS.
//
// Каналы независимы: сбой одного не отменяет другой. Deliverer используется
// и напрямую из сервиса, и из отдельного процесса-отправителя, читающего
// очереди RabbitMQ.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/metrics"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const (
	channelEmail = "email"
	channelSMS   = "sms"
)

// ErrNoChannel — у адресата нет ни email, ни телефона.
var ErrNoChannel = errors.New("notice has no delivery channel")

// Mailer отправляет HTML-письма.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender отправляет короткие сообщения.
type SMSSender interface {
	Send(ctx context.Context, to, text string) error
}

// Deliverer рендерит уведомление и отправляет его по всем доступным каналам.
type Deliverer struct {
	mailer   Mailer
	sms      SMSSender
	metrics  *metrics.Metrics
	loginURL string
	now      func() time.Time
	log      *slog.Logger
}

// NewDeliverer создаёт Deliverer. mailer или sms могут быть nil, тогда канал пропускается.
func NewDeliverer(mailer Mailer, sms SMSSender, m *metrics.Metrics, frontendURL string, log *slog.Logger) *Deliverer {
	loginURL := ""
	if frontendURL != "" {
		loginURL = frontendURL + "/signin"
	}
	return &Deliverer{
		mailer:   mailer,
		sms:      sms,
		metrics:  m,
		loginURL: loginURL,
		now:      time.Now,
		log:      log,
	}
}

// Deliver отправляет уведомление. Ошибка возвращается, только если все
// попробованные каналы завершились неудачей.
func (d *Deliverer) Deliver(ctx context.Context, n models.Notice) error {
	const op = "notifier.Deliver"

	msg, err := Render(n, d.now(), d.loginURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		g        errgroup.Group
		emailErr error
		smsErr   error
		tried    int
	)
	if d.mailer != nil && n.Contact.Email != "" {
		tried++
		g.Go(func() error {
			emailErr = d.mailer.Send(ctx, n.Contact.Email, msg.Subject, msg.HTML)
			d.record(channelEmail, n, emailErr)
			return nil
		})
	}
	if d.sms != nil && n.Contact.Phone != "" {
		tried++
		g.Go(func() error {
			smsErr = d.sms.Send(ctx, n.Contact.Phone, msg.SMS)
			d.record(channelSMS, n, smsErr)
			return nil
		})
	}
	_ = g.Wait()

	if tried == 0 {
		return fmt.Errorf("%s: account %s: %w", op, n.Contact.AccountID, ErrNoChannel)
	}
	failed := 0
	for _, e := range []error{emailErr, smsErr} {
		if e != nil {
			failed++
		}
	}
	if failed == tried {
		return fmt.Errorf("%s: %w", op, errors.Join(emailErr, smsErr))
	}
	return nil
}

func (d *Deliverer) record(channel string, n models.Notice, err error) {
	if err != nil {
		d.metrics.NotificationsError.WithLabelValues(channel).Inc()
		d.log.Warn("notification delivery failed",
			slog.String("channel", channel),
			slog.String("kind", string(n.Kind)),
			slog.String("account_id", n.Contact.AccountID),
			sl.Err(err))
		return
	}
	d.metrics.NotificationsSent.WithLabelValues(channel).Inc()
}

// HandleMessage разбирает уведомление из тела сообщения очереди и доставляет его.
func (d *Deliverer) HandleMessage(ctx context.Context, body []byte) error {
	const op = "notifier.HandleMessage"
	var n models.Notice
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return d.Deliver(ctx, n)
}
