package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP отправляет письма через SMTP-сервер.
type SMTP struct {
	dialer dialer
	from   string
	policy retry.Policy
	log    *slog.Logger
}

// NewSMTP создаёт SMTP-отправителя.
func NewSMTP(cfg config.SMTP, policy retry.Policy, log *slog.Logger) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		policy: policy,
		log:    log,
	}
}

func (s *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "mailer.SMTP.Send"

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	err := s.policy.Do(ctx, func() error {
		return s.dialer.DialAndSend(m)
	}, func(err error, wait time.Duration) {
		s.log.Warn("smtp send failed, retrying", slog.String("to", to), slog.Duration("wait", wait), sl.Err(err))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
