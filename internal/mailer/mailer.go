// Package mailer отправляет транзакционные письма через SMTP (gomail) или
// Postmark. Каждая отправка повторяется по ограниченной линейной политике.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
)

// Sender отправляет HTML-письмо одному адресату.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New выбирает драйвер по cfg.EmailDriver.
func New(cfg *config.Config, log *slog.Logger) (Sender, error) {
	const op = "mailer.New"
	switch cfg.EmailDriver {
	case "smtp":
		return NewSMTP(cfg.SMTP, retry.DefaultPolicy, log), nil
	case "postmark":
		return NewPostmark(cfg.Postmark, retry.DefaultPolicy, log)
	default:
		return nil, fmt.Errorf("%s: unknown email driver %q", op, cfg.EmailDriver)
	}
}
