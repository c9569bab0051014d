package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/retry"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
)

var errMissingToken = errors.New("postmark server token is required")

// Postmark отправляет письма через API Postmark.
type Postmark struct {
	client *postmark.Client
	from   string
	policy retry.Policy
	log    *slog.Logger
}

// NewPostmark создаёт Postmark-отправителя.
func NewPostmark(cfg config.Postmark, policy retry.Policy, log *slog.Logger) (*Postmark, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("mailer.NewPostmark: %w", errMissingToken)
	}
	return &Postmark{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   cfg.From,
		policy: policy,
		log:    log,
	}, nil
}

// Send отправляет письмо. Ошибки API с ненулевым ErrorCode не повторяются.
func (p *Postmark) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "mailer.Postmark.Send"

	err := p.policy.Do(ctx, func() error {
		resp, err := p.client.SendEmail(ctx, postmark.Email{
			From:       p.from,
			To:         to,
			Subject:    subject,
			HTMLBody:   htmlBody,
			Tag:        "notification",
			TrackOpens: true,
		})
		if err != nil {
			return err
		}
		if resp.ErrorCode > 0 {
			return retry.Permanent(fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
		}
		return nil
	}, func(err error, wait time.Duration) {
		p.log.Warn("postmark send failed, retrying", slog.String("to", to), slog.Duration("wait", wait), sl.Err(err))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
