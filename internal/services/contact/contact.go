// Package contact пересылает сообщения формы обратной связи администрации.
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Dispatcher ставит уведомления в фоновую доставку.
type Dispatcher interface {
	Dispatch(ctx context.Context, notices ...models.Notice)
}

type Service struct {
	dispatcher Dispatcher
	admin      models.Contact
	log        *slog.Logger
}

// New создаёт сервис. Если у admin нет ни email, ни телефона, сообщения
// только подтверждаются отправителю.
func New(dispatcher Dispatcher, admin models.Contact, log *slog.Logger) *Service {
	return &Service{dispatcher: dispatcher, admin: admin, log: log}
}

// Send подтверждает получение отправителю и пересылает сообщение
// администрации. Доставка выполняется в фоне.
func (s *Service) Send(ctx context.Context, msg models.DummyContact) error {
	const op = "contact.Send"

	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return fmt.Errorf("%s: empty message: %w", op, apperr.ErrInvalidInput)
	}

	sender := models.Contact{
		Name:  strings.TrimSpace(msg.Names),
		Email: msg.Email,
		Phone: msg.PhoneNumber,
	}
	notices := []models.Notice{{Kind: models.NoticeContactReceived, Contact: sender}}
	if s.admin.Email != "" || s.admin.Phone != "" {
		notices = append(notices, models.Notice{
			Kind:    models.NoticeContactRelayed,
			Contact: s.admin,
			Sender:  &sender,
			Message: text,
		})
	} else {
		s.log.Warn("admin contact is not configured, message is not relayed")
	}

	s.dispatcher.Dispatch(ctx, notices...)
	return nil
}
